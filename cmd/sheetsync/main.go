package main

import (
	"os"

	"github.com/JonMunkholm/sheetsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
