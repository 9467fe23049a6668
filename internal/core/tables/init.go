// Package tables registers all table definitions with the core registry.
// Import this package to ensure all tables are registered.
package tables

// This file exists to provide a single import point.
// Each table file uses init() to register its tables.

// Default sheet ids of the production spreadsheet.
const (
	SongsSheetID    = "1083871743"
	CardsSheetID    = "480354522"
	BroochesSheetID = "1087762308"
)
