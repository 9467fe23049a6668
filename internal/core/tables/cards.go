package tables

import "github.com/JonMunkholm/sheetsync/internal/core"

// Rarities lists the card rarities accepted by the cards table.
var Rarities = []string{"UR", "SSR", "SR", "R", "N"}

func init() {
	registerCards()
}

func registerCards() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "cards",
			Label: "Cards",
			Order: 2,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "ID", Type: core.FieldText, Required: true},
			{Name: "cardID", Type: core.FieldText, Required: true},
			{Name: "rarity", Type: core.FieldEnum, EnumValues: Rarities},
		},
	})
}
