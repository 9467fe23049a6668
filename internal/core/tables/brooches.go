package tables

import "github.com/JonMunkholm/sheetsync/internal/core"

func init() {
	registerBrooches()
}

func registerBrooches() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "brooches",
			Label: "Brooches",
			Order: 3,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "ID", Type: core.FieldText, Required: true},
			{Name: "cardID", Type: core.FieldText, Required: true},
			{Name: "オート", Type: core.FieldNumeric, NonNegative: true},
			{Name: "楽曲", Type: core.FieldNumeric, NonNegative: true},
			{Name: "スコア", Type: core.FieldNumeric, NonNegative: true},
			{Name: "上限", Type: core.FieldNumeric, NonNegative: true},
		},
	})
}
