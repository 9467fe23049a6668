package tables

import "github.com/JonMunkholm/sheetsync/internal/core"

func init() {
	registerSongs()
}

// Songs uses a two-row header: line 0 holds note categories
// (Shout, Beat, Melody) and line 1 the per-multiplier column names.
func registerSongs() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "songs",
			Label: "Songs",
			Order: 1,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "ID", Type: core.FieldText, Required: true},
			{Name: "ノーツ数", Type: core.FieldNumeric},
			{Name: "秒数", Type: core.FieldNumeric},
		},
		HeaderRow: 1,
		Multirow:  true,
		// Blank note counts in the sheet mean "none of this note type".
		ZeroFill: &core.ZeroFillRule{
			Contains: []string{"Shout", "Beat", "Melody"},
			Suffixes: []string{"白", "色"},
		},
	})
}
