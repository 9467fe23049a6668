// Package core provides the business logic for spreadsheet-to-database sync.
//
// This package has no transport or storage dependencies. It holds the typed
// cell model, the table registry and the pure pipeline stages that run
// between fetching a sheet and loading it into a database.
//
// # Architecture
//
//   - Table Definitions: registered via [Register], each table has field
//     specs, a header layout and an optional zero-fill rule.
//   - Typing: raw export cells become [Value]s column by column ([TypeRecords]).
//   - Validation: [RecordValidator] rejects rows that break their table's rules.
//   - Transformation: [RecordTransformer] cleans names and values for loading.
//   - Schema: [InferSchema] picks a destination column type per column.
//
// # Table Registry
//
// Tables are registered at init time using [Register]:
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "cards", Label: "Cards", Order: 2},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "ID", Required: true},
//	        {Name: "rarity", Type: core.FieldEnum, EnumValues: []string{"UR", "SSR"}},
//	    },
//	})
//
// # Error Handling
//
// Stage failures are classified with [E] using one of the Err* kinds and are
// mapped to operator messages with codes by [MapError].
package core
