package store

// sql.go renders the statements every backend sends.
//
// Values are inlined as literals rather than bound as parameters: the HTTP
// endpoint takes plain statement strings, and the local backends use the same
// text so a dataset produces identical SQL everywhere.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// PrimaryKeyColumn is declared PRIMARY KEY when present.
const PrimaryKeyColumn = "ID"

// Dialect controls identifier quoting and column type names.
type Dialect struct {
	Name  string
	Quote byte // Identifier delimiter, doubled when embedded

	// TypeName maps a column type to the backend's spelling. Nil uses the type as-is.
	TypeName func(core.ColumnType) string
}

// SQLite is the dialect of libsql and sqlite.
var SQLite = Dialect{Name: "sqlite", Quote: '`'}

// Postgres is the PostgreSQL dialect. REAL becomes DOUBLE PRECISION and
// INTEGER becomes BIGINT so every int64 and float64 fits.
var Postgres = Dialect{
	Name:  "postgres",
	Quote: '"',
	TypeName: func(t core.ColumnType) string {
		switch t {
		case core.TypeInteger:
			return "BIGINT"
		case core.TypeReal:
			return "DOUBLE PRECISION"
		default:
			return string(t)
		}
	},
}

// QuoteIdent quotes an identifier, doubling embedded delimiters.
func (d Dialect) QuoteIdent(name string) string {
	q := string(d.Quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (d Dialect) typeName(t core.ColumnType) string {
	if d.TypeName == nil {
		return string(t)
	}
	return d.TypeName(t)
}

// DropTableSQL returns a DROP TABLE IF EXISTS statement.
func (d Dialect) DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

// CreateTableSQL returns a CREATE TABLE statement with columns in map order.
func (d Dialect) CreateTableSQL(table string, columns core.ColumnTypeMap) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		def := d.QuoteIdent(c.Name) + " " + d.typeName(c.Type)
		if c.Name == PrimaryKeyColumn {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(table), strings.Join(defs, ", "))
}

// DeleteAllSQL returns a statement removing every row of table.
func (d Dialect) DeleteAllSQL(table string) string {
	return "DELETE FROM " + d.QuoteIdent(table)
}

// InsertStatements returns one INSERT per row of ds, in row order.
func (d Dialect) InsertStatements(table string, ds *core.Dataset) []string {
	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = d.QuoteIdent(c)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", d.QuoteIdent(table), strings.Join(cols, ", "))

	out := make([]string, len(ds.Rows))
	var sb strings.Builder
	for r, row := range ds.Rows {
		sb.Reset()
		sb.WriteString(prefix)
		for i, v := range row {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(EncodeValue(v))
		}
		sb.WriteString(")")
		out[r] = sb.String()
	}
	return out
}

// EncodeValue renders v as a SQL literal.
//
//	Null, NaN, ±Inf -> NULL
//	numbers         -> decimal text
//	bool            -> 1 / 0
//	text            -> single-quoted, ' doubled
func EncodeValue(v core.Value) string {
	switch v.Kind() {
	case core.KindNull:
		return "NULL"
	case core.KindInteger:
		n, _ := v.Int64()
		return strconv.FormatInt(n, 10)
	case core.KindFloat:
		f, _ := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case core.KindBool:
		if b, _ := v.Boolean(); b {
			return "1"
		}
		return "0"
	default:
		return "'" + strings.ReplaceAll(v.String(), "'", "''") + "'"
	}
}

// Batches splits n items into consecutive [start, end) ranges of at most size.
func Batches(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
	}
	return out
}
