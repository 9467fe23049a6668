// Package core provides the business logic for spreadsheet-to-database sync.
// This package has no transport or storage dependencies and can be used by any frontend.
package core

import (
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBool
)

// String returns a lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a single typed cell. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a text value. Empty text is still text, not null.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload. ok is false for every other kind.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// Float64 returns the numeric payload of an Integer or Float value.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Str returns the text payload. ok is false for every other kind.
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// Boolean returns the bool payload. ok is false for every other kind.
func (v Value) Boolean() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// IsWhole reports whether v is numeric with no fractional part and fits in an int64.
func (v Value) IsWhole() bool {
	switch v.kind {
	case KindInteger:
		return true
	case KindFloat:
		return !math.IsInf(v.f, 0) && !math.IsNaN(v.f) && v.f == math.Trunc(v.f) &&
			v.f >= math.MinInt64 && v.f < math.MaxInt64
	default:
		return false
	}
}

// String renders v for messages and logs. Null renders as an empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Dataset is an ordered set of uniquely named columns and rows of typed cells.
// Every row holds exactly len(Columns) values, positionally aligned with Columns.
type Dataset struct {
	Columns []string
	Rows    [][]Value
}

// NewDataset creates an empty dataset with the given column names.
func NewDataset(columns []string) *Dataset {
	return &Dataset{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Index builds a HeaderIndex for the dataset's columns.
func (d *Dataset) Index() HeaderIndex {
	return MakeHeaderIndex(d.Columns)
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]Value, len(d.Rows)),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}

// HeaderIndex maps column names to their position in a row.
// Matching is exact: table rules name columns such as "cardID" and "ノーツ数" verbatim.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// When a name repeats, the first position wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		if _, exists := idx[h]; !exists {
			idx[h] = i
		}
	}
	return idx
}

// FieldType represents the expected data type for a column rule.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldNumeric
)

// FieldSpec defines the validation rule for a single column.
// Rules only judge rows; they never change values.
type FieldSpec struct {
	Name        string   // Column name (must match the dataset exactly)
	Type        FieldType
	Required    bool     // Value must be present and non-null
	NonNegative bool     // FieldNumeric only: value must be >= 0
	EnumValues  []string // Allowed values for FieldEnum (case-sensitive)
}

// ZeroFillRule selects columns whose nulls mean "zero" for a table.
// A column matches when its name contains any of Contains and ends with any of Suffixes.
type ZeroFillRule struct {
	Contains []string
	Suffixes []string
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key   string // Table kind and destination table name: "songs"
	Label string // Display name
	Order int    // Position in a default sync run
}

// TableDefinition contains everything needed to sync a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec

	// HeaderRow is the zero-based line holding column names.
	HeaderRow int

	// Multirow combines line 0 (categories) with HeaderRow (names).
	Multirow bool

	// ZeroFill is optional; nil leaves nulls untouched.
	ZeroFill *ZeroFillRule
}

// ColumnType is a destination column type.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
)

// ColumnSpec is one entry of a ColumnTypeMap.
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// ColumnTypeMap maps column names to destination types in dataset column order.
type ColumnTypeMap []ColumnSpec

// TableSheet pairs a table kind with the sheet it is exported from.
type TableSheet struct {
	Kind    string
	SheetID string
}
