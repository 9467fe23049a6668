package core

// convert.go turns raw export cells into typed values.
//
// Sheet exports are untyped text. Columns are typed the way spreadsheet users
// expect: a column where every filled cell is an integer becomes Integer, one
// where every filled cell is a number becomes Float, TRUE/FALSE columns become
// Bool, and anything else stays Text with the original strings. Empty cells
// are Null in every column type; whitespace-only cells are kept as text.

import (
	"strconv"
	"strings"
)

// ParseNumber reports whether v can be read as a number and returns it.
// Integer, Float and Bool values are numbers; text must be a float literal
// after trimming surrounding whitespace.
func ParseNumber(v Value) (float64, bool) {
	switch v.Kind() {
	case KindInteger, KindFloat:
		return v.Float64()
	case KindBool:
		if b, _ := v.Boolean(); b {
			return 1, true
		}
		return 0, true
	case KindText:
		s, _ := v.Str()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseBool accepts the spellings spreadsheets export for booleans.
func parseBool(s string) (bool, bool) {
	switch s {
	case "TRUE", "True", "true":
		return true, true
	case "FALSE", "False", "false":
		return false, true
	default:
		return false, false
	}
}

// TypeColumn converts one column of raw cells into typed values.
func TypeColumn(cells []string) []Value {
	out := make([]Value, len(cells))

	allInt, allFloat, allBool := true, true, true
	for _, raw := range cells {
		if raw == "" {
			continue
		}
		s := strings.TrimSpace(raw)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
	}

	for i, raw := range cells {
		if raw == "" {
			out[i] = Null()
			continue
		}
		s := strings.TrimSpace(raw)
		switch {
		case allInt:
			n, _ := strconv.ParseInt(s, 10, 64)
			out[i] = Int(n)
		case allFloat:
			f, _ := strconv.ParseFloat(s, 64)
			out[i] = Float(f)
		case allBool:
			b, _ := parseBool(s)
			out[i] = Bool(b)
		default:
			out[i] = Text(raw)
		}
	}
	return out
}

// TypeRecords builds a Dataset from a header and raw data rows.
// Rows must already be exactly len(columns) wide.
func TypeRecords(columns []string, rows [][]string) *Dataset {
	ds := NewDataset(columns)
	ds.Rows = make([][]Value, len(rows))
	for r := range rows {
		ds.Rows[r] = make([]Value, len(columns))
	}

	cells := make([]string, len(rows))
	for c := range columns {
		for r, row := range rows {
			cells[r] = row[c]
		}
		typed := TypeColumn(cells)
		for r := range rows {
			ds.Rows[r][c] = typed[r]
		}
	}
	return ds
}
