package core

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RecordTransformer prepares validated datasets for loading.
//
// Steps run in a fixed order and each one is idempotent, so transforming an
// already transformed dataset returns an equal dataset:
//
//  1. drop placeholder columns (Unnamed_N, matched on the normalized name)
//  2. trim and NFC-normalize column names
//  3. empty text becomes null
//  4. apply the table's zero-fill rule, if any
//  5. numeric columns holding only whole numbers become integer columns
type RecordTransformer struct {
	logger *slog.Logger
}

// NewRecordTransformer creates a transformer. A nil logger uses slog.Default().
func NewRecordTransformer(logger *slog.Logger) *RecordTransformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordTransformer{logger: logger}
}

// Transform returns a new dataset; ds is not modified and the row count is preserved.
// Unknown kinds get every step except zero-fill.
func (t *RecordTransformer) Transform(ds *Dataset, kind string) *Dataset {
	out := t.dropUnnamed(ds)
	t.normalizeNames(out)
	blankToNull(out)

	if def, ok := Get(kind); ok && def.ZeroFill != nil {
		if filled := zeroFill(out, def.ZeroFill); len(filled) > 0 {
			t.logger.Debug("zero-filled columns", "table", kind, "columns", filled)
		}
	}

	narrowIntegers(out)

	t.logger.Debug("dataset transformed",
		"table", kind,
		"rows", out.Len(),
		"columns", len(out.Columns),
	)
	return out
}

func (t *RecordTransformer) dropUnnamed(ds *Dataset) *Dataset {
	var keep []int
	var dropped []string
	for i, c := range ds.Columns {
		if IsUnnamedColumn(normalizeName(c)) {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return ds.Clone()
	}
	t.logger.Info("dropping unnamed columns", "columns", dropped)

	out := &Dataset{
		Columns: make([]string, len(keep)),
		Rows:    make([][]Value, len(ds.Rows)),
	}
	for j, i := range keep {
		out.Columns[j] = ds.Columns[i]
	}
	for r, row := range ds.Rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

func (t *RecordTransformer) normalizeNames(ds *Dataset) {
	for i, c := range ds.Columns {
		ds.Columns[i] = normalizeName(c)
	}
	names, renamed := UniqueNames(ds.Columns)
	if len(renamed) > 0 {
		t.logger.Warn("column names collided after normalization", "renamed", renamed)
	}
	ds.Columns = names
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func blankToNull(ds *Dataset) {
	for _, row := range ds.Rows {
		for i, v := range row {
			if s, ok := v.Str(); ok && s == "" {
				row[i] = Null()
			}
		}
	}
}

// MatchesZeroFill reports whether column name is selected by rule.
func MatchesZeroFill(name string, rule *ZeroFillRule) bool {
	if rule == nil {
		return false
	}
	contains := false
	for _, c := range rule.Contains {
		if strings.Contains(name, c) {
			contains = true
			break
		}
	}
	if !contains {
		return false
	}
	for _, s := range rule.Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func zeroFill(ds *Dataset, rule *ZeroFillRule) []string {
	var filled []string
	for i, c := range ds.Columns {
		if !MatchesZeroFill(c, rule) {
			continue
		}
		filled = append(filled, c)
		for _, row := range ds.Rows {
			if row[i].IsNull() {
				row[i] = Int(0)
			}
		}
	}
	return filled
}

// narrowIntegers converts Float cells to Integer in columns whose non-null
// values are all numeric whole numbers. Columns with no non-null values are left alone.
func narrowIntegers(ds *Dataset) {
	for i := range ds.Columns {
		hasFloat := false
		whole := true
		for _, row := range ds.Rows {
			v := row[i]
			if v.IsNull() {
				continue
			}
			if !v.IsWhole() {
				whole = false
				break
			}
			if v.Kind() == KindFloat {
				hasFloat = true
			}
		}
		if !whole || !hasFloat {
			continue
		}
		for _, row := range ds.Rows {
			if f, ok := row[i].Float64(); ok {
				row[i] = Int(int64(f))
			}
		}
	}
}
