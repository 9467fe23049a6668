package core

// header.go flattens the two-row headers used by some sheets.
//
// The first row holds categories that span several columns (only the first
// cell of a span is filled), the second row holds the column names:
//
//	Shout,,Beat,
//	×1白,×1色,×1白,×1色
//
// becomes Shout_×1白, Shout_×1色, Beat_×1白, Beat_×1色.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// unnamedPrefix is used for positions without a name.
const unnamedPrefix = "Unnamed_"

var unnamedPattern = regexp.MustCompile(`^Unnamed_\d+$`)

// UnnamedColumn returns the placeholder name for position i.
func UnnamedColumn(i int) string {
	return unnamedPrefix + strconv.Itoa(i)
}

// IsUnnamedColumn reports whether name is a positional placeholder.
func IsUnnamedColumn(name string) bool {
	return unnamedPattern.MatchString(name)
}

// CombineHeader builds one flat column name per position in names.
// An empty category inherits the nearest non-empty category to its left;
// categories shorter than names are treated as empty.
func CombineHeader(categories, names []string) []string {
	out := make([]string, len(names))
	current := ""
	for i, raw := range names {
		if i < len(categories) {
			if cat := strings.TrimSpace(categories[i]); cat != "" {
				current = cat
			}
		}
		name := strings.TrimSpace(raw)
		switch {
		case name == "":
			out[i] = UnnamedColumn(i)
		case current == "":
			out[i] = name
		default:
			out[i] = current + "_" + name
		}
	}
	return out
}

// HeaderFromRecords combines records[0] (categories) with records[headerRow] (names).
// The first record is always the category row regardless of headerRow.
func HeaderFromRecords(records [][]string, headerRow int) []string {
	if headerRow < 0 || headerRow >= len(records) {
		return nil
	}
	var categories []string
	if len(records) > 0 {
		categories = records[0]
	}
	return CombineHeader(categories, records[headerRow])
}

// FitColumns truncates or pads names to width, padding with placeholders.
func FitColumns(names []string, width int) []string {
	out := make([]string, width)
	for i := range out {
		if i < len(names) {
			out[i] = names[i]
		} else {
			out[i] = UnnamedColumn(i)
		}
	}
	return out
}

// UniqueNames returns names with repeats suffixed _2, _3, ... in source order,
// plus the list of renamed positions as "old -> new".
func UniqueNames(names []string) ([]string, []string) {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = false
	}

	var renamed []string
	seen := make(map[string]int, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 && !taken[n] {
			taken[n] = true
			out[i] = n
			continue
		}
		candidate := n
		for k := seen[n]; ; k++ {
			candidate = fmt.Sprintf("%s_%d", n, k)
			// "Unnamed" + "_2" would read as a placeholder and be dropped later.
			if IsUnnamedColumn(candidate) {
				candidate = fmt.Sprintf("%s_dup%d", n, k)
			}
			if _, exists := taken[candidate]; !exists {
				break
			}
		}
		taken[candidate] = true
		out[i] = candidate
		renamed = append(renamed, n+" -> "+candidate)
	}
	return out, renamed
}
