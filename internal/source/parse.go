package source

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// ParseCSV reads a sheet export into a typed dataset.
//
// records[headerRow] names the columns and the rows after it hold data.
// With multirow, records[0] is a category row that is combined with the
// name row (see core.CombineHeader). Repeated names are made unique; the
// second return value lists every rename as "old -> new".
func ParseCSV(r io.Reader, headerRow int, multirow bool) (*core.Dataset, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, core.E(core.ErrParse, "parse csv", err)
	}
	if len(records) == 0 {
		return nil, nil, core.Ef(core.ErrParse, "parse csv", "no columns to parse from export")
	}
	if headerRow < 0 || headerRow >= len(records) {
		return nil, nil, core.Ef(core.ErrParse, "parse csv",
			"header row %d out of range (%d lines)", headerRow, len(records))
	}

	header := records[headerRow]
	width := len(header)

	var names []string
	if multirow {
		names = core.FitColumns(core.HeaderFromRecords(records, headerRow), width)
	} else {
		names = make([]string, width)
		for i, h := range header {
			if h == "" {
				names[i] = core.UnnamedColumn(i)
			} else {
				names[i] = h
			}
		}
	}
	names, renamed := core.UniqueNames(names)

	data := records[headerRow+1:]
	rows := make([][]string, len(data))
	for i, rec := range data {
		if len(rec) > width {
			return nil, nil, core.E(core.ErrParse, "parse csv", &RowWidthError{
				Record:   headerRow + 2 + i,
				Expected: width,
				Got:      len(rec),
			})
		}
		if len(rec) < width {
			padded := make([]string, width)
			copy(padded, rec)
			rec = padded
		}
		rows[i] = rec
	}

	return core.TypeRecords(names, rows), renamed, nil
}

// RowWidthError reports a data row wider than the header.
type RowWidthError struct {
	Record   int // 1-based record number
	Expected int
	Got      int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("expected %d fields in record %d, saw %d", e.Expected, e.Record, e.Got)
}
