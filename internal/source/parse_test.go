package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		headerRow int
		multirow  bool
		wantCols  []string
		wantRows  int
	}{
		{
			name:     "single header",
			input:    "ID,name\n1,a\n2,b\n",
			wantCols: []string{"ID", "name"},
			wantRows: 2,
		},
		{
			name:     "blank lines are skipped",
			input:    "ID,name\n\n1,a\n\n2,b\n",
			wantCols: []string{"ID", "name"},
			wantRows: 2,
		},
		{
			name:     "empty header cells get placeholders",
			input:    "ID,,name\n1,x,a\n",
			wantCols: []string{"ID", "Unnamed_1", "name"},
			wantRows: 1,
		},
		{
			name:      "header on second line",
			input:     "title line\nID,name\n1,a\n",
			headerRow: 1,
			wantCols:  []string{"ID", "name"},
			wantRows:  1,
		},
		{
			name:      "two-row header",
			input:     ",,Shout,,Beat,\nID,曲名,×1白,×1色,×1白,×1色\n1,A,1,2,3,4\n",
			headerRow: 1,
			multirow:  true,
			wantCols:  []string{"ID", "曲名", "Shout_×1白", "Shout_×1色", "Beat_×1白", "Beat_×1色"},
			wantRows:  1,
		},
		{
			name:     "duplicate names are suffixed",
			input:    "ID,x,x\n1,2,3\n",
			wantCols: []string{"ID", "x", "x_2"},
			wantRows: 1,
		},
		{
			name:     "header only",
			input:    "ID,name\n",
			wantCols: []string{"ID", "name"},
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _, err := ParseCSV(strings.NewReader(tt.input), tt.headerRow, tt.multirow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, ds.Columns)
			assert.Equal(t, tt.wantRows, ds.Len())
		})
	}
}

func TestParseCSV_ShortRowsArePadded(t *testing.T) {
	ds, _, err := ParseCSV(strings.NewReader("ID,name,score\n1,a\n2,b,3\n"), 0, false)
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.True(t, ds.Rows[0][2].IsNull())
	assert.Equal(t, core.Int(3), ds.Rows[1][2])
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		headerRow int
	}{
		{"empty input", "", 0},
		{"header row past end", "ID\n1\n", 5},
		{"row wider than header", "ID,name\n1,a,b\n", 0},
		{"malformed quoting", "ID,name\n1,\"a\"b\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCSV(strings.NewReader(tt.input), tt.headerRow, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrParse)
		})
	}
}

func TestParseCSV_ReportsRenames(t *testing.T) {
	_, renamed, err := ParseCSV(strings.NewReader("a,a\n1,2\n"), 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a -> a_2"}, renamed)
}
