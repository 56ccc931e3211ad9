package holdings

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestReader(sheets int) *Reader {
	return NewReader(sheets, zerolog.New(nil).Level(zerolog.Disabled))
}

// buildWorkbook writes one sheet per entry of sheets, rows as given
func buildWorkbook(t *testing.T, sheets ...[][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, rows := range sheets {
		name := "Sheet1"
		if i > 0 {
			name = "Sheet" + string(rune('1'+i))
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook_ConcatenatesSheets(t *testing.T) {
	data := buildWorkbook(t,
		[][]interface{}{
			{"ATIVO", "PATRIMÔNIO ATUAL", "RENTABILIDADE", "RESULTADO"},
			{"B5P211", 30000.5, 0.08, 2200},
			{"IVVB11", 15000, 0.21, 2600},
		},
		[][]interface{}{
			{"ATIVO", "PATRIMÔNIO ATUAL", "QUANTIDADE"},
			{"charles-river-fia", 7000, 1523},
		},
		[][]interface{}{
			{"ATIVO", "PATRIMÔNIO ATUAL"},
			{"IGNORED", 1},
		},
	)

	rows, err := newTestReader(2).Read(bytes.NewReader(data), "carteira.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 3, "third sheet is beyond the configured sheet count")

	assert.Equal(t, "B5P211", rows[0]["ATIVO"])
	v, ok := rebalancing.ParseNumber(rows[0]["PATRIMÔNIO ATUAL"])
	require.True(t, ok)
	assert.Equal(t, 30000.5, v)
	assert.Equal(t, "charles-river-fia", rows[2]["ATIVO"])
	assert.NotContains(t, rows[2], "RENTABILIDADE")
}

func TestReadWorkbook_FeedsPlan(t *testing.T) {
	data := buildWorkbook(t,
		[][]interface{}{
			{"ATIVO", "PATRIMÔNIO ATUAL"},
			{"B5P211", 30000},
			{"IB5M11", 10000},
		},
		[][]interface{}{
			{"ATIVO", "PATRIMÔNIO ATUAL"},
			{"IVVB11", 15000},
			{"WRLD11", 15000},
		},
	)

	raw, err := newTestReader(2).ReadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	plan, err := rebalancing.BuildPlan(raw, allocation.DefaultTargets(), 2500)
	require.NoError(t, err)
	assert.Equal(t, 70000.0, plan.Summary.TotalValue)
	assert.Empty(t, plan.Table.Unmatched)
	assert.InDelta(t, 2500.0, plan.Summary.Allocated, 1e-6)
}

func TestReadWorkbook_SkipsBlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{nil, nil},
		{"ATIVO", "PATRIMÔNIO ATUAL"},
		{"A", 1},
		{nil, nil},
		{"B", 2},
	})

	rows, err := newTestReader(1).ReadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[1]["ATIVO"])
}

func TestReadWorkbook_Invalid(t *testing.T) {
	_, err := newTestReader(2).ReadWorkbook(strings.NewReader("not a zip archive"))
	assert.ErrorIs(t, err, rebalancing.ErrDataShape)
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"semicolon", "\xef\xbb\xbfATIVO;PATRIMÔNIO ATUAL;RESULTADO\nB5P211;\"1.234,56\";10\nIVVB11;500;-3\n"},
		{"comma", "asset_id,market_value,profit_loss\nB5P211,1234.56,10\nIVVB11,500,-3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := newTestReader(1).Read(strings.NewReader(tt.input), "export.CSV")
			require.NoError(t, err)
			require.Len(t, rows, 2)

			table, err := rebalancing.Normalize(rows, []rebalancing.AssetTarget{
				{AssetID: "B5P211", TargetWeight: 0.5},
				{AssetID: "IVVB11", TargetWeight: 0.5},
			})
			require.NoError(t, err)
			assert.InDelta(t, 1234.56, table.Rows[0].MarketValue, 1e-9)
			assert.Equal(t, 500.0, table.Rows[1].MarketValue)
			assert.True(t, table.Columns.ProfitLoss)
		})
	}
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := newTestReader(1).ReadCSV(strings.NewReader("ATIVO,VALUE\nA,1,99\n"))
	assert.ErrorIs(t, err, rebalancing.ErrDataShape)

	// Leading blank lines are skipped before the header
	rows, err := newTestReader(1).ReadCSV(strings.NewReader(",,\nticker,value\nA,2\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0]["value"])

	rows, err = newTestReader(1).ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRead_UnsupportedFormat(t *testing.T) {
	_, err := newTestReader(1).Read(strings.NewReader(""), "carteira.ods")
	assert.ErrorIs(t, err, rebalancing.ErrDataShape)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticker,value\nA,10\n"), 0644))

	rows, err := newTestReader(1).ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["ticker"])

	_, err = newTestReader(1).ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
