package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook(t *testing.T) {
	data, err := Workbook(
		Sheet{
			Name:    "Equities",
			Headers: []string{"Ticker", "P/E", "Status"},
			Rows: [][]any{
				{"AAPL", ptr(27.5), "Fair"},
				{"MSFT", (*float64)(nil), ""},
			},
		},
		Sheet{Headers: []string{"Note"}, Rows: [][]any{{"second"}}},
	)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Equities", "Sheet2"}, f.GetSheetList())

	tests := []struct {
		sheet, cell, want string
	}{
		{"Equities", "A1", "Ticker"},
		{"Equities", "A2", "AAPL"},
		{"Equities", "B2", "27.5"},
		{"Equities", "B3", ""},
		{"Sheet2", "A2", "second"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.sheet+"!"+tt.cell)
	}
}

func TestWorkbook_NoSheets(t *testing.T) {
	_, err := Workbook()
	assert.Error(t, err)
}
