package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/medley-health/roster-cli/internal/roster"
)

func writeTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSXTable(t *testing.T) {
	path := writeTestXLSX(t, "Providers", [][]string{
		{"provider_id", "npi", "practice_state"},
		{"P001", "1234567893", "CA"},
		{"P002", "", "NY"},
	})

	table, err := ReadXLSXTable(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"provider_id", "npi", "practice_state"}, table.Columns)
	require.Equal(t, 2, table.Len())

	_, ok := table.Rows[1].Get(roster.ColNPI)
	assert.False(t, ok, "blank cell should read as missing")
	assert.Equal(t, "NY", table.Rows[1].Lookup("practice_state"))
}

func TestReadXLSXTableSkipRows(t *testing.T) {
	path := writeTestXLSX(t, "Sheet1", [][]string{
		{"State Medical Board Roster Extract"},
		{"provider_id", "license_number"},
		{"P009", "A55555"},
	})

	table, err := ReadXLSXTable(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"provider_id", "license_number"}, table.Columns)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "A55555", table.Rows[0].Lookup("license_number"))
}

func TestReadXLSXTableSheetSelection(t *testing.T) {
	path := writeTestXLSX(t, "Roster", [][]string{
		{"provider_id"},
		{"P001"},
	})

	_, err := ReadXLSXTable(path, XLSXOptions{SheetName: "Missing"})
	assert.ErrorContains(t, err, `sheet "Missing" not found`)

	_, err = ReadXLSXTable(path, XLSXOptions{SheetIndex: 5})
	assert.ErrorContains(t, err, "out of range")

	table, err := ReadXLSXTable(path, XLSXOptions{SheetName: "Roster"})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}
