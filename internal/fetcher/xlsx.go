package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/medley-health/roster-cli/internal/roster"
)

// XLSXOptions configures spreadsheet parsing.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // banner rows above the header
}

// ReadXLSXTable parses a spreadsheet into a roster table. The first row after
// SkipRows is the header; blank cells become missing values, matching the CSV
// reader's convention.
func ReadXLSXTable(path string, opts XLSXOptions) (*roster.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var table *roster.Table
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		cells := rowToStrings(row)
		if table == nil {
			for j := range cells {
				cells[j] = strings.TrimSpace(cells[j])
			}
			table = roster.NewTable(cells...)
			continue
		}
		r := make(roster.Row, len(table.Columns))
		for j, col := range table.Columns {
			if j < len(cells) && cells[j] != "" {
				r[col] = cells[j]
			}
		}
		table.Append(r)
	}
	if table == nil {
		return nil, eris.Errorf("xlsx: no header row in %s", path)
	}
	return table, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
