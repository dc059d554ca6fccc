package roster

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV parses a header-first CSV stream into a Table. Short rows leave the
// trailing cells missing; long rows drop the overflow. Cell whitespace is
// preserved except for the header, which is trimmed.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "roster: read csv header")
	}

	t := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "roster: read csv row")
		}
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) && record[i] != "" {
				row[col] = record[i]
			}
		}
		t.Append(row)
	}

	return t, nil
}

// ReadCSVFile parses a CSV file into a Table.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the table as CSV with a header row. Missing cells become
// empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return eris.Wrap(err, "roster: write csv header")
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row.Lookup(col)
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "roster: write csv row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "roster: flush csv")
}

// WriteCSVFile writes the table to a CSV file, creating or truncating it.
func WriteCSVFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "roster: create %s", path)
	}
	defer f.Close()
	return WriteCSV(f, t)
}
