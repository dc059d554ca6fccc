package roster

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "provider_id, full_name ,npi\n" +
		"P001,Sarah Johnson,1234567893\n" +
		"P002,,9876543210\n" +
		"P003,Michael Chen\n" +
		"P004,Extra Cell,1111111111,overflow\n"

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"provider_id", "full_name", "npi"}, tbl.Columns)
	require.Equal(t, 4, tbl.Len())

	// Blank cells and short rows leave the cell missing.
	_, ok := tbl.Rows[1].Get(ColFullName)
	assert.False(t, ok)
	_, ok = tbl.Rows[2].Get(ColNPI)
	assert.False(t, ok)

	// Overflow cells on long rows are dropped.
	assert.Len(t, tbl.Rows[3], 3)
}

func TestReadCSVEmptyInput(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
	assert.Empty(t, tbl.Columns)
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("npi\n\"unterminated\n"))
	assert.Error(t, err)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := NewTable(ColProviderID, ColFullName)
	tbl.Append(Row{ColProviderID: "P001", ColFullName: "Sarah Johnson"})
	tbl.Append(Row{ColProviderID: "P002"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, back.Columns)
	require.Equal(t, 2, back.Len())
	assert.Equal(t, "Sarah Johnson", back.Rows[0].Lookup(ColFullName))
	_, ok := back.Rows[1].Get(ColFullName)
	assert.False(t, ok)
}

func TestCSVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")

	tbl := NewTable(ColProviderID)
	tbl.Append(Row{ColProviderID: "P001"})
	require.NoError(t, WriteCSVFile(path, tbl))

	back, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, back.Len())

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
