package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-health/roster-cli/internal/roster"
)

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func mergeRoster() *roster.Table {
	t := roster.NewTable(
		roster.ColProviderID, roster.ColNPI,
		roster.ColLicenseNumber, roster.ColLicenseState, roster.ColLicenseExp,
		roster.ColPracticeCity,
	)
	t.Append(roster.Row{
		roster.ColProviderID:    "P001",
		roster.ColNPI:           "1234567893",
		roster.ColLicenseNumber: "a-12345",
		roster.ColLicenseState:  "CA",
		roster.ColPracticeCity:  "Sacramento",
	})
	t.Append(roster.Row{
		roster.ColProviderID:    "P002",
		roster.ColLicenseNumber: "N 777",
		roster.ColLicenseState:  "NY",
		roster.ColLicenseExp:    "06/30/2025",
	})
	t.Append(roster.Row{
		roster.ColProviderID:   "P003",
		roster.ColLicenseState: "TX",
	})
	return t
}

func TestNormalizeLicense(t *testing.T) {
	assert.Equal(t, "A12345", NormalizeLicense(" a-123 45 "))
	assert.Equal(t, "", NormalizeLicense("  "))
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2025-06-30", normalizeDate("2025-06-30"))
	assert.Equal(t, "2025-06-30", normalizeDate("06/30/2025"))
	assert.Equal(t, "2025-06-30", normalizeDate("2025/06/30"))
	assert.Equal(t, "", normalizeDate("soon"))
	assert.Equal(t, "", normalizeDate(""))
}

func TestMergeWithoutSourceFiles(t *testing.T) {
	m := NewMerger(t.TempDir())
	in := mergeRoster()

	out, err := m.Merge(in)
	require.NoError(t, err)

	assert.Equal(t, in.Len(), out.Len())
	require.True(t, out.HasColumn(roster.ColNPIPresent))
	for _, row := range out.Rows {
		assert.Equal(t, "false", row.Lookup(roster.ColNPIPresent))
	}

	// The input table is untouched.
	assert.False(t, in.HasColumn(roster.ColNPIPresent))
}

func TestMergeJoinsCaliforniaOnLicense(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "ca.csv",
		"license_number,status,practice_city\nA12345,Expired,Oakland\nZ99999,Active,Fresno\n")

	out, err := NewMerger(dir).Merge(mergeRoster())
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	joined := out.Rows[0]
	assert.Equal(t, "P001", joined.Lookup(roster.ColProviderID))
	assert.Equal(t, "Expired", joined.Lookup(roster.ColStatus))
	// Roster values win over source values on column collisions.
	assert.Equal(t, "Sacramento", joined.Lookup(roster.ColPracticeCity))

	// Non-CA records pass through with the board columns left missing.
	assert.Equal(t, "", out.Rows[1].Lookup(roster.ColStatus))
}

func TestMergeJoinsNewYorkOnLicenseAndExpiration(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "ny.csv",
		"license_number,expiration_date,status\nN777,2025-06-30,Active\nN777,2030-01-01,Suspended\n")

	out, err := NewMerger(dir).Merge(mergeRoster())
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	// The compound key matches only the row whose expiration agrees; the
	// differently formatted dates normalize to the same day.
	var nyRow roster.Row
	for _, row := range out.Rows {
		if row.Lookup(roster.ColProviderID) == "P002" {
			nyRow = row
		}
	}
	require.NotNil(t, nyRow)
	assert.Equal(t, "Active", nyRow.Lookup(roster.ColStatus))
}

func TestMergeFansOutOnMultipleMatches(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "ca.csv",
		"license_number,status\nA12345,Active\nA12345,Expired\n")

	out, err := NewMerger(dir).Merge(mergeRoster())
	require.NoError(t, err)

	// P001 fans out into one row per board match; the other two pass through.
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "P001", out.Rows[0].Lookup(roster.ColProviderID))
	assert.Equal(t, "P001", out.Rows[1].Lookup(roster.ColProviderID))
	assert.Equal(t, "Active", out.Rows[0].Lookup(roster.ColStatus))
	assert.Equal(t, "Expired", out.Rows[1].Lookup(roster.ColStatus))
}

func TestMergeJoinsRegistryOnNPI(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "npi.csv",
		"npi,taxonomy_code\n1234567893,207Q00000X\n")

	out, err := NewMerger(dir).Merge(mergeRoster())
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	assert.Equal(t, "207Q00000X", out.Rows[0].Lookup("taxonomy_code"))
	assert.Equal(t, "", out.Rows[1].Lookup("taxonomy_code"))
}

func TestMergeFlagsNPIPresence(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "mock_npi.csv", "npi\n1234567893\n")

	out, err := NewMerger(dir).Merge(mergeRoster())
	require.NoError(t, err)

	assert.Equal(t, "true", out.Rows[0].Lookup(roster.ColNPIPresent))
	assert.Equal(t, "false", out.Rows[1].Lookup(roster.ColNPIPresent))
	assert.Equal(t, "false", out.Rows[2].Lookup(roster.ColNPIPresent))
}

func TestMergeUnreadableSourceFails(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "ca.csv", "license_number,status\n\"unterminated\n")

	_, err := NewMerger(dir).Merge(mergeRoster())
	assert.Error(t, err)
}
