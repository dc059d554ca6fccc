package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-health/roster-cli/internal/roster"
)

func featureTable() *roster.Table {
	t := roster.NewTable(
		roster.ColFullName, roster.ColFirstName, roster.ColLastName,
		roster.ColNPI, roster.ColPracticePhone,
		roster.ColLicenseNumber, roster.ColLicenseState,
		roster.ColPracticeAddress1, roster.ColPracticeCity,
		roster.ColPracticeState, roster.ColPracticeZip,
	)
	t.Append(roster.Row{
		roster.ColFullName:         "Dr. Sarah Johnson",
		roster.ColFirstName:        "Sarah",
		roster.ColLastName:         "Johnson",
		roster.ColNPI:              " 1234567893 ",
		roster.ColPracticePhone:    "(555) 123-4567",
		roster.ColLicenseNumber:    "A12345",
		roster.ColLicenseState:     "ca",
		roster.ColPracticeAddress1: "123 Main St",
		roster.ColPracticeCity:     "Sacramento",
		roster.ColPracticeState:    "CA",
		roster.ColPracticeZip:      "95814-1234",
	})
	t.Append(roster.Row{})
	return t
}

func TestExtractFeatures(t *testing.T) {
	feats := ExtractFeatures(featureTable(), 2)
	require.Len(t, feats, 2)

	f := feats[0]
	assert.Equal(t, "dr sarah johnson", f.CleanName)
	assert.Equal(t, "sarah", f.First)
	assert.Equal(t, "johnson", f.Last)
	assert.Equal(t, "5551234567", f.Phone)
	assert.Equal(t, "1234567893", f.NPI)
	assert.Equal(t, "CA|A12345", f.License)
	assert.True(t, f.HasLicense())
	assert.Equal(t, "sacramento|ca", f.CityState)
	assert.Equal(t, "johns_sa", f.NameKey)
	assert.Equal(t, "958", f.Zip3)
	assert.True(t, f.NameGrams["dr"])
	assert.True(t, f.AddrGrams["ma"])

	empty := feats[1]
	assert.Equal(t, "", empty.CleanName)
	assert.Equal(t, "", empty.Phone)
	assert.Equal(t, "|", empty.License)
	assert.False(t, empty.HasLicense())
	assert.Equal(t, "", empty.NameKey, "no name parts should leave the key unset")
	assert.Equal(t, "", empty.Zip3)
	assert.Empty(t, empty.NameGrams)
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	tbl := featureTable()
	assert.Equal(t, ExtractFeatures(tbl, 2), ExtractFeatures(tbl, 2))
}

func TestNameKeyShortParts(t *testing.T) {
	tbl := roster.NewTable(roster.ColFirstName, roster.ColLastName)
	tbl.Append(roster.Row{roster.ColFirstName: "J", roster.ColLastName: "Li"})
	feats := ExtractFeatures(tbl, 2)
	assert.Equal(t, "li_j", feats[0].NameKey)
}
