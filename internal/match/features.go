package match

import (
	"regexp"
	"strings"

	"github.com/medley-health/roster-cli/internal/roster"
)

var zip3Pattern = regexp.MustCompile(`\d{3}`)

// Features holds the derived matching features for one record. Features are a
// pure function of the record: recomputing them from the same row always
// yields the same values.
type Features struct {
	CleanName string
	First     string
	Last      string
	NameGrams map[string]bool
	AddrGrams map[string]bool
	Phone     string // digits only
	NPI       string // trimmed
	License   string // "STATE|number" composite; "|" when both parts empty
	CityState string // "city|state", normalized
	NameKey   string // first 5 last-name chars + "_" + first 2 first-name chars
	Zip3      string // first 3-digit run of the practice ZIP
}

// HasLicense reports whether the license composite carries real content.
func (f Features) HasLicense() bool {
	return f.License != "" && f.License != "|"
}

// ExtractFeatures computes the feature set for every row of the table.
// ngramSize controls the n-gram sets used for name and address similarity.
func ExtractFeatures(t *roster.Table, ngramSize int) []Features {
	feats := make([]Features, t.Len())
	for i, row := range t.Rows {
		f := Features{
			CleanName: NormalizeText(row.Lookup(roster.ColFullName)),
			First:     NormalizeText(row.Lookup(roster.ColFirstName)),
			Last:      NormalizeText(row.Lookup(roster.ColLastName)),
			Phone:     ExtractDigits(row.Lookup(roster.ColPracticePhone)),
			NPI:       strings.TrimSpace(row.Lookup(roster.ColNPI)),
		}
		f.NameGrams = NGrams(f.CleanName, ngramSize)

		addr := row.Lookup(roster.ColPracticeAddress1) + " " +
			row.Lookup(roster.ColPracticeCity) + " " +
			row.Lookup(roster.ColPracticeState)
		f.AddrGrams = NGrams(NormalizeText(addr), ngramSize)

		f.License = strings.ToUpper(row.Lookup(roster.ColLicenseState)) + "|" +
			row.Lookup(roster.ColLicenseNumber)

		f.CityState = NormalizeText(row.Lookup(roster.ColPracticeCity)) + "|" +
			NormalizeText(row.Lookup(roster.ColPracticeState))

		key := runePrefix(f.Last, 5) + "_" + runePrefix(f.First, 2)
		if key != "_" {
			f.NameKey = key
		}

		f.Zip3 = zip3Pattern.FindString(row.Lookup(roster.ColPracticeZip))

		feats[i] = f
	}
	return feats
}
