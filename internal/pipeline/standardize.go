// Package pipeline sequences deduplication, standardization, external roster
// merging, outlier filtering, quality assessment, and summary assembly over a
// provider roster.
package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/roster"
)

// titleCols is the fixed set of free-text columns normalized to title case.
var titleCols = []string{
	roster.ColFirstName,
	roster.ColLastName,
	roster.ColPracticeCity,
	roster.ColMailingCity,
	roster.ColPracticeAddress1,
	roster.ColPracticeAddress2,
	roster.ColMailingAddress1,
	roster.ColMailingAddress2,
	roster.ColMedicalSchool,
	roster.ColResidency,
}

// NormalizePhone reduces a phone value to its digits. No digits → "".
func NormalizePhone(val string) string {
	return match.ExtractDigits(val)
}

// NormalizeZip canonicalizes a ZIP value: digits only, zero-padded to 5 when
// shorter, NNNNN-NNNN when exactly 9 digits, otherwise left as the digit
// string. No digits → "".
func NormalizeZip(val string) string {
	digits := match.ExtractDigits(strings.TrimSpace(val))
	switch {
	case digits == "":
		return ""
	case len(digits) < 5:
		return strings.Repeat("0", 5-len(digits)) + digits
	case len(digits) == 9:
		return digits[:5] + "-" + digits[5:]
	default:
		return digits
	}
}

// TitleCase trims and title-cases a value. Used by both the standardizer and
// the consistency dimension of the quality assessor so the two always agree
// on what "canonical casing" means.
func TitleCase(val string) string {
	return cases.Title(language.English).String(strings.TrimSpace(val))
}

// Standardize canonicalizes formatting across the table and returns a new
// table; the input is not mutated. The raw phone column is preserved and the
// digits-only form lands in practice_phone_standardized. Missing values stay
// missing.
func Standardize(t *roster.Table) *roster.Table {
	out := t.Clone()

	if out.HasColumn(roster.ColPracticePhone) {
		out.AddColumn(roster.ColPhoneStandard)
		for _, row := range out.Rows {
			if raw, ok := row.Get(roster.ColPracticePhone); ok {
				if digits := NormalizePhone(raw); digits != "" {
					row.Set(roster.ColPhoneStandard, digits)
				}
			}
		}
	}

	if out.HasColumn(roster.ColMailingZip) {
		for _, row := range out.Rows {
			if raw, ok := row.Get(roster.ColMailingZip); ok {
				row.Set(roster.ColMailingZip, NormalizeZip(raw))
			}
		}
	}

	for _, col := range titleCols {
		if !out.HasColumn(col) {
			continue
		}
		for _, row := range out.Rows {
			if raw, ok := row.Get(col); ok {
				row.Set(col, TitleCase(raw))
			}
		}
	}

	rebuildFullNames(out)
	return out
}

// rebuildFullNames derives "First Last" (plus ", Credential" when present)
// from the name parts. Either part missing → the display name is missing, not
// partially built.
func rebuildFullNames(t *roster.Table) {
	if !t.HasColumn(roster.ColFirstName) || !t.HasColumn(roster.ColLastName) {
		return
	}
	t.AddColumn(roster.ColFullName)
	for _, row := range t.Rows {
		first, okFirst := row.Get(roster.ColFirstName)
		last, okLast := row.Get(roster.ColLastName)
		if !okFirst || !okLast {
			row.Set(roster.ColFullName, "")
			continue
		}
		full := first + " " + last
		if cred, ok := row.Get(roster.ColCredential); ok {
			full += ", " + strings.TrimSpace(cred)
		}
		row.Set(roster.ColFullName, full)
	}
}
