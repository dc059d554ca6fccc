package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/medley-health/roster-cli/internal/roster"
)

// criticalFields is the fixed field list the completeness dimension inspects.
var criticalFields = []string{
	roster.ColFirstName,
	roster.ColLastName,
	roster.ColNPI,
	roster.ColLicenseNumber,
	roster.ColLicenseState,
	roster.ColCredential,
	roster.ColPracticePhone,
	roster.ColYearsInPractice,
	roster.ColPracticeCity,
	roster.ColPracticeAddress1,
}

// acceptedPatientValues is the vocabulary the unknown-values dimension
// accepts for the accepting_new_patients field.
var acceptedPatientValues = map[string]bool{
	"yes": true, "no": true, "y": true, "n": true,
	"true": true, "false": true,
}

var (
	npiPattern = regexp.MustCompile(`^\d{10}$`)
	zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// QualityReport holds the six 0-100 dimension scores, their unweighted mean,
// and the raw format-error count exposed for downstream reporting. A
// dimension with no applicable cells scores 100: no data to fail is not
// penalized.
type QualityReport struct {
	Completeness  float64 `json:"completeness" yaml:"completeness"`
	Validity      float64 `json:"validity" yaml:"validity"`
	Consistency   float64 `json:"consistency" yaml:"consistency"`
	Uniqueness    float64 `json:"uniqueness" yaml:"uniqueness"`
	Accuracy      float64 `json:"accuracy" yaml:"accuracy"`
	UnknownValues float64 `json:"unknown_values" yaml:"unknown_values"`
	Overall       float64 `json:"overall" yaml:"overall"`
	FormatErrors  int     `json:"format_errors" yaml:"format_errors"`
}

// Grade maps the overall score to a letter grade.
func (r *QualityReport) Grade() string {
	switch {
	case r.Overall >= 90:
		return "A (Excellent)"
	case r.Overall >= 80:
		return "B (Good)"
	case r.Overall >= 70:
		return "C (Fair)"
	case r.Overall >= 60:
		return "D (Poor)"
	default:
		return "F (Critical Issues)"
	}
}

// AssessQuality scores the original (pre-merge) roster across six independent
// dimensions. uniqueInvolved is the matcher's count of records touched by at
// least one accepted duplicate pair.
func AssessQuality(t *roster.Table, uniqueInvolved int) *QualityReport {
	report := &QualityReport{
		Completeness: assessCompleteness(t),
		Consistency:  assessConsistency(t),
		Uniqueness:   assessUniqueness(t, uniqueInvolved),
		Accuracy:     assessAccuracy(t),
	}
	report.Validity, report.FormatErrors = assessValidity(t)
	report.UnknownValues = assessUnknownValues(t)

	report.Overall = (report.Completeness + report.Validity + report.Consistency +
		report.Uniqueness + report.Accuracy + report.UnknownValues) / 6
	return report
}

// issueScore converts an issue count over applicable cells into a 0-100
// score, floored at 0. No applicable cells → 100.
func issueScore(issues, applicable int) float64 {
	if applicable == 0 {
		return 100
	}
	return math.Max(0, 100-float64(issues)/float64(applicable)*100)
}

func assessCompleteness(t *roster.Table) float64 {
	missing, applicable := 0, 0
	for _, field := range criticalFields {
		if !t.HasColumn(field) {
			continue
		}
		applicable += t.Len()
		for _, row := range t.Rows {
			if _, ok := row.Get(field); !ok {
				missing++
			}
		}
	}
	return issueScore(missing, applicable)
}

func assessValidity(t *roster.Table) (float64, int) {
	errCount, applicable := 0, 0

	if t.HasColumn(roster.ColNPI) {
		for _, row := range t.Rows {
			if raw, ok := row.Get(roster.ColNPI); ok {
				applicable++
				if !npiPattern.MatchString(strings.TrimSpace(raw)) {
					errCount++
				}
			}
		}
	}

	if t.HasColumn(roster.ColPracticePhone) {
		for _, row := range t.Rows {
			if raw, ok := row.Get(roster.ColPracticePhone); ok {
				applicable++
				if len(NormalizePhone(raw)) != 10 {
					errCount++
				}
			}
		}
	}

	for _, col := range []string{roster.ColPracticeZip, roster.ColMailingZip} {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			if raw, ok := row.Get(col); ok {
				applicable++
				norm := NormalizeZip(raw)
				if norm == "" || !zipPattern.MatchString(norm) {
					errCount++
				}
			}
		}
	}

	return issueScore(errCount, applicable), errCount
}

func assessConsistency(t *roster.Table) float64 {
	inconsistent, applicable := 0, 0

	for _, col := range titleCols {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			if raw, ok := row.Get(col); ok {
				applicable++
				if strings.TrimSpace(raw) != TitleCase(raw) {
					inconsistent++
				}
			}
		}
	}

	if t.HasColumn(roster.ColPracticePhone) {
		for _, row := range t.Rows {
			if raw, ok := row.Get(roster.ColPracticePhone); ok {
				applicable++
				if raw != NormalizePhone(raw) {
					inconsistent++
				}
			}
		}
	}

	return issueScore(inconsistent, applicable)
}

func assessUniqueness(t *roster.Table, uniqueInvolved int) float64 {
	if t.Len() == 0 {
		return 100
	}

	npiDupes := 0
	if t.HasColumn(roster.ColNPI) {
		seen := make(map[string]bool)
		for _, row := range t.Rows {
			if raw, ok := row.Get(roster.ColNPI); ok {
				if seen[raw] {
					npiDupes++
				}
				seen[raw] = true
			}
		}
	}

	licenseDupes := 0
	if t.HasColumn(roster.ColLicenseNumber) && t.HasColumn(roster.ColLicenseState) {
		seen := make(map[string]bool)
		for _, row := range t.Rows {
			num, okNum := row.Get(roster.ColLicenseNumber)
			state, okState := row.Get(roster.ColLicenseState)
			if !okNum || !okState {
				continue
			}
			key := state + "|" + num
			if seen[key] {
				licenseDupes++
			}
			seen[key] = true
		}
	}

	return issueScore(uniqueInvolved+npiDupes+licenseDupes, t.Len())
}

func assessAccuracy(t *roster.Table) float64 {
	if !t.HasColumn(roster.ColYearsInPractice) {
		return 100
	}
	outliers, applicable := 0, 0
	for _, row := range t.Rows {
		raw, ok := row.Get(roster.ColYearsInPractice)
		if !ok {
			continue
		}
		applicable++
		years, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		if years < 0 || years > 60 {
			outliers++
		}
	}
	return issueScore(outliers, applicable)
}

func assessUnknownValues(t *roster.Table) float64 {
	if !t.HasColumn(roster.ColAcceptingNew) {
		return 100
	}
	unknown, applicable := 0, 0
	for _, row := range t.Rows {
		if raw, ok := row.Get(roster.ColAcceptingNew); ok {
			applicable++
			if !acceptedPatientValues[strings.ToLower(raw)] {
				unknown++
			}
		}
	}
	return issueScore(unknown, applicable)
}
