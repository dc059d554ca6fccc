package pipeline

import (
	"math"
	"strings"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/roster"
)

// expiredStatuses is the license-status vocabulary counted as out of
// compliance.
var expiredStatuses = map[string]bool{
	"Expired":   true,
	"Suspended": true,
	"Revoked":   true,
	"Inactive":  true,
}

// Summary is the flat pipeline report: deduplication counters, merge-derived
// compliance aggregates, and the embedded quality score.
type Summary struct {
	TotalRecords       int     `json:"total_records" yaml:"total_records"`
	CandidatePairs     int     `json:"candidate_pairs" yaml:"candidate_pairs"`
	DuplicatePairs     int     `json:"duplicate_pairs" yaml:"duplicate_pairs"`
	UniqueInvolved     int     `json:"unique_involved" yaml:"unique_involved"`
	Clusters           int     `json:"clusters" yaml:"clusters"`
	OutliersRemoved    int     `json:"outliers_removed" yaml:"outliers_removed"`
	FinalRecords       int     `json:"final_records" yaml:"final_records"`
	ExpiredLicenses    int     `json:"expired_licenses" yaml:"expired_licenses"`
	MissingNPI         int     `json:"missing_npi" yaml:"missing_npi"`
	ProvidersAvailable int     `json:"providers_available" yaml:"providers_available"`
	CAState            int     `json:"ca_state" yaml:"ca_state"`
	NYState            int     `json:"ny_state" yaml:"ny_state"`
	FormattingIssues   int     `json:"formatting_issues" yaml:"formatting_issues"`
	ComplianceRate     float64 `json:"compliance_rate" yaml:"compliance_rate"`
	DataQualityScore   float64 `json:"data_quality_score" yaml:"data_quality_score"`
	QualityGrade       string  `json:"quality_grade" yaml:"quality_grade"`
}

// BuildSummary combines the matcher's counters, the merged dataset's
// compliance aggregates, and the quality report into one flat report. Absent
// source columns contribute zero, never an error.
func BuildSummary(counters match.Counters, outliersRemoved int, merged *roster.Table, quality *QualityReport) *Summary {
	s := &Summary{
		TotalRecords:     counters.TotalRecords,
		CandidatePairs:   counters.CandidatePairs,
		DuplicatePairs:   counters.DuplicatePairs,
		UniqueInvolved:   counters.UniqueInvolved,
		Clusters:         counters.Clusters,
		OutliersRemoved:  outliersRemoved,
		FinalRecords:     merged.Len(),
		FormattingIssues: quality.FormatErrors,
		DataQualityScore: round2(quality.Overall),
		QualityGrade:     quality.Grade(),
	}

	s.ExpiredLicenses = merged.CountWhere(roster.ColStatus, func(v string) bool {
		return expiredStatuses[v]
	})
	s.MissingNPI = merged.CountWhere(roster.ColNPIPresent, func(v string) bool {
		return !strings.EqualFold(v, "true")
	})
	s.ProvidersAvailable = merged.CountWhere(roster.ColAcceptingNew, func(v string) bool {
		return v == "Yes"
	})
	s.CAState = merged.CountWhere(roster.ColPracticeState, func(v string) bool { return v == "CA" })
	s.NYState = merged.CountWhere(roster.ColPracticeState, func(v string) bool { return v == "NY" })

	if s.TotalRecords > 0 {
		s.ComplianceRate = round2(float64(s.ExpiredLicenses+s.MissingNPI) / float64(s.TotalRecords) * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
