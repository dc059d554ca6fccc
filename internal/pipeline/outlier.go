package pipeline

import (
	"strconv"
	"strings"

	"github.com/medley-health/roster-cli/internal/roster"
)

// OutlierConfig bounds the plausible range for years in practice.
type OutlierConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	Min     float64 `yaml:"min" mapstructure:"min"`
	Max     float64 `yaml:"max" mapstructure:"max"`
}

// DefaultOutlierConfig returns the calibrated defaults.
func DefaultOutlierConfig() OutlierConfig {
	return OutlierConfig{Enabled: true, Min: 0, Max: 60}
}

// FilterOutliers drops records whose years_in_practice parses to a value
// outside [min, max]. Records missing the value, records whose value does not
// parse, and every record when the column is absent pass through unfiltered.
// Returns the filtered table and the count removed.
func FilterOutliers(t *roster.Table, cfg OutlierConfig) (*roster.Table, int) {
	if !t.HasColumn(roster.ColYearsInPractice) {
		return t.Clone(), 0
	}
	keep := make([]int, 0, t.Len())
	removed := 0
	for i, row := range t.Rows {
		raw, ok := row.Get(roster.ColYearsInPractice)
		if !ok {
			keep = append(keep, i)
			continue
		}
		years, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			keep = append(keep, i)
			continue
		}
		if years < cfg.Min || years > cfg.Max {
			removed++
			continue
		}
		keep = append(keep, i)
	}
	return t.Select(keep), removed
}
