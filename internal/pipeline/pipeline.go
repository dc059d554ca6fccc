package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/roster"
)

// Artifacts bundles the four outputs of one pipeline run.
type Artifacts struct {
	Duplicates []match.DuplicatePair
	Clusters   []match.Cluster
	Summary    *Summary
	Merged     *roster.Table
}

// Pipeline sequences deduplication → standardization → external merge →
// outlier filtering → quality assessment → summary. This is the sole entry
// point collaborators invoke; it is a call-and-return batch function with no
// partial-progress state.
type Pipeline struct {
	detector *match.Detector
	merger   *Merger
	outliers OutlierConfig
}

// New creates a Pipeline with the given matching, merge, and outlier
// configuration.
func New(matchCfg match.Config, merger *Merger, outliers OutlierConfig) *Pipeline {
	return &Pipeline{
		detector: match.NewDetector(matchCfg),
		merger:   merger,
		outliers: outliers,
	}
}

// Run processes a roster end to end. Each invocation owns its state; two
// concurrent runs in one process never share a score cache or union-find
// table.
func (p *Pipeline) Run(ctx context.Context, input *roster.Table) (*Artifacts, error) {
	log := zap.L().With(zap.Int("records", input.Len()))
	start := time.Now()
	log.Info("pipeline: starting roster run")

	detection, err := p.detector.Detect(ctx, input)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: detect duplicates")
	}

	standardized := Standardize(detection.Deduped)

	merged, err := p.merger.Merge(standardized)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: merge external rosters")
	}

	outliersRemoved := 0
	if p.outliers.Enabled {
		merged, outliersRemoved = FilterOutliers(merged, p.outliers)
	}

	// Quality is assessed over the original input, not the merged result:
	// the score describes the roster as submitted.
	quality := AssessQuality(input, detection.Counters.UniqueInvolved)
	summary := BuildSummary(detection.Counters, outliersRemoved, merged, quality)

	log.Info("pipeline: roster run complete",
		zap.Int("duplicate_pairs", summary.DuplicatePairs),
		zap.Int("clusters", summary.Clusters),
		zap.Int("outliers_removed", summary.OutliersRemoved),
		zap.Int("final_records", summary.FinalRecords),
		zap.Float64("quality_score", summary.DataQualityScore),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Artifacts{
		Duplicates: detection.Duplicates,
		Clusters:   detection.Clusters,
		Summary:    summary,
		Merged:     merged,
	}, nil
}
