package match

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medley-health/roster-cli/internal/roster"
)

// Config holds the duplicate-detection knobs.
type Config struct {
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"`
	NGramSize     int     `yaml:"ngram_size" mapstructure:"ngram_size"`
	Parallel      bool    `yaml:"parallel" mapstructure:"parallel"`
	MinBlock      int     `yaml:"min_block" mapstructure:"min_block"`
	MaxBlock      int     `yaml:"max_block" mapstructure:"max_block"`
	SortBlockSize int     `yaml:"sort_block_size" mapstructure:"sort_block_size"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:     0.72,
		NGramSize:     2,
		Parallel:      false,
		MinBlock:      1,
		MaxBlock:      500,
		SortBlockSize: 40,
	}
}

// parallelFloor is the candidate-pair count above which scoring moves to the
// worker pool when parallel execution is enabled.
const parallelFloor = 200

// DuplicatePair is an accepted pairwise score enriched with the two records'
// provider IDs and display names. This is the persisted duplicates artifact.
type DuplicatePair struct {
	I1           int     `json:"i1"`
	I2           int     `json:"i2"`
	ProviderID1  string  `json:"provider_id_1"`
	ProviderID2  string  `json:"provider_id_2"`
	Name1        string  `json:"name_1"`
	Name2        string  `json:"name_2"`
	Score        float64 `json:"score"`
	NameScore    float64 `json:"name_score"`
	NPIMatch     bool    `json:"npi_match"`
	AddrScore    float64 `json:"addr_score"`
	PhoneMatch   bool    `json:"phone_match"`
	LicenseScore float64 `json:"license_score"`
}

// Counters aggregates the matching stage's pipeline counters.
type Counters struct {
	TotalRecords   int `json:"total_records"`
	CandidatePairs int `json:"candidate_pairs"`
	DuplicatePairs int `json:"duplicate_pairs"`
	UniqueInvolved int `json:"unique_involved"`
	Clusters       int `json:"clusters"`
}

// Result is the output of one detection run.
type Result struct {
	Duplicates []DuplicatePair
	Clusters   []Cluster
	Deduped    *roster.Table
	Counters   Counters
}

// Detector runs blocking, pairwise scoring, and clustering over a roster.
// Each Detect call builds its own scorer and union-find state, so concurrent
// calls on one Detector are independent.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect finds duplicate records in the table and reduces it to one row per
// real entity. Zero accepted pairs is a valid outcome: the input passes
// through as the deduplicated set.
func (d *Detector) Detect(ctx context.Context, t *roster.Table) (*Result, error) {
	log := zap.L().With(zap.Int("records", t.Len()))

	feats := ExtractFeatures(t, d.cfg.NGramSize)
	blocks := BuildBlocks(feats, d.cfg.MinBlock, d.cfg.MaxBlock, d.cfg.SortBlockSize)
	pairs := CandidatePairs(blocks)

	log.Info("match: candidate generation complete",
		zap.Int("blocks", len(blocks)),
		zap.Int("candidate_pairs", len(pairs)),
	)

	accepted, err := d.scorePairs(ctx, feats, pairs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Counters: Counters{
			TotalRecords:   t.Len(),
			CandidatePairs: len(pairs),
			DuplicatePairs: len(accepted),
		},
	}

	if len(accepted) == 0 {
		result.Deduped = t.Clone()
		log.Info("match: no duplicates found")
		return result, nil
	}

	involved := make(map[int]bool)
	for _, p := range accepted {
		involved[p.Pair.I] = true
		involved[p.Pair.J] = true
		result.Duplicates = append(result.Duplicates, d.enrich(p, t))
	}
	result.Counters.UniqueInvolved = len(involved)

	result.Clusters = BuildClusters(accepted, feats, t)
	result.Counters.Clusters = len(result.Clusters)

	// Survivors: one representative per cluster plus every record untouched
	// by an accepted pair, in original row order.
	keep := make([]int, 0, t.Len())
	for _, c := range result.Clusters {
		keep = append(keep, c.Representative)
	}
	for i := 0; i < t.Len(); i++ {
		if !involved[i] {
			keep = append(keep, i)
		}
	}
	sort.Ints(keep)
	result.Deduped = t.Select(keep)

	log.Info("match: deduplication complete",
		zap.Int("duplicate_pairs", len(accepted)),
		zap.Int("clusters", len(result.Clusters)),
		zap.Int("deduped_records", result.Deduped.Len()),
	)
	return result, nil
}

// scorePairs evaluates every candidate pair and keeps those meeting the
// threshold. The pooled and sequential paths yield the same accepted set and
// the same per-pair values: scores depend only on the two feature snapshots,
// and the result is re-sorted by canonical pair key after collection.
func (d *Detector) scorePairs(ctx context.Context, feats []Features, pairs []Pair) ([]PairScore, error) {
	scorer := NewScorer(feats)

	if !d.cfg.Parallel || len(pairs) <= parallelFloor {
		var accepted []PairScore
		for _, p := range pairs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if score := scorer.Score(p.I, p.J); score.Total >= d.cfg.Threshold {
				accepted = append(accepted, score)
			}
		}
		return accepted, nil
	}

	workers := max(1, min(runtime.NumCPU()-1, 8))
	zap.L().Debug("match: scoring on worker pool",
		zap.Int("workers", workers),
		zap.Int("pairs", len(pairs)),
	)

	var mu sync.Mutex
	var accepted []PairScore
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if score := scorer.Score(p.I, p.J); score.Total >= d.cfg.Threshold {
				mu.Lock()
				accepted = append(accepted, score)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Collection order follows task completion; restore canonical order.
	sort.Slice(accepted, func(a, b int) bool {
		if accepted[a].Pair.I != accepted[b].Pair.I {
			return accepted[a].Pair.I < accepted[b].Pair.I
		}
		return accepted[a].Pair.J < accepted[b].Pair.J
	})
	return accepted, nil
}

func (d *Detector) enrich(p PairScore, t *roster.Table) DuplicatePair {
	r1, r2 := t.Rows[p.Pair.I], t.Rows[p.Pair.J]
	return DuplicatePair{
		I1:           p.Pair.I,
		I2:           p.Pair.J,
		ProviderID1:  r1.Lookup(roster.ColProviderID),
		ProviderID2:  r2.Lookup(roster.ColProviderID),
		Name1:        r1.Lookup(roster.ColFullName),
		Name2:        r2.Lookup(roster.ColFullName),
		Score:        p.Total,
		NameScore:    p.Name,
		NPIMatch:     p.NPIMatch,
		AddrScore:    p.Addr,
		PhoneMatch:   p.PhoneMatch,
		LicenseScore: p.License,
	}
}
