package match

import (
	"math"
	"sync"
)

// Field weights for the pairwise score. NPI equality participates in the
// cheap-rejection gate and is reported as a feature, but deliberately carries
// zero weight in the total; the threshold is calibrated with that in mind.
const (
	weightName    = 0.55
	weightNPI     = 0.0
	weightAddr    = 0.15
	weightPhone   = 0.95
	weightLicense = 0.30
)

// cheapRejectNameFloor is the token-overlap floor below which a pair is
// discarded without a full comparison, unless NPIs are both present or the
// phones already match.
const cheapRejectNameFloor = 0.2

// PairScore is the scored comparison of one candidate pair. Total is the raw
// weighted sum and is NOT normalized to [0, 1]: multiple strong signals can
// push it past 1.0, and the acceptance threshold is calibrated against that
// unclamped scale.
type PairScore struct {
	Pair       Pair
	Total      float64
	Name       float64
	NPIMatch   bool
	Addr       float64
	PhoneMatch bool
	License    float64
}

// Scorer computes memoized pairwise scores over a fixed feature slice. State
// is local to one pipeline run; concurrent runs must each use their own
// Scorer.
type Scorer struct {
	feats []Features

	mu    sync.Mutex
	cache map[Pair]PairScore
}

// NewScorer creates a Scorer over the given features.
func NewScorer(feats []Features) *Scorer {
	return &Scorer{
		feats: feats,
		cache: make(map[Pair]PairScore),
	}
}

// Score computes the weighted multi-field similarity for the pair (i, j).
// Results are cached by canonical pair key, so a pair surfacing from several
// blocks costs one evaluation.
func (s *Scorer) Score(i, j int) PairScore {
	key := NewPair(i, j)

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result := s.compute(key)

	s.mu.Lock()
	s.cache[key] = result
	s.mu.Unlock()
	return result
}

func (s *Scorer) compute(key Pair) PairScore {
	fi, fj := s.feats[key.I], s.feats[key.J]

	nameTok := TokenOverlap(fi.CleanName, fj.CleanName)
	phone := PhoneMatch(fi.Phone, fj.Phone)

	// Cheap rejection: obviously unrelated names with no NPI or phone signal
	// skip the full feature comparison.
	if nameTok < cheapRejectNameFloor && !(fi.NPI != "" && fj.NPI != "") && phone == 0 {
		return PairScore{Pair: key, Name: round4(nameTok)}
	}

	name := math.Max(nameTok, Jaccard(fi.NameGrams, fj.NameGrams))
	npi := 0.0
	if fi.NPI != "" && fj.NPI != "" && fi.NPI == fj.NPI {
		npi = 1.0
	}
	addr := Jaccard(fi.AddrGrams, fj.AddrGrams)

	license := 0.0
	switch {
	case fi.HasLicense() && fj.HasLicense() && fi.License == fj.License:
		license = 1.0
	case licenseState(fi.License) != "" && licenseState(fi.License) == licenseState(fj.License):
		license = 0.5
	}

	total := name*weightName + npi*weightNPI + addr*weightAddr + phone*weightPhone + license*weightLicense

	return PairScore{
		Pair:       key,
		Total:      round4(total),
		Name:       round4(name),
		NPIMatch:   npi == 1.0,
		Addr:       round4(addr),
		PhoneMatch: phone == 1.0,
		License:    round4(license),
	}
}

// licenseState returns the state portion of a "STATE|number" composite.
func licenseState(license string) string {
	for i := 0; i < len(license); i++ {
		if license[i] == '|' {
			return license[:i]
		}
	}
	return license
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
