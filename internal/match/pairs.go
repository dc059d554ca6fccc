package match

import "sort"

// Pair is an unordered pair of record indices canonicalized as I < J.
type Pair struct {
	I int
	J int
}

// NewPair canonicalizes (a, b) into a Pair with I < J.
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{I: a, J: b}
}

// CandidatePairs expands every retained block with at least two members into
// its unordered index pairs, deduplicated across blocks. The result is sorted
// by (I, J) so downstream scoring is deterministic regardless of map order.
func CandidatePairs(blocks map[string][]int) []Pair {
	seen := make(map[Pair]bool)
	for _, members := range blocks {
		if len(members) < 2 {
			continue
		}
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				seen[NewPair(members[a], members[b])] = true
			}
		}
	}
	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].I != pairs[b].I {
			return pairs[a].I < pairs[b].I
		}
		return pairs[a].J < pairs[b].J
	})
	return pairs
}
