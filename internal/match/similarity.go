package match

import "strings"

// Jaccard returns |A∩B| / |A∪B|. Two empty sets are identical (1.0); exactly
// one empty set shares nothing (0.0).
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for k := range small {
		if large[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TokenOverlap normalizes both strings, splits them into token sets, and
// returns the Jaccard similarity of the sets. Two empty strings → 1.0, one
// empty → 0.0.
func TokenOverlap(a, b string) float64 {
	ca, cb := NormalizeText(a), NormalizeText(b)
	if ca == "" && cb == "" {
		return 1.0
	}
	if ca == "" || cb == "" {
		return 0.0
	}
	return Jaccard(tokenSet(ca), tokenSet(cb))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// PhoneMatch compares two phone numbers by their digits. Exact digit strings
// match outright. Otherwise, when both carry at least 7 digits, the last L
// digits are compared with L = clamp(min(len(a), len(b)), 7, 10). Anything
// shorter cannot match.
func PhoneMatch(p1, p2 string) float64 {
	d1, d2 := ExtractDigits(p1), ExtractDigits(p2)
	if d1 == "" || d2 == "" {
		return 0.0
	}
	if d1 == d2 {
		return 1.0
	}
	if len(d1) >= 7 && len(d2) >= 7 {
		l := min(len(d1), len(d2))
		if l > 10 {
			l = 10
		}
		if d1[len(d1)-l:] == d2[len(d2)-l:] {
			return 1.0
		}
	}
	return 0.0
}
