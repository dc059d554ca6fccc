// Package match implements record linkage for provider rosters: feature
// extraction, key blocking, weighted pairwise scoring, and union-find
// clustering of accepted duplicate pairs.
package match

import (
	"strings"
	"unicode"
)

// NormalizeText lowercases s, replaces every character that is not a letter,
// digit, underscore, or whitespace with a space, and collapses runs of
// whitespace. Empty input normalizes to "".
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ExtractDigits strips everything but ASCII digits.
func ExtractDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NGrams normalizes s, joins tokens with underscores, and returns the set of
// all length-n substrings. A normalized string shorter than n yields a
// single-element set holding the whole string; empty input yields an empty
// set.
func NGrams(s string, n int) map[string]bool {
	clean := NormalizeText(s)
	if clean == "" {
		return map[string]bool{}
	}
	joined := []rune(strings.ReplaceAll(clean, " ", "_"))
	if len(joined) < n {
		return map[string]bool{string(joined): true}
	}
	grams := make(map[string]bool, len(joined)-n+1)
	for i := 0; i+n <= len(joined); i++ {
		grams[string(joined[i:i+n])] = true
	}
	return grams
}

// runePrefix returns the first n runes of s (fewer if s is shorter).
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// runeSuffix returns the last n runes of s (fewer if s is shorter).
func runeSuffix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
