package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setOf(keys ...string) map[string]bool {
	s := make(map[string]bool, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard(nil, nil), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(setOf("a"), nil), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(nil, setOf("a")), 1e-9)
	assert.InDelta(t, 1.0, Jaccard(setOf("a", "b"), setOf("a", "b")), 1e-9)
	assert.InDelta(t, 1.0/3.0, Jaccard(setOf("x", "y"), setOf("y", "z")), 1e-9)

	// Symmetric regardless of which set is larger.
	a, b := setOf("a", "b", "c", "d"), setOf("c", "d", "e")
	assert.InDelta(t, Jaccard(a, b), Jaccard(b, a), 1e-9)
}

func TestTokenOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, TokenOverlap("", ""), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap("sarah", ""), 1e-9)
	assert.InDelta(t, 1.0, TokenOverlap("Sarah Johnson", "sarah JOHNSON"), 1e-9)
	assert.InDelta(t, 1.0/3.0, TokenOverlap("Sarah Johnson", "Sara Johnson"), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap("Sarah Johnson", "Michael Chen"), 1e-9)

	// Punctuation does not defeat the comparison.
	assert.InDelta(t, 1.0, TokenOverlap("Smith, Jane", "smith jane"), 1e-9)
}

func TestPhoneMatch(t *testing.T) {
	tests := []struct {
		name string
		p1   string
		p2   string
		want float64
	}{
		{"both empty", "", "", 0},
		{"one empty", "555-123-4567", "", 0},
		{"exact after formatting", "(555) 123-4567", "5551234567", 1},
		{"country code suffix", "1-555-123-4567", "555-123-4567", 1},
		{"seven digit local", "123-4567", "555-123-4567", 1},
		{"different numbers", "555-123-4567", "555-999-8888", 0},
		{"short exact", "12345", "12345", 1},
		{"short mismatch", "12345", "123456", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PhoneMatch(tt.p1, tt.p2), 1e-9)
			assert.InDelta(t, tt.want, PhoneMatch(tt.p2, tt.p1), 1e-9)
		})
	}
}
