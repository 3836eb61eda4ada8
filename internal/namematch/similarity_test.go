package namematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Kansas", "kansas"},
		{"  Duke  ", "duke"},
		{"Michigan St.", "michigan state"},
		{"Michigan St", "michigan state"},
		{"St. John's", "st johns"},
		{"UNC", "north carolina"},
		{"LSU", "louisiana state"},
		{"Saint Mary's (CA)", "saint marys ca"},
		{"Texas A&M", "texas am"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Kansas", "Michigan St.", "UNC", "St. John's", "Texas A&M",
		"Saint Mary's (CA)", "north carolina", "", "Ole Miss",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestSimilarityExactAndBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Similarity("Kansas", "Kansas"))
	assert.Equal(t, 1.0, Similarity("Michigan St.", "Michigan State"))
	assert.Equal(t, 1.0, Similarity("UNC", "North Carolina"))

	pairs := [][2]string{
		{"Kansas", "Duke"},
		{"Kansas", "Kansas State"},
		{"Gonzaga", "Gonzag"},
		{"A", "completely different name"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.Equal(t, s, Similarity(p[1], p[0]), "similarity not symmetric for %v", p)
	}
}

func TestSimilarityEmptyIsNoMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("Kansas", ""))
	assert.Equal(t, 0.0, Similarity("", "Kansas"))
	// Punctuation-only input normalizes to empty.
	assert.Equal(t, 0.0, Similarity("...", "..."))
}

func TestSimilaritySubstringBonus(t *testing.T) {
	t.Parallel()

	s := Similarity("Kansas", "Kansas Jayhawks")
	require.GreaterOrEqual(t, s, 0.85)
	require.Less(t, s, 1.0)

	// Longer overlap earns a larger bonus but still never reaches exact.
	longer := Similarity("Kansas Jayhawk", "Kansas Jayhawks")
	require.Greater(t, longer, s)
	require.Less(t, longer, 1.0)
}

func TestSimilarityEditDistanceFallback(t *testing.T) {
	t.Parallel()

	// One letter apart out of seven: 1 - 1/7.
	s := Similarity("Gonzaga", "Gonzago")
	assert.InDelta(t, 1.0-1.0/7.0, s, 1e-9)
}
