package namematch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestMatchExactBothSides(t *testing.T) {
	t.Parallel()

	m := NewMatcher()
	date := time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)

	match, ok := m.BestMatch("Kansas", "Duke", []Candidate{
		{ID: "A1", HomeTeam: "Kansas", AwayTeam: "Duke", Date: date},
	})
	require.True(t, ok)
	assert.Equal(t, "A1", match.CandidateID)
	assert.GreaterOrEqual(t, match.Confidence, 0.95)
	assert.LessOrEqual(t, match.Confidence, 1.0)
}

func TestBestMatchRejectsSwappedTeams(t *testing.T) {
	t.Parallel()

	m := NewMatcher()

	_, ok := m.BestMatch("Kansas", "Duke", []Candidate{
		{ID: "A2", HomeTeam: "Duke", AwayTeam: "Kansas"},
	})
	assert.False(t, ok, "swapped home/away must not match")
}

func TestBestMatchNeverBelowFloor(t *testing.T) {
	t.Parallel()

	m := NewMatcher()
	candidates := []Candidate{
		{ID: "A1", HomeTeam: "Villanova", AwayTeam: "Creighton"},
		{ID: "A2", HomeTeam: "Baylor", AwayTeam: "Houston"},
		{ID: "A3", HomeTeam: "Kansas Jayhawks", AwayTeam: "Duke Blue Devils"},
	}

	match, ok := m.BestMatch("Kansas", "Duke", candidates)
	require.True(t, ok)
	assert.Equal(t, "A3", match.CandidateID)
	assert.GreaterOrEqual(t, match.Confidence, ConfidenceFloor)

	_, ok = m.BestMatch("Purdue", "Arizona", candidates[:2])
	assert.False(t, ok)
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	t.Parallel()

	m := NewMatcher()
	_, ok := m.BestMatch("Kansas", "Duke", nil)
	assert.False(t, ok)
}

func TestBestMatchFirstSeenWinsTies(t *testing.T) {
	t.Parallel()

	m := NewMatcher()
	match, ok := m.BestMatch("Kansas", "Duke", []Candidate{
		{ID: "first", HomeTeam: "Kansas", AwayTeam: "Duke"},
		{ID: "second", HomeTeam: "Kansas", AwayTeam: "Duke"},
	})
	require.True(t, ok)
	assert.Equal(t, "first", match.CandidateID)
}

func TestBestMatchBonusRequiresBothSides(t *testing.T) {
	t.Parallel()

	m := NewMatcher()

	// One perfect side and one hopeless side: mean is ~0.5-0.6, no bonus, rejected.
	_, ok := m.BestMatch("Kansas", "Duke", []Candidate{
		{ID: "A1", HomeTeam: "Kansas", AwayTeam: "Villanova"},
	})
	assert.False(t, ok)
}
