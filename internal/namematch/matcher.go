package namematch

import "time"

// ConfidenceFloor is the minimum combined score required to accept a match.
const ConfidenceFloor = 0.7

// bothSidesBonus is added when home and away each independently clear the floor.
const bothSidesBonus = 0.1

// Candidate is one archive-search result considered for a match.
type Candidate struct {
	ID       string
	HomeTeam string
	AwayTeam string
	Date     time.Time
}

// Match is an accepted candidate with its combined confidence.
type Match struct {
	CandidateID string
	Confidence  float64
}

// Matcher picks the archive candidate that best matches a primary-source game.
type Matcher struct{}

// NewMatcher creates a new game matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// BestMatch scores every candidate against the primary game's team names and
// returns the highest-scoring one, provided it clears ConfidenceFloor. Each
// side is scored independently and averaged; when both sides individually
// exceed the floor a flat bonus is added, clamped to 1.0. Exact score ties
// keep the first-seen candidate (candidate order carries no ranking, so the
// tie-break only needs to be stable).
func (m *Matcher) BestMatch(homeTeam, awayTeam string, candidates []Candidate) (Match, bool) {
	var (
		best      Match
		bestFound bool
	)

	for _, cand := range candidates {
		homeScore := Similarity(homeTeam, cand.HomeTeam)
		awayScore := Similarity(awayTeam, cand.AwayTeam)

		combined := (homeScore + awayScore) / 2
		if homeScore > ConfidenceFloor && awayScore > ConfidenceFloor {
			combined += bothSidesBonus
		}
		if combined > 1.0 {
			combined = 1.0
		}

		if !bestFound || combined > best.Confidence {
			best = Match{CandidateID: cand.ID, Confidence: combined}
			bestFound = true
		}
	}

	if !bestFound || best.Confidence < ConfidenceFloor {
		return Match{}, false
	}

	return best, true
}
