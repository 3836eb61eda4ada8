package namematch

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// substringBase is the floor score when one normalized name contains the other.
	substringBase = 0.85

	// substringCap keeps a substring match below exact-match confidence.
	substringCap = 0.99
)

// Similarity scores how likely two free-text team names refer to the same team.
// Both inputs are normalized first. Returns a value in [0, 1]: 1.0 for exact
// equality, substringBase plus a length-ratio bonus when one name contains the
// other, otherwise a Levenshtein ratio. An empty normalized name carries no
// identity evidence, so either side empty scores 0.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return 1.0
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		shorter, longer := len(na), len(nb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}

		score := substringBase + 0.1*float64(shorter)/float64(longer)
		if score > substringCap {
			score = substringCap
		}
		return score
	}

	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}

	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}
