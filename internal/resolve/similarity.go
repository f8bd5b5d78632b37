package resolve

import (
	"strings"

	"github.com/agext/levenshtein"
)

// substringScore is the floor assigned when one string contains the
// other; containment is strong evidence for property names ("Eastern
// Shore" vs "Eastern Shore Plaza") even when edit distance is poor.
const substringScore = 0.8

var levParams = levenshtein.NewParams()

// Similarity scores two names in [0,1]. Case- and whitespace-
// insensitive: the score is the Levenshtein similarity, floored at 0.8
// when either string is a substring of the other.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	score := levenshtein.Similarity(a, b, levParams)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if score < substringScore {
			score = substringScore
		}
	}
	return score
}
