// Package scoring turns a spoken transcript into a similarity score and a
// feedback tier. Everything here is pure and safe for concurrent use.
package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"pronounce/internal/models"
)

const (
	// PassThreshold is the per-word score needed for a pass. It is unrelated to
	// an assessment's PassingScore, which applies to the averaged final score.
	PassThreshold = 60

	exactScore       = 100
	containmentScore = 85
)

// Evaluation is the scored outcome of a single word
type Evaluation struct {
	Score   int
	Tier    models.Tier
	Outcome models.Outcome
}

// Evaluate scores spoken against expected and derives tier and outcome
func Evaluate(spoken, expected string) Evaluation {
	score := Score(spoken, expected)
	return Evaluation{
		Score:   score,
		Tier:    TierFor(score),
		Outcome: OutcomeFor(score),
	}
}

// Skipped is the evaluation recorded for a skipped word
func Skipped() Evaluation {
	return Evaluation{Score: 0, Tier: models.TierSkipped, Outcome: models.OutcomeSkipped}
}

// Score returns a similarity in [0, 100]. The first matching rule wins:
// exact match (100), containment either way (85), then normalized edit
// similarity. Two empty strings score 0.
func Score(spoken, expected string) int {
	s := normalize(spoken)
	e := normalize(expected)

	maxLen := max(utf8.RuneCountInString(s), utf8.RuneCountInString(e))
	if maxLen == 0 {
		return 0
	}

	if s == e {
		return exactScore
	}

	if s != "" && e != "" && (strings.Contains(s, e) || strings.Contains(e, s)) {
		return containmentScore
	}

	distance := Levenshtein(s, e)
	return int(math.Round(100 * float64(maxLen-distance) / float64(maxLen)))
}

// TierFor buckets a score into a feedback tier
func TierFor(score int) models.Tier {
	switch {
	case score >= 80:
		return models.TierExcellent
	case score >= 60:
		return models.TierGood
	case score >= 40:
		return models.TierFair
	default:
		return models.TierPoor
	}
}

// OutcomeFor tags a scored (not skipped) word as pass or fail
func OutcomeFor(score int) models.Outcome {
	if score >= PassThreshold {
		return models.OutcomePass
	}
	return models.OutcomeFail
}

// Levenshtein is the unit-cost edit distance between a and b, counted in runes
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rows of the DP table are enough
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
