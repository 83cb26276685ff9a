// Package wordbank holds the static catalog of assessments and the word pools
// they draw from.
package wordbank

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"pronounce/internal/models"
)

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInvalidCatalog     = errors.New("invalid catalog")
)

// PoolKey identifies the word pool for a language and level
type PoolKey struct {
	Language string
	Level    models.Level
}

// Catalog is the raw data a Bank is built from
type Catalog struct {
	Assessments []models.AssessmentDefinition
	Pools       map[PoolKey][]models.WordItem
}

// Bank serves assessment definitions and word draws. It is immutable after
// construction apart from its random source.
type Bank struct {
	assessments []models.AssessmentDefinition
	byID        map[string]models.AssessmentDefinition
	pools       map[PoolKey][]models.WordItem
	shuffle     func(n int, swap func(i, j int))
}

// Option configures a Bank
type Option func(*Bank)

// WithRand makes word draws use r, which lets tests pin the shuffle. r is not
// safe for concurrent use, so the Bank is not either once this is set.
func WithRand(r *rand.Rand) Option {
	return func(b *Bank) {
		b.shuffle = r.Shuffle
	}
}

// NewBank validates catalog and builds a Bank from it
func NewBank(catalog Catalog, opts ...Option) (*Bank, error) {
	if err := Validate(catalog); err != nil {
		return nil, err
	}

	b := &Bank{
		assessments: append([]models.AssessmentDefinition(nil), catalog.Assessments...),
		byID:        make(map[string]models.AssessmentDefinition, len(catalog.Assessments)),
		pools:       make(map[PoolKey][]models.WordItem, len(catalog.Pools)),
		shuffle:     rand.Shuffle,
	}
	for _, a := range catalog.Assessments {
		b.byID[a.ID] = a
	}
	for key, words := range catalog.Pools {
		b.pools[key] = append([]models.WordItem(nil), words...)
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// ListAssessments returns every assessment in catalog order
func (b *Bank) ListAssessments() []models.AssessmentDefinition {
	return append([]models.AssessmentDefinition(nil), b.assessments...)
}

// GetAssessment looks up an assessment by id
func (b *Bank) GetAssessment(id string) (models.AssessmentDefinition, error) {
	a, ok := b.byID[id]
	if !ok {
		return models.AssessmentDefinition{}, fmt.Errorf("%w: %s", ErrAssessmentNotFound, id)
	}
	return a, nil
}

// SelectWords draws the words for a new attempt: the whole pool for the
// assessment's language and level, shuffled uniformly, cut to WordCount.
// Every call is an independent draw.
func (b *Bank) SelectWords(assessmentID string) ([]models.WordItem, error) {
	a, err := b.GetAssessment(assessmentID)
	if err != nil {
		return nil, err
	}

	pool := b.pools[PoolKey{Language: a.Language, Level: a.Level}]
	words := make([]models.WordItem, len(pool))
	copy(words, pool)

	// Fisher–Yates
	b.shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})

	if a.WordCount < len(words) {
		words = words[:a.WordCount]
	}

	return words, nil
}

// Validate checks a catalog for configuration errors: duplicate or unknown
// ids, bad levels and thresholds, empty pools and prerequisite cycles.
func Validate(catalog Catalog) error {
	byID := make(map[string]models.AssessmentDefinition, len(catalog.Assessments))

	for _, a := range catalog.Assessments {
		if a.ID == "" {
			return fmt.Errorf("%w: assessment with empty id", ErrInvalidCatalog)
		}
		if _, dup := byID[a.ID]; dup {
			return fmt.Errorf("%w: duplicate assessment id %q", ErrInvalidCatalog, a.ID)
		}
		if !a.Level.Valid() {
			return fmt.Errorf("%w: assessment %q has unknown level %q", ErrInvalidCatalog, a.ID, a.Level)
		}
		if a.WordCount <= 0 {
			return fmt.Errorf("%w: assessment %q must have a positive word count", ErrInvalidCatalog, a.ID)
		}
		if a.PassingScore < 0 || a.PassingScore > 100 {
			return fmt.Errorf("%w: assessment %q passing score %d out of range", ErrInvalidCatalog, a.ID, a.PassingScore)
		}
		if len(catalog.Pools[PoolKey{Language: a.Language, Level: a.Level}]) == 0 {
			return fmt.Errorf("%w: no words for %s/%s (assessment %q)", ErrInvalidCatalog, a.Language, a.Level, a.ID)
		}
		byID[a.ID] = a
	}

	for _, a := range catalog.Assessments {
		if a.HasPrerequisite() {
			if _, ok := byID[a.Prerequisite]; !ok {
				return fmt.Errorf("%w: assessment %q requires unknown assessment %q", ErrInvalidCatalog, a.ID, a.Prerequisite)
			}
		}
	}

	return checkAcyclic(byID)
}

// checkAcyclic follows every prerequisite chain and fails when an id repeats
func checkAcyclic(byID map[string]models.AssessmentDefinition) error {
	for id := range byID {
		seen := map[string]bool{id: true}
		current := byID[id]
		for current.HasPrerequisite() {
			if seen[current.Prerequisite] {
				return fmt.Errorf("%w: prerequisite cycle through %q", ErrInvalidCatalog, current.Prerequisite)
			}
			seen[current.Prerequisite] = true
			current = byID[current.Prerequisite]
		}
	}
	return nil
}
