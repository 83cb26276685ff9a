// Package unlock decides which assessments a learner may take based on the
// prerequisite chain.
package unlock

import "pronounce/internal/models"

// Lookup resolves an assessment id to its definition
type Lookup interface {
	GetAssessment(id string) (models.AssessmentDefinition, error)
}

// IsUnlocked reports whether def may be started given the ids of completed
// assessments. Assessments without a prerequisite are always unlocked.
func IsUnlocked(def models.AssessmentDefinition, completed map[string]bool) bool {
	if !def.HasPrerequisite() {
		return true
	}
	return completed[def.Prerequisite]
}

// Evaluator answers unlock questions by assessment id
type Evaluator struct {
	lookup Lookup
}

// NewEvaluator creates an evaluator backed by lookup
func NewEvaluator(lookup Lookup) *Evaluator {
	return &Evaluator{lookup: lookup}
}

// IsUnlocked looks up assessmentID and applies IsUnlocked. Lookup errors such
// as an unknown id are returned unchanged.
func (e *Evaluator) IsUnlocked(assessmentID string, completed map[string]bool) (bool, error) {
	def, err := e.lookup.GetAssessment(assessmentID)
	if err != nil {
		return false, err
	}
	return IsUnlocked(def, completed), nil
}

// CompletedSet turns a list of ids into the set form IsUnlocked expects
func CompletedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
