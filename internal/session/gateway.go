package session

import (
	"context"

	"pronounce/internal/models"
)

// Gateway is the durable store for snapshots and final results, keyed by
// (user id, assessment id). It stores what it is given and never edits it.
type Gateway interface {
	// Save stores snap, replacing any existing snapshot for the pair
	Save(ctx context.Context, userID, assessmentID string, snap models.SessionSnapshot) error

	// Load returns nil, nil when there is no snapshot
	Load(ctx context.Context, userID, assessmentID string) (*models.SessionSnapshot, error)

	Delete(ctx context.Context, userID, assessmentID string) error

	SaveFinalResult(ctx context.Context, userID string, result models.FinalResult) error
}

// WordSource supplies assessment definitions and fresh word draws
type WordSource interface {
	GetAssessment(id string) (models.AssessmentDefinition, error)
	SelectWords(assessmentID string) ([]models.WordItem, error)
}
