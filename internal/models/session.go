package models

import "time"

// SkippedTranscript is recorded in place of a transcript when a word is skipped
const SkippedTranscript = "(skipped)"

// Outcome is the per-word result tag
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeSkipped Outcome = "skipped"
)

// Tier is the qualitative feedback bucket for a score
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
	TierSkipped   Tier = "skipped"
)

// AttemptRecord is one scored response to one word within a session
type AttemptRecord struct {
	WordID      int       `json:"word_id"`
	Expected    string    `json:"expected"`
	Spoken      string    `json:"spoken"`
	Score       int       `json:"score"`
	Outcome     Outcome   `json:"outcome"`
	Tier        Tier      `json:"tier"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// SessionSnapshot is the resumable state of an in-progress assessment.
// len(Attempts) == CurrentIndex at every checkpoint.
type SessionSnapshot struct {
	UserID       string          `json:"user_id"`
	AssessmentID string          `json:"assessment_id"`
	CurrentIndex int             `json:"current_index"`
	Attempts     []AttemptRecord `json:"attempts"`
	Words        []WordItem      `json:"words"`
	StartedAt    time.Time       `json:"started_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with s
func (s SessionSnapshot) Clone() SessionSnapshot {
	c := s
	c.Attempts = append([]AttemptRecord(nil), s.Attempts...)
	c.Words = append([]WordItem(nil), s.Words...)
	return c
}

// FinalResult summarises a completed session
type FinalResult struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AssessmentID string          `json:"assessment_id"`
	AverageScore int             `json:"average_score"`
	TotalWords   int             `json:"total_words"`
	PassedWords  int             `json:"passed_words"`
	Passed       bool            `json:"passed"` // AverageScore met the assessment's passing score
	Attempts     []AttemptRecord `json:"attempts"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}
