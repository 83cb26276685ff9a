package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"pronounce/internal/database"
	"pronounce/internal/models"
)

var (
	snapshotKeys    = []string{"user_id", "assessment_id"}
	snapshotColumns = []string{"current_index", "words", "attempts", "started_at", "updated_at"}
)

// ProgressRepository stores in-flight session snapshots and final results
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Save creates or replaces the snapshot for a user and assessment
func (r *ProgressRepository) Save(ctx context.Context, userID, assessmentID string, snap models.SessionSnapshot) error {
	words, err := json.Marshal(snap.Words)
	if err != nil {
		return fmt.Errorf("failed to encode words: %w", err)
	}
	attempts, err := json.Marshal(nonNilAttempts(snap.Attempts))
	if err != nil {
		return fmt.Errorf("failed to encode attempts: %w", err)
	}

	query := r.db.Dialect.UpsertQuery("session_snapshots", snapshotKeys, snapshotColumns)
	_, err = r.db.ExecContext(ctx, query,
		userID,
		assessmentID,
		snap.CurrentIndex,
		string(words),
		string(attempts),
		snap.StartedAt.UTC(),
		snap.UpdatedAt.UTC(),
	)
	return err
}

// Load returns the stored snapshot, or nil when there is none. A row whose
// JSON cannot be decoded comes back with no words so that the session layer
// reports it as corrupt rather than failing the load.
func (r *ProgressRepository) Load(ctx context.Context, userID, assessmentID string) (*models.SessionSnapshot, error) {
	query := `
		SELECT current_index, words, attempts, started_at, updated_at
		FROM session_snapshots
		WHERE user_id = ? AND assessment_id = ?
	`

	snap := &models.SessionSnapshot{UserID: userID, AssessmentID: assessmentID}
	var words, attempts string
	err := r.db.QueryRowContext(ctx, query, userID, assessmentID).Scan(
		&snap.CurrentIndex,
		&words,
		&attempts,
		&snap.StartedAt,
		&snap.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(words), &snap.Words); err != nil {
		log.Printf("Warning: undecodable words in snapshot for user %s assessment %s: %v", userID, assessmentID, err)
		snap.Words = nil
	}
	if err := json.Unmarshal([]byte(attempts), &snap.Attempts); err != nil {
		log.Printf("Warning: undecodable attempts in snapshot for user %s assessment %s: %v", userID, assessmentID, err)
		snap.Words = nil
		snap.Attempts = nil
	}

	return snap, nil
}

// Delete removes the snapshot for a user and assessment. Deleting a missing
// snapshot is not an error.
func (r *ProgressRepository) Delete(ctx context.Context, userID, assessmentID string) error {
	query := "DELETE FROM session_snapshots WHERE user_id = ? AND assessment_id = ?"
	_, err := r.db.ExecContext(ctx, query, userID, assessmentID)
	return err
}

// SaveFinalResult stores a completed session and its attempts in one transaction
func (r *ProgressRepository) SaveFinalResult(ctx context.Context, userID string, result models.FinalResult) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			INSERT INTO final_results
			(id, user_id, assessment_id, average_score, total_words, passed_words, passed, started_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			result.ID,
			userID,
			result.AssessmentID,
			result.AverageScore,
			result.TotalWords,
			result.PassedWords,
			result.Passed,
			result.StartedAt.UTC(),
			result.CompletedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert final result: %w", err)
		}

		attemptQuery := `
			INSERT INTO result_attempts
			(result_id, position, word_id, expected, spoken, score, outcome, tier, attempted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for i, a := range result.Attempts {
			_, err := tx.ExecContext(ctx, attemptQuery,
				result.ID, i, a.WordID, a.Expected, a.Spoken, a.Score,
				string(a.Outcome), string(a.Tier), a.AttemptedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert attempt %d: %w", i, err)
			}
		}
		return nil
	})
}

// CompletedAssessmentIDs returns the assessments the user has passed at least once
func (r *ProgressRepository) CompletedAssessmentIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT assessment_id
		FROM final_results
		WHERE user_id = ? AND passed = ?
		ORDER BY assessment_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestFinalResult returns the most recent result for a user and assessment,
// or nil when the user has never completed it
func (r *ProgressRepository) LatestFinalResult(ctx context.Context, userID, assessmentID string) (*models.FinalResult, error) {
	query := `
		SELECT id, user_id, assessment_id, average_score, total_words, passed_words, passed, started_at, completed_at
		FROM final_results
		WHERE user_id = ? AND assessment_id = ?
		ORDER BY completed_at DESC
		LIMIT 1
	`

	result, err := scanResult(r.db.QueryRowContext(ctx, query, userID, assessmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if result.Attempts, err = r.getAttempts(ctx, result.ID); err != nil {
		return nil, err
	}
	return result, nil
}

// ListFinalResults returns every result for a user, newest first. An empty
// userID lists results for all users.
func (r *ProgressRepository) ListFinalResults(ctx context.Context, userID string) ([]models.FinalResult, error) {
	query := `
		SELECT id, user_id, assessment_id, average_score, total_words, passed_words, passed, started_at, completed_at
		FROM final_results
	`
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY completed_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var results []models.FinalResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, *result)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Result rows must be closed first; a :memory: database has one connection
	for i := range results {
		if results[i].Attempts, err = r.getAttempts(ctx, results[i].ID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *ProgressRepository) getAttempts(ctx context.Context, resultID string) ([]models.AttemptRecord, error) {
	query := `
		SELECT word_id, expected, spoken, score, outcome, tier, attempted_at
		FROM result_attempts
		WHERE result_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []models.AttemptRecord{}
	for rows.Next() {
		var a models.AttemptRecord
		var outcome, tier string
		err := rows.Scan(&a.WordID, &a.Expected, &a.Spoken, &a.Score, &outcome, &tier, &a.AttemptedAt)
		if err != nil {
			return nil, err
		}
		a.Outcome = models.Outcome(outcome)
		a.Tier = models.Tier(tier)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.FinalResult, error) {
	result := &models.FinalResult{}
	err := row.Scan(
		&result.ID,
		&result.UserID,
		&result.AssessmentID,
		&result.AverageScore,
		&result.TotalWords,
		&result.PassedWords,
		&result.Passed,
		&result.StartedAt,
		&result.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func nonNilAttempts(attempts []models.AttemptRecord) []models.AttemptRecord {
	if attempts == nil {
		return []models.AttemptRecord{}
	}
	return attempts
}
