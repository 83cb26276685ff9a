// Package session runs a single pronunciation assessment attempt: it hands
// out words in order, records scored attempts, checkpoints progress and
// builds the final result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"pronounce/internal/models"
	"pronounce/internal/scoring"
)

// State is the lifecycle position of a Machine
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResumePending State = "resume-pending"
	StateActive        State = "active"       // resumed from a snapshot
	StateActiveFresh   State = "active-fresh" // new word draw
	StateComplete      State = "complete"
)

const defaultWriteTimeout = 10 * time.Second

// Progress summarises attempts so far. RunningScore averages over the
// attempts made, while the final result averages over every word.
type Progress struct {
	Attempted    int `json:"attempted"`
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	RunningScore int `json:"running_score"`
}

// View is what a caller needs to present the session
type View struct {
	State        State            `json:"state"`
	AssessmentID string           `json:"assessment_id"`
	CurrentWord  *models.WordItem `json:"current_word,omitempty"`
	Progress     Progress         `json:"progress"`
}

// Step is the outcome of recording one attempt
type Step struct {
	Attempt models.AttemptRecord `json:"attempt"`
	View    View                 `json:"view"`
	Result  *models.FinalResult  `json:"result,omitempty"` // Set once the session completes
}

// Machine owns one user's attempt at one assessment. It is not safe for
// concurrent use; callers keep a single owner per (user, assessment).
type Machine struct {
	words        WordSource
	gateway      Gateway
	now          func() time.Time
	newID        func() string
	writeTimeout time.Duration

	state   State
	def     models.AssessmentDefinition
	userID  string
	snap    models.SessionSnapshot
	pending *models.SessionSnapshot
	result  *models.FinalResult

	// lastWrite closes when the most recently issued write has finished
	lastWrite chan struct{}
}

// Option configures a Machine
type Option func(*Machine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithIDGenerator replaces the final result id generator
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) {
		m.newID = newID
	}
}

// WithWriteTimeout bounds each background gateway write
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.writeTimeout = d
		}
	}
}

// New creates an uninitialized machine
func New(words WordSource, gateway Gateway, opts ...Option) *Machine {
	m := &Machine{
		words:        words,
		gateway:      gateway,
		now:          time.Now,
		newID:        uuid.NewString,
		writeTimeout: defaultWriteTimeout,
		state:        StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	return m.state
}

// Assessment returns the definition the machine was started with
func (m *Machine) Assessment() models.AssessmentDefinition {
	return m.def
}

// Snapshot returns a copy of the in-memory snapshot
func (m *Machine) Snapshot() models.SessionSnapshot {
	return m.snap.Clone()
}

// Start begins an attempt. With a stored snapshot the machine waits in
// resume-pending for Resume or StartFresh; otherwise it draws new words.
func (m *Machine) Start(ctx context.Context, assessmentID, userID string) (View, error) {
	if m.state != StateUninitialized {
		return View{}, fmt.Errorf("%w: start from %s", ErrInvalidState, m.state)
	}

	if err := m.bind(assessmentID, userID); err != nil {
		return View{}, err
	}

	prior, err := m.gateway.Load(ctx, userID, assessmentID)
	if err != nil {
		return View{}, fmt.Errorf("%w: failed to load snapshot: %w", ErrPersistence, err)
	}
	if prior != nil {
		m.pending = prior
		m.state = StateResumePending
		return m.View(), nil
	}

	return m.fresh(ctx)
}

// Resume continues a stored attempt with its frozen words and prior attempts.
// ok is false when nothing is stored. A snapshot that fails validation is
// reported as a CorruptStateError and left pending so StartFresh can replace it.
func (m *Machine) Resume(ctx context.Context, assessmentID, userID string) (view View, ok bool, err error) {
	switch m.state {
	case StateResumePending:
		if assessmentID != m.def.ID || userID != m.userID {
			return View{}, false, fmt.Errorf("%w: pending session belongs to %s/%s", ErrInvalidState, m.userID, m.def.ID)
		}
	case StateUninitialized:
		if err := m.bind(assessmentID, userID); err != nil {
			return View{}, false, err
		}
		prior, err := m.gateway.Load(ctx, userID, assessmentID)
		if err != nil {
			return View{}, false, fmt.Errorf("%w: failed to load snapshot: %w", ErrPersistence, err)
		}
		if prior == nil {
			return View{}, false, nil
		}
		m.pending = prior
		m.state = StateResumePending
	default:
		return View{}, false, fmt.Errorf("%w: resume from %s", ErrInvalidState, m.state)
	}

	if err := m.validate(*m.pending); err != nil {
		return m.View(), false, err
	}

	m.snap = m.pending.Clone()
	m.snap.UserID = userID
	m.snap.AssessmentID = assessmentID
	m.pending = nil
	m.state = StateActive

	return m.View(), true, nil
}

// StartFresh discards the pending snapshot and begins again with a new draw
func (m *Machine) StartFresh(ctx context.Context) (View, error) {
	if m.state != StateResumePending {
		return View{}, fmt.Errorf("%w: start fresh from %s", ErrInvalidState, m.state)
	}

	userID, assessmentID := m.userID, m.def.ID
	m.enqueue(ctx, "discard snapshot", func(ctx context.Context) error {
		return m.gateway.Delete(ctx, userID, assessmentID)
	})
	m.pending = nil

	return m.fresh(ctx)
}

// RecordAttempt scores spoken against the current word and advances
func (m *Machine) RecordAttempt(ctx context.Context, spoken string) (Step, error) {
	if err := m.requireActive("record attempt"); err != nil {
		return Step{}, err
	}
	word := m.snap.Words[m.snap.CurrentIndex]
	return m.record(ctx, spoken, scoring.Evaluate(spoken, word.Text))
}

// RecordSkip records the current word as skipped with a score of 0
func (m *Machine) RecordSkip(ctx context.Context) (Step, error) {
	if err := m.requireActive("skip"); err != nil {
		return Step{}, err
	}
	return m.record(ctx, models.SkippedTranscript, scoring.Skipped())
}

// FinalResult is available once the session is complete
func (m *Machine) FinalResult() (models.FinalResult, error) {
	if m.state != StateComplete || m.result == nil {
		return models.FinalResult{}, ErrNotComplete
	}
	return *m.result, nil
}

// Discard drops the attempt and deletes its snapshot. The machine returns to
// uninitialized and may be started again.
func (m *Machine) Discard(ctx context.Context) error {
	switch m.state {
	case StateResumePending, StateActive, StateActiveFresh:
	default:
		return fmt.Errorf("%w: discard from %s", ErrInvalidState, m.state)
	}

	if err := m.Flush(ctx); err != nil {
		return err
	}
	if err := m.gateway.Delete(ctx, m.userID, m.def.ID); err != nil {
		return fmt.Errorf("%w: failed to delete snapshot: %w", ErrPersistence, err)
	}

	m.state = StateUninitialized
	m.snap = models.SessionSnapshot{}
	m.pending = nil
	return nil
}

// Flush waits until every issued write has finished
func (m *Machine) Flush(ctx context.Context) error {
	if m.lastWrite == nil {
		return nil
	}
	select {
	case <-m.lastWrite:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View describes the current state for presentation
func (m *Machine) View() View {
	v := View{State: m.state, AssessmentID: m.def.ID}

	snap := &m.snap
	if m.state == StateResumePending {
		snap = m.pending
	}
	if m.state == StateUninitialized || snap == nil {
		return v
	}

	v.Progress = progressOf(*snap)
	if m.state != StateComplete && snap.CurrentIndex >= 0 && snap.CurrentIndex < len(snap.Words) {
		word := snap.Words[snap.CurrentIndex]
		v.CurrentWord = &word
	}
	return v
}

func (m *Machine) bind(assessmentID, userID string) error {
	def, err := m.words.GetAssessment(assessmentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	m.def = def
	m.userID = userID
	return nil
}

func (m *Machine) fresh(ctx context.Context) (View, error) {
	words, err := m.words.SelectWords(m.def.ID)
	if err != nil {
		return View{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if len(words) == 0 {
		return View{}, ErrEmptyWordList
	}

	now := m.now()
	m.snap = models.SessionSnapshot{
		UserID:       m.userID,
		AssessmentID: m.def.ID,
		CurrentIndex: 0,
		Attempts:     []models.AttemptRecord{},
		Words:        words,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	m.state = StateActiveFresh
	m.checkpoint(ctx)

	return m.View(), nil
}

func (m *Machine) requireActive(op string) error {
	if m.state != StateActive && m.state != StateActiveFresh {
		return fmt.Errorf("%w: %s in %s", ErrInvalidState, op, m.state)
	}
	return nil
}

func (m *Machine) record(ctx context.Context, spoken string, ev scoring.Evaluation) (Step, error) {
	now := m.now()
	word := m.snap.Words[m.snap.CurrentIndex]

	attempt := models.AttemptRecord{
		WordID:      word.ID,
		Expected:    word.Text,
		Spoken:      spoken,
		Score:       ev.Score,
		Outcome:     ev.Outcome,
		Tier:        ev.Tier,
		AttemptedAt: now,
	}
	m.snap.Attempts = append(m.snap.Attempts, attempt)
	m.snap.CurrentIndex++
	m.snap.UpdatedAt = now

	if m.snap.CurrentIndex < len(m.snap.Words) {
		m.checkpoint(ctx)
		return Step{Attempt: attempt, View: m.View()}, nil
	}

	result := m.finalize(now)
	m.result = &result
	m.state = StateComplete

	step := Step{Attempt: attempt, View: m.View(), Result: &result}
	return step, m.complete(ctx, result)
}

// finalize averages over every word, so skips pull the score down as zeros.
// Halves round away from zero.
func (m *Machine) finalize(now time.Time) models.FinalResult {
	sum, passed := 0, 0
	for _, a := range m.snap.Attempts {
		sum += a.Score
		if a.Outcome == models.OutcomePass {
			passed++
		}
	}
	total := len(m.snap.Words)
	average := int(math.Round(float64(sum) / float64(total)))

	return models.FinalResult{
		ID:           m.newID(),
		UserID:       m.userID,
		AssessmentID: m.def.ID,
		AverageScore: average,
		TotalWords:   total,
		PassedWords:  passed,
		Passed:       average >= m.def.PassingScore,
		Attempts:     append([]models.AttemptRecord(nil), m.snap.Attempts...),
		StartedAt:    m.snap.StartedAt,
		CompletedAt:  now,
	}
}

// complete stores the result and removes the snapshot once earlier
// checkpoints have landed. Writes run detached from ctx so a cancelled request
// cannot let a queued checkpoint land after the delete. If the queue does not
// drain in time the delete is chained behind it instead.
func (m *Machine) complete(ctx context.Context, result models.FinalResult) error {
	base := context.WithoutCancel(ctx)

	var errs []error
	flushCtx, cancelFlush := context.WithTimeout(base, m.writeTimeout)
	flushErr := m.Flush(flushCtx)
	cancelFlush()
	if flushErr != nil {
		errs = append(errs, fmt.Errorf("pending checkpoints not flushed: %w", flushErr))
	}

	wctx, cancel := context.WithTimeout(base, m.writeTimeout)
	defer cancel()

	if err := m.gateway.SaveFinalResult(wctx, m.userID, result); err != nil {
		errs = append(errs, fmt.Errorf("failed to save final result: %w", err))
	}

	userID, assessmentID := m.userID, m.def.ID
	if flushErr != nil {
		m.enqueue(ctx, "delete completed snapshot", func(ctx context.Context) error {
			return m.gateway.Delete(ctx, userID, assessmentID)
		})
	} else if err := m.gateway.Delete(wctx, userID, assessmentID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete snapshot: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}

	err := errors.Join(errs...)
	log.Printf("Error completing session for user %s assessment %s: %v", m.userID, m.def.ID, err)
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// checkpoint issues a save of the current snapshot without waiting for it
func (m *Machine) checkpoint(ctx context.Context) {
	snap := m.snap.Clone()
	m.enqueue(ctx, "checkpoint snapshot", func(ctx context.Context) error {
		return m.gateway.Save(ctx, snap.UserID, snap.AssessmentID, snap)
	})
}

// enqueue runs write in the background after every earlier write, so the
// store always ends up with the newest snapshot. Failures are logged only.
func (m *Machine) enqueue(ctx context.Context, what string, write func(context.Context) error) {
	prev := m.lastWrite
	done := make(chan struct{})
	m.lastWrite = done

	base := context.WithoutCancel(ctx)
	userID, assessmentID, timeout := m.userID, m.def.ID, m.writeTimeout

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}

		wctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()

		if err := write(wctx); err != nil {
			log.Printf("Warning: failed to %s for user %s assessment %s: %v", what, userID, assessmentID, err)
		}
	}()
}

func (m *Machine) validate(snap models.SessionSnapshot) error {
	corrupt := func(format string, args ...any) error {
		return &CorruptStateError{
			UserID:       m.userID,
			AssessmentID: m.def.ID,
			Reason:       fmt.Sprintf(format, args...),
		}
	}

	switch {
	case len(snap.Words) == 0:
		return corrupt("snapshot has no words")
	case snap.CurrentIndex < 0:
		return corrupt("negative word index %d", snap.CurrentIndex)
	case len(snap.Attempts) != snap.CurrentIndex:
		return corrupt("%d attempts recorded at word index %d", len(snap.Attempts), snap.CurrentIndex)
	case snap.CurrentIndex >= len(snap.Words):
		return corrupt("word index %d past end of %d-word list", snap.CurrentIndex, len(snap.Words))
	}

	for i, a := range snap.Attempts {
		if a.WordID != snap.Words[i].ID {
			return corrupt("attempt %d is for word %d, list has word %d", i, a.WordID, snap.Words[i].ID)
		}
	}
	return nil
}

func progressOf(snap models.SessionSnapshot) Progress {
	p := Progress{
		Attempted: len(snap.Attempts),
		Total:     len(snap.Words),
	}
	sum := 0
	for _, a := range snap.Attempts {
		sum += a.Score
		if a.Outcome == models.OutcomePass {
			p.Passed++
		}
	}
	if p.Attempted > 0 {
		p.RunningScore = int(math.Round(float64(sum) / float64(p.Attempted)))
	}
	return p
}
