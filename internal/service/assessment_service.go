package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"pronounce/internal/feedback"
	"pronounce/internal/models"
	"pronounce/internal/session"
	"pronounce/internal/speech"
	"pronounce/internal/unlock"
	"pronounce/internal/wordbank"
)

var (
	ErrLocked            = errors.New("assessment is locked")
	ErrNoActiveSession   = fmt.Errorf("%w: no active session", session.ErrInvalidState)
	ErrNoResult          = errors.New("no result for assessment")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSpeechUnavailable = errors.New("speech service not configured")
)

const notificationSendTimeout = 30 * time.Second

// ProgressStore is the persistence the service needs beyond the session gateway
type ProgressStore interface {
	session.Gateway
	CompletedAssessmentIDs(ctx context.Context, userID string) ([]string, error)
	LatestFinalResult(ctx context.Context, userID, assessmentID string) (*models.FinalResult, error)
}

// ResultNotifier tells a learner about a finished assessment
type ResultNotifier interface {
	SendResultEmail(ctx context.Context, toEmail, toName string, def models.AssessmentDefinition, result models.FinalResult, summary string) error
}

// User identifies the caller. Languages are feedback language preferences,
// most preferred first.
type User struct {
	ID        string
	Email     string
	Name      string
	Languages []string
}

// AttemptInput carries one response to the current word. Exactly one of
// Transcript, ErrorCode and Audio should be set; Transcript may be empty.
type AttemptInput struct {
	Transcript string
	ErrorCode  string
	Audio      io.Reader
}

// AttemptOutcome is a recorded attempt with presentation text
type AttemptOutcome struct {
	session.Step
	Feedback string `json:"feedback"`
	Summary  string `json:"summary,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

type sessionKey struct {
	userID       string
	assessmentID string
}

// entry serializes access to one machine
type entry struct {
	mu      sync.Mutex
	machine *session.Machine
}

// AssessmentService runs assessments for many users. Each (user, assessment)
// pair has at most one live machine and calls for a pair are serialized.
type AssessmentService struct {
	bank       *wordbank.Bank
	store      ProgressStore
	unlock     *unlock.Evaluator
	feedback   *feedback.Catalog
	recognizer speech.Recognizer
	speaker    speech.Speaker
	notifier   ResultNotifier
	opts       []session.Option

	mu       sync.Mutex
	sessions map[sessionKey]*entry
	notifies sync.WaitGroup
}

// Option configures an AssessmentService
type Option func(*AssessmentService)

// WithRecognizer enables server-side transcription of uploaded audio
func WithRecognizer(r speech.Recognizer) Option {
	return func(s *AssessmentService) { s.recognizer = r }
}

// WithSpeaker enables text-to-speech for the current word
func WithSpeaker(sp speech.Speaker) Option {
	return func(s *AssessmentService) { s.speaker = sp }
}

// WithNotifier sends an email when a user completes an assessment
func WithNotifier(n ResultNotifier) Option {
	return func(s *AssessmentService) { s.notifier = n }
}

// WithSessionOptions passes options to every machine the service creates
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *AssessmentService) { s.opts = append(s.opts, opts...) }
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(bank *wordbank.Bank, store ProgressStore, catalog *feedback.Catalog, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		bank:     bank,
		store:    store,
		unlock:   unlock.NewEvaluator(bank),
		feedback: catalog,
		sessions: make(map[sessionKey]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAssessments returns the catalog with the user's unlock and completion state
func (s *AssessmentService) ListAssessments(ctx context.Context, userID string) ([]models.AssessmentSummary, error) {
	completed, err := s.completed(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs := s.bank.ListAssessments()
	summaries := make([]models.AssessmentSummary, len(defs))
	for i, def := range defs {
		summaries[i] = models.AssessmentSummary{
			AssessmentDefinition: def,
			Unlocked:             unlock.IsUnlocked(def, completed),
			Completed:            completed[def.ID],
		}
	}
	return summaries, nil
}

// Start begins or continues an assessment. A live session is returned as is;
// otherwise a stored snapshot leaves the session resume-pending.
func (s *AssessmentService) Start(ctx context.Context, userID, assessmentID string) (session.View, error) {
	if err := s.checkUnlocked(ctx, userID, assessmentID); err != nil {
		return session.View{}, err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine != nil && isLive(e.machine.State()) {
		return e.machine.View(), nil
	}

	e.machine = s.newMachine()
	return e.machine.Start(ctx, assessmentID, userID)
}

// Resume continues a stored session. ok is false when there is nothing to resume.
func (s *AssessmentService) Resume(ctx context.Context, userID, assessmentID string) (view session.View, ok bool, err error) {
	if err := s.checkUnlocked(ctx, userID, assessmentID); err != nil {
		return session.View{}, false, err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine != nil {
		switch e.machine.State() {
		case session.StateActive, session.StateActiveFresh:
			return e.machine.View(), true, nil
		case session.StateResumePending:
			return e.machine.Resume(ctx, assessmentID, userID)
		}
	}

	m := s.newMachine()
	view, ok, err = m.Resume(ctx, assessmentID, userID)
	if ok || errors.Is(err, session.ErrCorruptState) {
		e.machine = m
	}
	return view, ok, err
}

// StartFresh throws away any progress and begins with a new word draw
func (s *AssessmentService) StartFresh(ctx context.Context, userID, assessmentID string) (session.View, error) {
	if err := s.checkUnlocked(ctx, userID, assessmentID); err != nil {
		return session.View{}, err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine != nil {
		switch e.machine.State() {
		case session.StateResumePending:
			return e.machine.StartFresh(ctx)
		case session.StateActive, session.StateActiveFresh:
			if err := e.machine.Discard(ctx); err != nil {
				return session.View{}, err
			}
			return e.machine.Start(ctx, assessmentID, userID)
		}
	}

	e.machine = s.newMachine()
	view, err := e.machine.Start(ctx, assessmentID, userID)
	if err != nil {
		return session.View{}, err
	}
	if view.State == session.StateResumePending {
		return e.machine.StartFresh(ctx)
	}
	return view, nil
}

// Attempt records a response to the current word. Capability failures are
// returned without advancing the session.
func (s *AssessmentService) Attempt(ctx context.Context, user User, assessmentID string, in AttemptInput) (*AttemptOutcome, error) {
	e, err := s.activeEntry(user.ID, assessmentID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	transcript, err := s.transcript(ctx, e.machine.Assessment().Language, in)
	if err != nil {
		return nil, err
	}

	step, err := e.machine.RecordAttempt(ctx, transcript)
	return s.outcome(user, e.machine.Assessment(), step, err)
}

// Skip records the current word as skipped
func (s *AssessmentService) Skip(ctx context.Context, user User, assessmentID string) (*AttemptOutcome, error) {
	e, err := s.activeEntry(user.ID, assessmentID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	step, err := e.machine.RecordSkip(ctx)
	return s.outcome(user, e.machine.Assessment(), step, err)
}

// Discard abandons the user's session and deletes its snapshot
func (s *AssessmentService) Discard(ctx context.Context, userID, assessmentID string) error {
	if _, err := s.bank.GetAssessment(assessmentID); err != nil {
		return err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine != nil && isLive(e.machine.State()) {
		if err := e.machine.Discard(ctx); err != nil {
			return err
		}
		e.machine = nil
		return nil
	}

	e.machine = nil
	if err := s.store.Delete(ctx, userID, assessmentID); err != nil {
		return fmt.Errorf("%w: failed to delete snapshot: %w", session.ErrPersistence, err)
	}
	return nil
}

// Result returns the most recent final result for the user and assessment
func (s *AssessmentService) Result(ctx context.Context, userID, assessmentID string) (*models.FinalResult, error) {
	if _, err := s.bank.GetAssessment(assessmentID); err != nil {
		return nil, err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	if e.machine != nil {
		if result, err := e.machine.FinalResult(); err == nil {
			e.mu.Unlock()
			return &result, nil
		}
	}
	e.mu.Unlock()

	result, err := s.store.LatestFinalResult(ctx, userID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	if result == nil {
		return nil, ErrNoResult
	}
	return result, nil
}

// Speak renders the current word as audio and returns the file name
func (s *AssessmentService) Speak(ctx context.Context, userID, assessmentID string, rate float64) (string, error) {
	if s.speaker == nil {
		return "", fmt.Errorf("%w: text-to-speech disabled", ErrSpeechUnavailable)
	}

	e, err := s.activeEntry(userID, assessmentID)
	if err != nil {
		return "", err
	}
	view := e.machine.View()
	language := e.machine.Assessment().Language
	e.mu.Unlock()

	if view.CurrentWord == nil {
		return "", ErrNoActiveSession
	}
	return s.speaker.Speak(ctx, view.CurrentWord.Text, language, rate)
}

// Shutdown waits for pending checkpoints of every live session and for
// queued result emails
func (s *AssessmentService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		var err error
		if e.machine != nil {
			err = e.machine.Flush(ctx)
		}
		e.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to flush checkpoints: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.notifies.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AssessmentService) newMachine() *session.Machine {
	return session.New(s.bank, s.store, s.opts...)
}

func (s *AssessmentService) entry(userID, assessmentID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{userID: userID, assessmentID: assessmentID}
	e, ok := s.sessions[key]
	if !ok {
		e = &entry{}
		s.sessions[key] = e
	}
	return e
}

// activeEntry returns the locked entry for a session that can take attempts.
// The caller must unlock it.
func (s *AssessmentService) activeEntry(userID, assessmentID string) (*entry, error) {
	if _, err := s.bank.GetAssessment(assessmentID); err != nil {
		return nil, err
	}

	e := s.entry(userID, assessmentID)
	e.mu.Lock()
	if e.machine == nil {
		e.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	switch e.machine.State() {
	case session.StateActive, session.StateActiveFresh:
		return e, nil
	default:
		state := e.machine.State()
		e.mu.Unlock()
		return nil, fmt.Errorf("%w in state %s", ErrNoActiveSession, state)
	}
}

func (s *AssessmentService) checkUnlocked(ctx context.Context, userID, assessmentID string) error {
	completed, err := s.completed(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.unlock.IsUnlocked(assessmentID, completed)
	if err != nil {
		return err
	}
	if !ok {
		def, _ := s.bank.GetAssessment(assessmentID)
		return fmt.Errorf("%w: complete %s first", ErrLocked, def.Prerequisite)
	}
	return nil
}

func (s *AssessmentService) completed(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := s.store.CompletedAssessmentIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed assessments: %w", err)
	}
	return unlock.CompletedSet(ids), nil
}

func (s *AssessmentService) transcript(ctx context.Context, language string, in AttemptInput) (string, error) {
	switch {
	case in.ErrorCode != "":
		capErr, ok := speech.ParseCapabilityError(in.ErrorCode)
		if !ok {
			return "", fmt.Errorf("%w: unknown error code %q", ErrInvalidInput, in.ErrorCode)
		}
		return "", capErr
	case in.Audio != nil:
		if s.recognizer == nil {
			return "", fmt.Errorf("%w: speech-to-text disabled", ErrSpeechUnavailable)
		}
		return s.recognizer.Transcribe(ctx, in.Audio, language)
	default:
		return in.Transcript, nil
	}
}

func (s *AssessmentService) outcome(user User, def models.AssessmentDefinition, step session.Step, err error) (*AttemptOutcome, error) {
	// A completion that could not be stored is still a completion
	if err != nil && !(step.Result != nil && errors.Is(err, session.ErrPersistence)) {
		return nil, err
	}

	out := &AttemptOutcome{
		Step:     step,
		Feedback: s.feedback.Attempt(step.Attempt.Tier, step.Attempt.Score, user.Languages...),
	}
	if err != nil {
		out.Warning = "Your result could not be saved. It is shown here but may not appear in your history."
	}
	if step.Result != nil {
		out.Summary = s.feedback.Result(*step.Result, def.PassingScore, user.Languages...)
		s.notify(user, def, *step.Result, out.Summary)
	}
	return out, nil
}

func (s *AssessmentService) notify(user User, def models.AssessmentDefinition, result models.FinalResult, summary string) {
	if s.notifier == nil || user.Email == "" {
		return
	}

	s.notifies.Add(1)
	go func() {
		defer s.notifies.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
		defer cancel()
		if err := s.notifier.SendResultEmail(ctx, user.Email, user.Name, def, result, summary); err != nil {
			log.Printf("Warning: failed to send result email for user %s assessment %s: %v", user.ID, def.ID, err)
		}
	}()
}

func isLive(state session.State) bool {
	switch state {
	case session.StateResumePending, session.StateActive, session.StateActiveFresh:
		return true
	}
	return false
}
