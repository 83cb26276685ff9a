package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"pronounce/internal/service"
)

// AssessmentHandler exposes the assessment service as a JSON API
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	audioURLPrefix    string
}

// NewAssessmentHandler creates a new assessment handler. Spoken words are
// linked under audioURLPrefix.
func NewAssessmentHandler(assessmentService *service.AssessmentService, audioURLPrefix string) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		audioURLPrefix:    strings.TrimSuffix(audioURLPrefix, "/"),
	}
}

// Register adds the API routes to mux
func (h *AssessmentHandler) Register(mux *http.ServeMux, middleware *Middleware) {
	mux.HandleFunc("GET /api/assessments", middleware.RequireAuth(h.ListAssessments))
	mux.HandleFunc("POST /api/assessments/{id}/start", middleware.RequireAuth(h.Start))
	mux.HandleFunc("POST /api/assessments/{id}/resume", middleware.RequireAuth(h.Resume))
	mux.HandleFunc("POST /api/assessments/{id}/fresh", middleware.RequireAuth(h.StartFresh))
	mux.HandleFunc("POST /api/assessments/{id}/attempt", middleware.RequireAuth(middleware.RateLimit(h.Attempt)))
	mux.HandleFunc("POST /api/assessments/{id}/skip", middleware.RequireAuth(h.Skip))
	mux.HandleFunc("DELETE /api/assessments/{id}/session", middleware.RequireAuth(h.Discard))
	mux.HandleFunc("GET /api/assessments/{id}/result", middleware.RequireAuth(h.Result))
	mux.HandleFunc("GET /api/assessments/{id}/speak", middleware.RequireAuth(middleware.RateLimit(h.Speak)))
}

// attemptRequest is the JSON body of an attempt. Error carries a
// client-side capability failure code instead of a transcript.
type attemptRequest struct {
	Transcript *string `json:"transcript"`
	Error      string  `json:"error"`
}

// ListAssessments returns the catalog with the caller's unlock state
func (h *AssessmentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	summaries, err := h.assessmentService.ListAssessments(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing assessments", err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// Start begins an assessment, or reports a stored session waiting to resume
func (h *AssessmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	view, err := h.assessmentService.Start(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error starting assessment", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Resume continues a stored session
func (h *AssessmentHandler) Resume(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	view, ok, err := h.assessmentService.Resume(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error resuming assessment", err)
		return
	}
	if !ok {
		respondWithJSONError(w, http.StatusNotFound, "no_session", "No saved session to resume", "", nil)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// StartFresh discards any saved progress and draws new words
func (h *AssessmentHandler) StartFresh(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	view, err := h.assessmentService.StartFresh(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error restarting assessment", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Attempt scores a response to the current word. The body is either JSON
// or a multipart form with an "audio" file.
func (h *AssessmentHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	in, cleanup, err := parseAttempt(w, r)
	if err != nil {
		respondWithJSONError(w, http.StatusBadRequest, "invalid_input", ErrInvalidRequestBody, "", nil)
		return
	}
	defer cleanup()

	outcome, err := h.assessmentService.Attempt(r.Context(), *user, r.PathValue("id"), in)
	if err != nil {
		respondWithServiceError(w, "Error recording attempt", err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// Skip records the current word as skipped
func (h *AssessmentHandler) Skip(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	outcome, err := h.assessmentService.Skip(r.Context(), *user, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error skipping word", err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// Discard abandons the caller's session
func (h *AssessmentHandler) Discard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	if err := h.assessmentService.Discard(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondWithServiceError(w, "Error discarding session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Result returns the latest final result
func (h *AssessmentHandler) Result(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	result, err := h.assessmentService.Result(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error loading result", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Speak renders the current word as audio and returns its URL
func (h *AssessmentHandler) Speak(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized, "", nil)
		return
	}

	rate := 1.0
	if v := r.URL.Query().Get("rate"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(parsed) {
			respondWithJSONError(w, http.StatusBadRequest, "invalid_input", "Invalid rate", "", nil)
			return
		}
		rate = parsed
	}

	filename, err := h.assessmentService.Speak(r.Context(), user.ID, r.PathValue("id"), rate)
	if err != nil {
		respondWithServiceError(w, "Error generating audio", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"audio_url": h.audioURLPrefix + "/" + filename,
	})
}

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseAttempt(w http.ResponseWriter, r *http.Request) (service.AttemptInput, func(), error) {
	noop := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload+1<<20)
		if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
			return service.AttemptInput{}, noop, err
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			r.MultipartForm.RemoveAll()
			return service.AttemptInput{}, noop, err
		}
		return service.AttemptInput{Audio: file}, func() {
			file.Close()
			r.MultipartForm.RemoveAll()
		}, nil
	}

	var req attemptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		return service.AttemptInput{}, noop, err
	}
	if req.Error != "" {
		return service.AttemptInput{ErrorCode: req.Error}, noop, nil
	}
	if req.Transcript == nil {
		return service.AttemptInput{}, noop, errors.New("transcript or error is required")
	}
	return service.AttemptInput{Transcript: *req.Transcript}, noop, nil
}
