package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pronounce/internal/service"
	"pronounce/internal/session"
	"pronounce/internal/speech"
	"pronounce/internal/wordbank"
)

// errorBody is the JSON error envelope of the API
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithJSONError(w http.ResponseWriter, status int, code, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorBody{Error: userMsg, Code: code})
}

// respondWithServiceError maps an assessment error to its HTTP status
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var capErr *speech.CapabilityError
	var corrupt *session.CorruptStateError

	switch {
	case errors.As(err, &capErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:     capErr.Error(),
			Code:      capErr.Code,
			Retryable: capErr.Retryable(),
		})
	case errors.As(err, &corrupt):
		log.Printf("Warning: %s: %v", logMsg, err)
		respondJSON(w, http.StatusConflict, errorBody{
			Error: "Saved progress could not be restored. Start the assessment again.",
			Code:  "corrupt_state",
		})
	case errors.Is(err, wordbank.ErrAssessmentNotFound):
		respondWithJSONError(w, http.StatusNotFound, "not_found", "Assessment not found", "", nil)
	case errors.Is(err, service.ErrNoResult):
		respondWithJSONError(w, http.StatusNotFound, "no_result", "No result for this assessment yet", "", nil)
	case errors.Is(err, service.ErrLocked):
		respondWithJSONError(w, http.StatusForbidden, "locked", err.Error(), "", nil)
	case errors.Is(err, session.ErrInvalidState):
		respondWithJSONError(w, http.StatusConflict, "invalid_state", err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondWithJSONError(w, http.StatusBadRequest, "invalid_input", err.Error(), "", nil)
	case errors.Is(err, service.ErrSpeechUnavailable):
		respondWithJSONError(w, http.StatusServiceUnavailable, "speech_unavailable", "Speech service is not available", logMsg, err)
	case errors.Is(err, session.ErrConfiguration):
		respondWithJSONError(w, http.StatusInternalServerError, "configuration", ErrInternalServerError, logMsg, err)
	default:
		respondWithJSONError(w, http.StatusInternalServerError, "internal", ErrInternalServerError, logMsg, err)
	}
}
