package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxAudioBytes matches the 25MB upload limit of the transcription endpoint
const maxAudioBytes = 25 << 20

// Recognizer turns one recorded utterance into a transcript
type Recognizer interface {
	Transcribe(ctx context.Context, audio io.Reader, language string) (string, error)
}

// WhisperRecognizer transcribes through an OpenAI-compatible
// /audio/transcriptions endpoint
type WhisperRecognizer struct {
	api      *openai.Client
	model    string
	filename string
}

// NewWhisperRecognizer creates a recognizer. An empty baseURL uses the
// OpenAI default.
func NewWhisperRecognizer(baseURL, apiKey, model string) *WhisperRecognizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperRecognizer{
		api:      openai.NewClientWithConfig(config),
		model:    model,
		filename: "utterance.webm",
	}
}

// Transcribe uploads the audio and returns the recognized text. Empty audio
// is an audio-capture failure and an empty transcript is a no-speech failure.
func (r *WhisperRecognizer) Transcribe(ctx context.Context, audio io.Reader, language string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, maxAudioBytes+1))
	if err != nil {
		return "", &CapabilityError{Code: "audio-capture", Err: fmt.Errorf("%w: %v", ErrAudioCapture, err)}
	}
	if len(data) == 0 {
		return "", NewCapabilityError(ErrAudioCapture)
	}
	if len(data) > maxAudioBytes {
		return "", &CapabilityError{Code: "audio-capture", Err: fmt.Errorf("%w: recording exceeds %d bytes", ErrAudioCapture, maxAudioBytes)}
	}

	resp, err := r.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: r.filename,
		Reader:   bytes.NewReader(data),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
			// The endpoint rejects audio it cannot decode
			return "", &CapabilityError{Code: "audio-capture", Err: fmt.Errorf("%w: %v", ErrAudioCapture, err)}
		}
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", NewCapabilityError(ErrNoSpeech)
	}
	return text, nil
}
