package speech

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	googleTTSURL      = "https://translate.google.com/translate_tts"
	ttsRequestTimeout = 10 * time.Second

	// Google's ttsspeed accepts roughly this range
	minRate = 0.1
	maxRate = 1.0
)

// Speaker renders text as audio and returns a filename under its audio
// directory
type Speaker interface {
	Speak(ctx context.Context, text, language string, rate float64) (string, error)
}

// GoogleSpeaker uses Google Translate's text-to-speech endpoint and caches
// the mp3 files on disk
type GoogleSpeaker struct {
	audioDir string
	baseURL  string
	client   *http.Client
}

// NewGoogleSpeaker creates a speaker writing into audioDir
func NewGoogleSpeaker(audioDir string) *GoogleSpeaker {
	return &GoogleSpeaker{
		audioDir: audioDir,
		baseURL:  googleTTSURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
}

// AudioDir is where generated files are written
func (s *GoogleSpeaker) AudioDir() string {
	return s.audioDir
}

// Speak converts text to speech and saves it as MP3. Existing files are reused.
// Returns the filename (not full path) on success.
func (s *GoogleSpeaker) Speak(ctx context.Context, text, language string, rate float64) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to speak")
	}
	rate = clampRate(rate)

	filename := audioFilename(text, language, rate)
	path := filepath.Join(s.audioDir, filename)

	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return filename, nil
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	if err := s.generate(ctx, text, language, rate, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}

	return filename, nil
}

func (s *GoogleSpeaker) generate(ctx context.Context, text, language string, rate float64, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", language)
	params.Set("client", "tw-ob")
	params.Set("ttsspeed", strconv.FormatFloat(rate, 'f', 2, 64))
	params.Set("textlen", strconv.Itoa(len([]rune(text))))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never leaves a
	// truncated mp3 in the cache
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return os.Rename(tmp.Name(), outputPath)
}

func clampRate(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) {
		return maxRate
	}
	return min(max(rate, minRate), maxRate)
}

// audioFilename keeps letters and digits of text so cached names stay
// readable and cannot escape the audio directory
func audioFilename(text, language string, rate float64) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "phrase"
	}
	lang := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return -1
	}, language)
	return fmt.Sprintf("word_%s_%s_%03d.mp3", lang, name, int(math.Round(rate*100)))
}
