package speech

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestGoogleSpeakerCachesAudio(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("tl") != "fr" || q.Get("q") != "Bonjour" || q.Get("ttsspeed") != "0.50" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte("ID3-fake-mp3"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "audio")
	s := NewGoogleSpeaker(dir)
	s.baseURL = srv.URL

	ctx := context.Background()
	name, err := s.Speak(ctx, "Bonjour", "fr", 0.5)
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if name != "word_fr_bonjour_050.mp3" {
		t.Errorf("filename = %q", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(data) != "ID3-fake-mp3" {
		t.Fatalf("cached file = %q, %v", data, err)
	}

	if _, err := s.Speak(ctx, "Bonjour", "fr", 0.5); err != nil {
		t.Fatalf("second Speak() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("endpoint called %d times, want 1", calls.Load())
	}
}

func TestGoogleSpeakerUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewGoogleSpeaker(dir)
	s.baseURL = srv.URL

	if _, err := s.Speak(context.Background(), "hola", "es", 1); err == nil {
		t.Fatal("expected error for non-200 response")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed download left %d files behind", len(entries))
	}
}

func TestAudioFilename(t *testing.T) {
	tests := []struct {
		text, lang string
		rate       float64
		want       string
	}{
		{"Buenos días", "es", 1, "word_es_buenos_días_100.mp3"},
		{"../../etc/passwd", "en", 1, "word_en_etcpasswd_100.mp3"},
		{"?!", "fr", 0.25, "word_fr_phrase_025.mp3"},
		{"hola", "es/../x", 1, "word_esx_hola_100.mp3"},
	}
	for _, tt := range tests {
		if got := audioFilename(tt.text, tt.lang, tt.rate); got != tt.want {
			t.Errorf("audioFilename(%q, %q) = %q, want %q", tt.text, tt.lang, got, tt.want)
		}
	}
}

func TestClampRate(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 1}, {-2, 1}, {0.05, 0.1}, {0.7, 0.7}, {3, 1},
		{math.NaN(), 1}, {math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := clampRate(tt.in); got != tt.want {
			t.Errorf("clampRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
