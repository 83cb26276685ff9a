package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pronounce/internal/models"
)

type fakeLister struct {
	results []models.FinalResult
	err     error
	userID  string
}

func (f *fakeLister) ListFinalResults(_ context.Context, userID string) ([]models.FinalResult, error) {
	f.userID = userID
	return f.results, f.err
}

func TestExportToWriter(t *testing.T) {
	exportedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		userID  string
		results []models.FinalResult
		want    int
	}{
		{"single user", "u1", []models.FinalResult{{ID: "r1", UserID: "u1", AssessmentID: "es-basics", AverageScore: 82, Passed: true}}, 1},
		{"all users", "", []models.FinalResult{{ID: "r1", UserID: "u1"}, {ID: "r2", UserID: "u2"}}, 2},
		{"nothing stored", "u3", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{results: tt.results}
			s := NewExportService(lister)
			s.now = func() time.Time { return exportedAt }

			var buf bytes.Buffer
			if err := s.ExportToWriter(context.Background(), &buf, tt.userID); err != nil {
				t.Fatalf("ExportToWriter() error = %v", err)
			}
			if lister.userID != tt.userID {
				t.Errorf("listed user %q, want %q", lister.userID, tt.userID)
			}

			var data ExportData
			if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if data.Version != exportVersion || !data.ExportedAt.Equal(exportedAt) {
				t.Errorf("header = %q %v", data.Version, data.ExportedAt)
			}
			if len(data.Results) != tt.want {
				t.Errorf("got %d results, want %d", len(data.Results), tt.want)
			}
			if !bytes.Contains(buf.Bytes(), []byte(`"results": [`)) {
				t.Error("results should encode as an array")
			}
		})
	}
}

func TestExportToFile(t *testing.T) {
	lister := &fakeLister{results: []models.FinalResult{{ID: "r1", UserID: "u1"}}}
	path := filepath.Join(t.TempDir(), "results.json")

	if err := NewExportService(lister).Export(context.Background(), path, "u1"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Contains(content, []byte(`"id": "r1"`)) {
		t.Errorf("export file missing result: %s", content)
	}
}

func TestExportListError(t *testing.T) {
	boom := errors.New("db down")
	s := NewExportService(&fakeLister{err: boom})

	var buf bytes.Buffer
	if err := s.ExportToWriter(context.Background(), &buf, ""); !errors.Is(err, boom) {
		t.Errorf("ExportToWriter() error = %v, want %v", err, boom)
	}
}
