package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"pronounce/internal/models"
)

const exportVersion = "1.0"

// ResultLister reads stored final results. An empty userID lists every user.
type ResultLister interface {
	ListFinalResults(ctx context.Context, userID string) ([]models.FinalResult, error)
}

// ExportData is the JSON document written by an export
type ExportData struct {
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exported_at"`
	UserID     string               `json:"user_id,omitempty"`
	Results    []models.FinalResult `json:"results"`
}

// ExportService dumps final results as JSON
type ExportService struct {
	results ResultLister
	now     func() time.Time
}

// NewExportService creates a new export service
func NewExportService(results ResultLister) *ExportService {
	return &ExportService{results: results, now: time.Now}
}

// Export writes the results of userID, or of every user when empty, to a file
func (s *ExportService) Export(ctx context.Context, outputPath, userID string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	n, err := s.export(ctx, file, userID)
	if err != nil {
		return err
	}

	log.Printf("Exported %d results to %s", n, outputPath)
	return file.Close()
}

// ExportToWriter writes the export document to w
func (s *ExportService) ExportToWriter(ctx context.Context, w io.Writer, userID string) error {
	_, err := s.export(ctx, w, userID)
	return err
}

func (s *ExportService) export(ctx context.Context, w io.Writer, userID string) (int, error) {
	results, err := s.results.ListFinalResults(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to export results: %w", err)
	}
	if results == nil {
		results = []models.FinalResult{}
	}

	data := ExportData{
		Version:    exportVersion,
		ExportedAt: s.now().UTC(),
		UserID:     userID,
		Results:    results,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(results), nil
}
