package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"pronounce/internal/config"
	"pronounce/internal/database"
	"pronounce/internal/repository"
	"pronounce/internal/service"
)

func main() {
	output := flag.String("output", "", "Output file path (default: results_YYYYMMDD_HHMMSS.json, - for stdout)")
	userID := flag.String("user", "", "Only export results for this user id")
	flag.Usage = printUsage
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	exportService := service.NewExportService(repository.NewProgressRepository(db))

	if *output == "-" {
		if err := exportService.ExportToWriter(ctx, os.Stdout, *userID); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	handleExport(ctx, exportService, *output, *userID)
}

func handleExport(ctx context.Context, exportService *service.ExportService, outputPath, userID string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("results_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting results to: %s", outputPath)
	if err := exportService.Export(ctx, outputPath, userID); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	// Get file size
	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func printUsage() {
	fmt.Println("Pronunciation Results Export Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  export [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -output <file>    Output file path (default: results_YYYYMMDD_HHMMSS.json, - for stdout)")
	fmt.Println("  -user <id>        Only export results for this user id")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  export")
	fmt.Println("  export -user 42 -output results/42.json")
	fmt.Println("  export -output - | jq '.results | length'")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./data/pronounce.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
