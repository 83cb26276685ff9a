package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pronounce/internal/config"
	"pronounce/internal/database"
	"pronounce/internal/feedback"
	"pronounce/internal/handlers"
	"pronounce/internal/repository"
	"pronounce/internal/security"
	"pronounce/internal/service"
	"pronounce/internal/session"
	"pronounce/internal/speech"
	"pronounce/internal/wordbank"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// A missing .env file is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	bank, err := wordbank.Open(cfg.WordBankPath)
	if err != nil {
		log.Fatalf("Failed to load word bank: %v", err)
	}

	log.Printf("Word bank loaded with %d assessments", len(bank.ListAssessments()))

	catalog, err := feedback.New(cfg.FeedbackLanguage)
	if err != nil {
		log.Fatalf("Failed to load feedback messages: %v", err)
	}

	// Optional speech and email integrations
	opts := []service.Option{
		service.WithSessionOptions(session.WithWriteTimeout(cfg.CheckpointTimeout)),
	}

	if cfg.STTEnabled() {
		opts = append(opts, service.WithRecognizer(speech.NewWhisperRecognizer(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel)))
		log.Printf("Speech-to-text enabled (model: %s)", cfg.STTModel)
	}

	mux := http.NewServeMux()

	if cfg.TTSEnabled {
		speaker := speech.NewGoogleSpeaker(cfg.AudioDir)
		opts = append(opts, service.WithSpeaker(speaker))
		mux.Handle("GET /audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(speaker.AudioDir()))))
		log.Printf("Text-to-speech enabled (audio dir: %s)", cfg.AudioDir)
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Printf("Warning: Failed to initialize email service: %v", err)
	} else if emailService.IsEnabled() {
		opts = append(opts, service.WithNotifier(emailService))
	}

	// Initialize services
	progressRepo := repository.NewProgressRepository(db)
	assessmentService := service.NewAssessmentService(bank, progressRepo, catalog, opts...)

	var limiter *security.RateLimiter
	if cfg.SpeechRateLimit > 0 {
		limiter = security.NewRateLimiter(cfg.SpeechRateLimit, time.Minute)
		go limiter.Run(ctx, time.Hour)
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(cfg.JWTSecret, limiter)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService, "/audio/")

	// Setup routes
	mux.HandleFunc("GET /healthz", handlers.Health)
	assessmentHandler.Register(mux, middleware)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	// Pending checkpoints and result emails
	if err := assessmentService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error flushing sessions: %v", err)
	}
}
