package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string // sqlite, postgres or mysql
	DatabasePath string
	DatabaseURL  string

	// Catalog override; the built-in catalog is used when empty
	WordBankPath string

	JWTSecret string

	AudioDir   string
	TTSEnabled bool

	// OpenAI-compatible transcription endpoint; disabled without a key
	STTBaseURL string
	STTAPIKey  string
	STTModel   string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	CheckpointTimeout time.Duration
	FeedbackLanguage  string

	// Attempts and speech requests per user per minute; 0 disables the limit
	SpeechRateLimit int
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDatabase is Load for offline tools that only open the database
func LoadDatabase() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		ServerPort:        getEnv("PORT", "8080"),
		DatabaseType:      strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabasePath:      getEnv("DB_PATH", "./data/pronounce.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		WordBankPath:      getEnv("WORDBANK_PATH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AudioDir:          getEnv("AUDIO_DIR", "./data/audio"),
		TTSEnabled:        getEnvBool("TTS_ENABLED", true),
		STTBaseURL:        getEnv("STT_BASE_URL", ""),
		STTAPIKey:         getEnv("STT_API_KEY", ""),
		STTModel:          getEnv("STT_MODEL", "whisper-1"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Pronounce"),
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:        getEnvBool("EMAIL_DEBUG", false),
		CheckpointTimeout: getEnvDuration("CHECKPOINT_TIMEOUT", 10*time.Second),
		FeedbackLanguage:  getEnv("FEEDBACK_LANG", "en"),
		SpeechRateLimit:   getEnvInt("SPEECH_RATE_LIMIT", 30),
	}
}

// Validate checks that required settings are present and consistent
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.CheckpointTimeout <= 0 {
		return fmt.Errorf("CHECKPOINT_TIMEOUT must be > 0")
	}
	if c.SpeechRateLimit < 0 {
		return fmt.Errorf("SPEECH_RATE_LIMIT cannot be negative")
	}
	return nil
}

// ValidateDatabase checks the database settings only
func (c *Config) ValidateDatabase() error {
	switch c.DatabaseType {
	case "sqlite", "sqlite3":
		if c.DatabasePath == "" {
			return fmt.Errorf("DB_PATH cannot be empty for sqlite")
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE: %s", c.DatabaseType)
	}
	return nil
}

// STTEnabled reports whether server-side transcription is configured
func (c *Config) STTEnabled() bool {
	return c.STTAPIKey != ""
}

// EmailEnabled reports whether result notifications can be sent
func (c *Config) EmailEnabled() bool {
	return c.SESFromEmail != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
