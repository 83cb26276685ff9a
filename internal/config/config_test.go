package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.CheckpointTimeout != 10*time.Second {
		t.Errorf("CheckpointTimeout = %v, want 10s", cfg.CheckpointTimeout)
	}
	if !cfg.TTSEnabled {
		t.Error("TTSEnabled should default to true")
	}
	if cfg.SpeechRateLimit != 30 {
		t.Errorf("SpeechRateLimit = %d, want 30", cfg.SpeechRateLimit)
	}
	if cfg.STTEnabled() || cfg.EmailEnabled() {
		t.Error("STT and email should be disabled without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_TYPE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/pronounce")
	t.Setenv("TTS_ENABLED", "off")
	t.Setenv("CHECKPOINT_TIMEOUT", "3")
	t.Setenv("STT_API_KEY", "sk-test")
	t.Setenv("SPEECH_RATE_LIMIT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
	}
	if cfg.TTSEnabled {
		t.Error("TTSEnabled = true, want false")
	}
	if cfg.CheckpointTimeout != 3*time.Second {
		t.Errorf("CheckpointTimeout = %v, want 3s", cfg.CheckpointTimeout)
	}
	if cfg.SpeechRateLimit != 0 {
		t.Errorf("SpeechRateLimit = %d, want 0", cfg.SpeechRateLimit)
	}
	if !cfg.STTEnabled() {
		t.Error("STTEnabled() = false with an API key")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServerPort:        "8080",
			DatabaseType:      "sqlite",
			DatabasePath:      "test.db",
			JWTSecret:         "secret",
			CheckpointTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.ServerPort = "" }, "PORT"},
		{"unknown database", func(c *Config) { c.DatabaseType = "oracle" }, "DATABASE_TYPE"},
		{"mysql without url", func(c *Config) { c.DatabaseType = "mysql" }, "DATABASE_URL"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"zero timeout", func(c *Config) { c.CheckpointTimeout = 0 }, "CHECKPOINT_TIMEOUT"},
		{"negative rate limit", func(c *Config) { c.SpeechRateLimit = -1 }, "SPEECH_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDatabaseSkipsServerSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load() without JWT_SECRET expected error")
	}
	cfg, err := LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if cfg.DatabasePath != "./data/pronounce.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}

	t.Setenv("DATABASE_TYPE", "oracle")
	if _, err := LoadDatabase(); err == nil {
		t.Error("LoadDatabase() with unknown type expected error")
	}
}
