package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.Quality != QualityNormal {
		t.Errorf("expected default quality %q, got %q", QualityNormal, cfg.Quality)
	}
	a := cfg.Assessment
	if a.MinSituations != 3 || a.MaxSituations != 5 || a.DominantCount != 2 {
		t.Errorf("unexpected assessment defaults: %+v", a)
	}
	if cfg.OracleTimeout() != 60*time.Second || cfg.ScenarioTimeout() != 60*time.Second {
		t.Errorf("unexpected timeouts: %v, %v", cfg.OracleTimeout(), cfg.ScenarioTimeout())
	}
	if cfg.TranscriptionTimeout() != 30*time.Second {
		t.Errorf("unexpected transcription timeout: %v", cfg.TranscriptionTimeout())
	}
	if cfg.DatabasePath() != filepath.Join("data", "assessment.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.assessment.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.Quality = QualityMax
	original.Language = "es"
	original.Assessment.MaxSituations = 7
	original.Timeouts.OracleSeconds = 30
	original.Server.Port = 9090

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if *loaded != *original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("FOOTBALL_PROVIDER", "google")
	t.Setenv("FOOTBALL_ASSESSMENT__MAX_SITUATIONS", "4")
	t.Setenv("FOOTBALL_SERVER__PORT", "9000")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderGoogle {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderGoogle)
	}
	if loaded.Assessment.MaxSituations != 4 {
		t.Errorf("nested env override failed: got %d", loaded.Assessment.MaxSituations)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("nested env override failed: got %d", loaded.Server.Port)
	}
	if loaded.Assessment.DominantCount != 2 {
		t.Errorf("sibling key lost: got %d", loaded.Assessment.DominantCount)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"empty provider":     func(c *Config) { c.Provider = "" },
		"unknown provider":   func(c *Config) { c.Provider = "minimax" },
		"empty model":        func(c *Config) { c.Model = "" },
		"unknown quality":    func(c *Config) { c.Quality = "ultra" },
		"empty data dir":     func(c *Config) { c.DataDir = "" },
		"unknown log level":  func(c *Config) { c.LogLevel = "chatty" },
		"zero max":           func(c *Config) { c.Assessment.MaxSituations = 0 },
		"min above max":      func(c *Config) { c.Assessment.MinSituations = 6 },
		"negative dominant":  func(c *Config) { c.Assessment.DominantCount = -1 },
		"zero timeout":       func(c *Config) { c.Timeouts.OracleSeconds = 0 },
		"zero transcription": func(c *Config) { c.Timeouts.TranscriptionSeconds = 0 },
		"negative rpm":       func(c *Config) { c.RateLimitRPM = -1 },
		"bad port":           func(c *Config) { c.Server.Port = 70000 },
	}
	for name, mutate := range tests {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestModelFor(t *testing.T) {
	if got := ModelFor(ProviderAnthropic, QualityLite); got != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", got)
	}
	if got := ModelFor(ProviderGoogle, QualityNormal); got != "gemini-2.5-pro" {
		t.Errorf("expected gemini pro, got %q", got)
	}

	// Unknown combination falls back.
	if got := ModelFor("unknown", QualityLite); got != "gpt-4o" {
		t.Errorf("expected fallback to gpt-4o, got %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidatePositiveInt(t *testing.T) {
	for _, s := range []string{"0", "-2", "five", ""} {
		if validatePositiveInt(s) == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
	if err := validatePositiveInt("5"); err != nil {
		t.Errorf("expected 5 to be accepted: %v", err)
	}
}
