package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":9100" {
		t.Errorf("Expected default addr :9100, got %q", cfg.Server.Addr)
	}
	if cfg.Matcher.KeepThreshold != 0.6 {
		t.Errorf("Expected keep threshold 0.6, got %f", cfg.Matcher.KeepThreshold)
	}
	if cfg.Pipeline.QualityThreshold != 0.7 {
		t.Errorf("Expected quality threshold 0.7, got %f", cfg.Pipeline.QualityThreshold)
	}
	if cfg.Quality.Normalizer != 10 {
		t.Errorf("Expected quality normalizer 10, got %f", cfg.Quality.Normalizer)
	}
	if len(cfg.Keywords) == 0 {
		t.Error("Expected default brand keywords")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Error("Empty path must return the defaults")
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  addr: ":8080"
  read_timeout: 10s
pipeline:
  strict_grounding: true
matcher:
  keep_threshold: 0.65
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected overridden addr, got %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected overridden read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if !cfg.Pipeline.StrictGrounding {
		t.Error("Expected strict grounding enabled")
	}
	if cfg.Matcher.KeepThreshold != 0.65 {
		t.Errorf("Expected overridden keep threshold, got %f", cfg.Matcher.KeepThreshold)
	}

	// Untouched sections keep their defaults.
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Expected default write timeout preserved, got %s", cfg.Server.WriteTimeout)
	}
	if cfg.Pipeline.QualityThreshold != 0.7 {
		t.Errorf("Expected default quality threshold preserved, got %f", cfg.Pipeline.QualityThreshold)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}
