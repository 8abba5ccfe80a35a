package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Phase != 1 {
		t.Errorf("expected phase 1, got %d", cfg.Phase)
	}
	if cfg.PhaseOneCount != 24 {
		t.Errorf("expected phase_one_count 24, got %d", cfg.PhaseOneCount)
	}
	if cfg.Wiki.BaseURL != "https://psychonautwiki.org" {
		t.Errorf("unexpected wiki base url %q", cfg.Wiki.BaseURL)
	}
	if cfg.Archive.MaxResults != 10000 {
		t.Errorf("expected max_results 10000, got %d", cfg.Archive.MaxResults)
	}
	if cfg.Language.Target != "en" {
		t.Errorf("expected target language 'en', got %q", cfg.Language.Target)
	}
	if cfg.Contact.Name == "" || cfg.Contact.Email == "" {
		t.Error("expected contact headers to be populated")
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
phase: 2
contact:
  name: Jane Doe
  email: jane@example.com
http:
  request_delay: 1500ms
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Phase != 2 {
		t.Errorf("expected phase 2, got %d", cfg.Phase)
	}
	if cfg.HTTP.RequestDelay != 1500*time.Millisecond {
		t.Errorf("expected 1.5s delay, got %v", cfg.HTTP.RequestDelay)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Archive.BaseURL != "https://www.erowid.org" {
		t.Errorf("expected default archive base url, got %q", cfg.Archive.BaseURL)
	}
	if !cfg.Archive.BodyFallback {
		t.Error("expected body_fallback to default to true")
	}
}

func TestParseRejectsUnknownPhase(t *testing.T) {
	if _, err := parse([]byte("phase: 3\n")); err == nil {
		t.Error("expected error for phase 3")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Archive.DailyQuota != 5000 {
		t.Errorf("expected daily quota 5000, got %d", cfg.Archive.DailyQuota)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestGetCatalogPath(t *testing.T) {
	cfg := &Config{}
	if filepath.Base(cfg.GetCatalogPath()) != "psychedelics.csv" {
		t.Errorf("unexpected default catalog path %q", cfg.GetCatalogPath())
	}
	cfg.Catalog = "data/catalog.csv"
	if cfg.GetCatalogPath() != "data/catalog.csv" {
		t.Errorf("expected explicit catalog path, got %q", cfg.GetCatalogPath())
	}
}

func TestParseRejectsNegativeGroupThreshold(t *testing.T) {
	_, err := parse([]byte("output:\n  effect_group_threshold: -1\n"))
	if err == nil {
		t.Fatal("expected error for negative threshold")
	}
}
