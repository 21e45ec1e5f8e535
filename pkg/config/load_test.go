package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempConfig(t, `
sources:
  aggregator_urls: ["https://example.com/sub1"]
engine:
  executable_path: "/usr/local/bin/xray"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orchestrator.MaxConcurrentTests != DefaultMaxConcurrentTests {
		t.Errorf("expected default orchestrator settings to be applied")
	}
	if len(cfg.Sources.AggregatorURLs) != 1 {
		t.Errorf("expected aggregator urls to round-trip from yaml")
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeTempConfig(t, `
orchestrator:
  max_concurrent_tests: -1
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for negative concurrency")
	}
}

func TestLoadConfigWithEnvOverridesTakesPrecedence(t *testing.T) {
	path := writeTempConfig(t, `
orchestrator:
  max_concurrent_tests: 10
`)
	t.Setenv("PROXYFLEET_ORCHESTRATOR_MAX_CONCURRENT_TESTS", "25")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orchestrator.MaxConcurrentTests != 25 {
		t.Errorf("expected env override to win, got %d", cfg.Orchestrator.MaxConcurrentTests)
	}
}
