package config

import "testing"

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Orchestrator.MaxConcurrentTests != DefaultMaxConcurrentTests {
		t.Errorf("expected default max concurrent tests, got %d", cfg.Orchestrator.MaxConcurrentTests)
	}
	if cfg.Orchestrator.BasePort != DefaultBasePort {
		t.Errorf("expected default base port, got %d", cfg.Orchestrator.BasePort)
	}
	if len(cfg.Validator.AllowedSchemes) == 0 {
		t.Error("expected default allowed schemes to be populated")
	}
	if cfg.RateLimit.GlobalCapacity != DefaultGlobalCapacity {
		t.Errorf("expected default global capacity, got %d", cfg.RateLimit.GlobalCapacity)
	}
	if len(cfg.RateLimit.ClassPresets) == 0 {
		t.Error("expected default class presets to be populated")
	}
	if cfg.Blocklist.Mode != DefaultBlocklistMode {
		t.Errorf("expected default blocklist mode, got %q", cfg.Blocklist.Mode)
	}
	if cfg.Logging.Level != DefaultLoggingLevel {
		t.Errorf("expected default logging level, got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaultsDoesNotOverwriteExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Orchestrator.MaxConcurrentTests = 7
	cfg.Logging.Level = "debug"

	ApplyDefaults(&cfg)

	if cfg.Orchestrator.MaxConcurrentTests != 7 {
		t.Errorf("expected explicit value preserved, got %d", cfg.Orchestrator.MaxConcurrentTests)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected explicit value preserved, got %q", cfg.Logging.Level)
	}
}
