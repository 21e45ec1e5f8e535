package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at path, applies
// defaults, validates the result, and returns any errors. Environment
// variables are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Booleans whose default is true are seeded before unmarshalling,
	// since ApplyDefaults cannot tell an unset bool from an explicit false.
	var cfg Config
	cfg.Orchestrator.AdaptiveTesting = DefaultAdaptiveTesting
	cfg.Orchestrator.EnableRateLimiting = DefaultEnableRateLimiting
	cfg.Logging.RedactSecrets = true
	cfg.Metrics.Enabled = DefaultMetricsEnabled
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention PROXYFLEET_SECTION_FIELD (e.g.
// PROXYFLEET_ORCHESTRATOR_MAX_CONCURRENT_TESTS) and always take
// precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PROXYFLEET_ENGINE_EXECUTABLE_PATH"); val != "" {
		cfg.Engine.ExecutablePath = val
	}
	if val := os.Getenv("PROXYFLEET_HISTORY_PATH"); val != "" {
		cfg.History.Path = val
	}

	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_MAX_CONCURRENT_TESTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.MaxConcurrentTests = i
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_MAX_SUCCESS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.MaxSuccess = i
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.MaxRetries = i
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_TEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Orchestrator.TestTimeout = d
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_BASE_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.BasePort = i
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_ENABLE_RATE_LIMITING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Orchestrator.EnableRateLimiting = b
		}
	}
	if val := os.Getenv("PROXYFLEET_ORCHESTRATOR_CONFIG_DIR"); val != "" {
		cfg.Orchestrator.ConfigDir = val
	}

	if val := os.Getenv("PROXYFLEET_BLOCKLIST_MODE"); val != "" {
		cfg.Blocklist.Mode = val
	}
	if val := os.Getenv("PROXYFLEET_BLOCKLIST_FILE_PATH"); val != "" {
		cfg.Blocklist.FilePath = val
	}
	if val := os.Getenv("PROXYFLEET_BLOCKLIST_GIT_REPO"); val != "" {
		cfg.Blocklist.GitRepo = val
	}
	if val := os.Getenv("PROXYFLEET_BLOCKLIST_GIT_BRANCH"); val != "" {
		cfg.Blocklist.GitBranch = val
	}
	if val := os.Getenv("PROXYFLEET_BLOCKLIST_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Blocklist.Watch = b
		}
	}

	if val := os.Getenv("PROXYFLEET_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PROXYFLEET_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	if val := os.Getenv("PROXYFLEET_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("PROXYFLEET_METRICS_PATH"); val != "" {
		cfg.Metrics.Path = val
	}

	if val := os.Getenv("PROXYFLEET_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("PROXYFLEET_TRACING_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
	}
	if val := os.Getenv("PROXYFLEET_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}
}
