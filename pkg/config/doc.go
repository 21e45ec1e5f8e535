// Package config provides configuration management for the proxy fleet
// test orchestrator.
//
// This package handles loading, validating, and managing configuration
// from YAML files with environment variable overrides. It provides a
// type-safe configuration system with comprehensive validation and
// sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention
// PROXYFLEET_SECTION_FIELD. For example:
//
//   - PROXYFLEET_ORCHESTRATOR_MAX_CONCURRENT_TESTS overrides
//     orchestrator.max_concurrent_tests
//   - PROXYFLEET_ENGINE_EXECUTABLE_PATH overrides engine.executable_path
//   - PROXYFLEET_LOGGING_LEVEL overrides logging.level
//
// Environment variables always take precedence over file-based
// configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later
// overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Orchestrator.MaxConcurrentTests)
//
// For testing, prefer dependency injection with explicit Config
// instances rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading.
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - orchestrator.base_port: must be a valid port number
//	  - blocklist.git_repo: required when mode is "git"
//
// # Example Configuration
//
//	sources:
//	  aggregator_urls: ["https://example.com/sub1"]
//
//	orchestrator:
//	  max_concurrent_tests: 50
//	  max_success: 200
//
//	engine:
//	  executable_path: "/usr/local/bin/xray"
//
//	history:
//	  path: "data/history.db"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses
// a read-write lock to allow concurrent reads while protecting against
// concurrent writes during reload operations.
package config
