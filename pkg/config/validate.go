package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "orchestrator.max_concurrent_tests").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access
// to all field errors.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail, or nil if valid. All
// validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateValidator(&cfg.Validator)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateOrchestrator(&cfg.Orchestrator)...)
	errs = append(errs, validateBlocklist(&cfg.Blocklist)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateTracing(&cfg.Tracing)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateValidator(v *ValidatorConfig) []FieldError {
	var errs []FieldError
	if v.MaxURILength <= 0 {
		errs = append(errs, FieldError{"validator.max_uri_length", "must be positive"})
	}
	if len(v.AllowedSchemes) == 0 {
		errs = append(errs, FieldError{"validator.allowed_schemes", "must not be empty"})
	}
	return errs
}

func validateRateLimit(r *RateLimitConfig) []FieldError {
	var errs []FieldError
	if r.GlobalCapacity <= 0 {
		errs = append(errs, FieldError{"rate_limit.global_capacity", "must be positive"})
	}
	if r.GlobalRefillRate <= 0 {
		errs = append(errs, FieldError{"rate_limit.global_refill_rate", "must be positive"})
	}
	for name, preset := range r.ClassPresets {
		if preset.Capacity <= 0 {
			errs = append(errs, FieldError{fmt.Sprintf("rate_limit.class_presets.%s.capacity", name), "must be positive"})
		}
		if preset.RefillRate <= 0 {
			errs = append(errs, FieldError{fmt.Sprintf("rate_limit.class_presets.%s.refill_rate", name), "must be positive"})
		}
	}
	return errs
}

func validateOrchestrator(o *OrchestratorConfig) []FieldError {
	var errs []FieldError
	if o.MaxConcurrentTests <= 0 {
		errs = append(errs, FieldError{"orchestrator.max_concurrent_tests", "must be positive"})
	}
	if o.AdaptiveBatchMin > o.AdaptiveBatchMax {
		errs = append(errs, FieldError{"orchestrator.adaptive_batch_min", "must not exceed adaptive_batch_max"})
	}
	if o.AdaptiveSleepMin > o.AdaptiveSleepMax {
		errs = append(errs, FieldError{"orchestrator.adaptive_sleep_min", "must not exceed adaptive_sleep_max"})
	}
	if o.MaxRetries <= 0 {
		errs = append(errs, FieldError{"orchestrator.max_retries", "must be positive"})
	}
	if o.MaxSuccess < 0 {
		errs = append(errs, FieldError{"orchestrator.max_success", "must not be negative"})
	}
	if o.BasePort <= 0 || o.BasePort > 65535 {
		errs = append(errs, FieldError{"orchestrator.base_port", "must be a valid port number"})
	}
	return errs
}

func validateBlocklist(b *BlocklistConfig) []FieldError {
	var errs []FieldError
	switch b.Mode {
	case "file":
		if b.FilePath == "" {
			errs = append(errs, FieldError{"blocklist.file_path", "required when mode is \"file\""})
		}
	case "git":
		if b.GitRepo == "" {
			errs = append(errs, FieldError{"blocklist.git_repo", "required when mode is \"git\""})
		}
	default:
		errs = append(errs, FieldError{"blocklist.mode", "must be \"file\" or \"git\""})
	}
	return errs
}

func validateLogging(l *LoggingConfig) []FieldError {
	var errs []FieldError
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"logging.level", "must be one of debug, info, warn, error"})
	}
	switch l.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{"logging.format", "must be one of json, text, console"})
	}
	return errs
}

func validateTracing(t *TracingConfig) []FieldError {
	var errs []FieldError
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, FieldError{"tracing.sample_ratio", "must be between 0 and 1"})
	}
	return errs
}
