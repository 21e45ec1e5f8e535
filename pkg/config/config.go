package config

import "time"

// Config is the root configuration structure for the proxy fleet test
// orchestrator. It contains every section needed to drive a run: source
// lists, validation rules, probe targets, rate-limit presets, the
// orchestrator's own tuning knobs, the engine binary location, the run
// history store, and the ambient observability stack.
type Config struct {
	// Sources lists the aggregator and direct URLs ingestion pulls from.
	Sources SourcesConfig `yaml:"sources"`

	// Validator contains URI validation rules.
	Validator ValidatorConfig `yaml:"validator"`

	// Probe contains the Test Probe's target URLs and timeouts.
	Probe ProbeConfig `yaml:"probe"`

	// RateLimit contains the keyed rate limiter's per-class presets and
	// strict-domain overrides.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Orchestrator contains worker-pool sizing, adaptive throttling
	// bounds, and per-stage deadlines.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Engine contains the proxy engine subprocess's executable path and
	// temp-config working directory.
	Engine EngineConfig `yaml:"engine"`

	// History contains the SQLite run-history store's path.
	History HistoryConfig `yaml:"history"`

	// Blocklist contains the file/git blacklist source's settings.
	Blocklist BlocklistConfig `yaml:"blocklist"`

	// Logging contains structured-logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains the Prometheus metrics exporter's settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed-tracing settings.
	Tracing TracingConfig `yaml:"tracing"`

	// Output contains the Phase 4 emission file paths.
	Output OutputConfig `yaml:"output"`
}

// OutputConfig locates the files Phase 4 emission writes.
type OutputConfig struct {
	// ResultsPath is where the JSON results array is written.
	// Default: "results.json"
	ResultsPath string `yaml:"results_path"`

	// BlacklistPath is where the plain-text blacklisted-URI list is
	// written.
	// Default: "blacklisted_configs.txt"
	BlacklistPath string `yaml:"blacklist_path"`

	// SubscriptionDir is where the subscription sink writes its
	// newline-delimited URI file.
	// Default: "./subscription"
	SubscriptionDir string `yaml:"subscription_dir"`
}

// SourcesConfig lists the subscription/config sources ingestion fetches.
type SourcesConfig struct {
	// AggregatorURLs are fetched first; they typically return many URIs
	// per response (subscription aggregators).
	// Default: empty
	AggregatorURLs []string `yaml:"aggregator_urls"`

	// DirectURLs are fetched after aggregators; each is expected to
	// return a smaller, curated set of URIs.
	// Default: empty
	DirectURLs []string `yaml:"direct_urls"`

	// RetryCount is how many times the Source Fetcher retries a failing
	// GET before giving up on that source.
	// Default: 3
	RetryCount int `yaml:"retry_count"`

	// Timeout bounds a single fetch attempt.
	// Default: 15s
	Timeout time.Duration `yaml:"timeout"`
}

// ValidatorConfig contains URI Validator rules.
type ValidatorConfig struct {
	// MaxURILength rejects any candidate URI longer than this.
	// Default: 4096
	MaxURILength int `yaml:"max_uri_length"`

	// AllowedSchemes restricts candidates to these connection-URI
	// schemes.
	// Default: ["vmess", "vless", "trojan", "ss", "tuic", "hysteria2"]
	AllowedSchemes []string `yaml:"allowed_schemes"`
}

// ProbeConfig contains the Test Probe's target URLs and timeouts.
type ProbeConfig struct {
	// LatencyTargets is an ordered list of {primary, fallback} ping
	// URLs; the probe stops at the first target with a success.
	// Default: a small built-in list of reliable endpoints
	LatencyTargets []string `yaml:"latency_targets"`

	// DownloadURL is streamed from to measure download throughput.
	DownloadURL string `yaml:"download_url"`

	// UploadURL receives the random upload payload.
	UploadURL string `yaml:"upload_url"`

	// ConnectivityURLs are GETed concurrently to test reachability of
	// commonly-blocked services.
	ConnectivityURLs map[string]string `yaml:"connectivity_urls"`

	// BypassCheckURL is HEADed to test DPI/censorship bypass.
	BypassCheckURL string `yaml:"bypass_check_url"`

	// Timeout bounds the whole per-job probe (latency + throughput +
	// connectivity + bypass).
	// Default: 20s
	Timeout time.Duration `yaml:"timeout"`
}

// BucketPreset is a token bucket's capacity and linear refill rate.
type BucketPreset struct {
	Capacity   int64   `yaml:"capacity"`
	RefillRate float64 `yaml:"refill_rate"`
}

// RateLimitConfig contains the keyed rate limiter's presets. They are
// loaded and validated, but the run's limiter uses its built-in preset
// tables, whose values equal these defaults; YAML values here do not
// change it.
type RateLimitConfig struct {
	// ClassPresets maps an operation class (test, fetch, geoip,
	// telegram, default) to its default bucket.
	ClassPresets map[string]BucketPreset `yaml:"class_presets"`

	// StrictDomains overrides ClassPresets for specific hosts known to
	// throttle aggressively (e.g. api.telegram.org).
	StrictDomains map[string]BucketPreset `yaml:"strict_domains"`

	// GlobalCapacity/GlobalRefillRate bound total throughput across all
	// keys, on top of any per-key bucket.
	// Default: 200 / 50.0
	GlobalCapacity   int64   `yaml:"global_capacity"`
	GlobalRefillRate float64 `yaml:"global_refill_rate"`
}

// OrchestratorConfig contains worker-pool sizing, adaptive throttling
// bounds, and per-stage deadlines.
type OrchestratorConfig struct {
	// MaxConcurrentTests caps the worker pool.
	// Default: 50
	MaxConcurrentTests int `yaml:"max_concurrent_tests"`

	// AdaptiveTesting enables the batch-size/sleep self-tuning.
	// Default: true
	AdaptiveTesting bool `yaml:"adaptive_testing"`

	// AdaptiveBatchMax/Min bound the adaptive batch size.
	// Default: 100 / 10
	AdaptiveBatchMax int `yaml:"adaptive_batch_max"`
	AdaptiveBatchMin int `yaml:"adaptive_batch_min"`

	// AdaptiveSleepMin/Max bound the per-worker throttling sleep.
	// Default: 100ms / 2s
	AdaptiveSleepMin time.Duration `yaml:"adaptive_sleep_min"`
	AdaptiveSleepMax time.Duration `yaml:"adaptive_sleep_max"`

	// MaxSuccess stops the run once this many working proxies are
	// found. Zero means unlimited.
	MaxSuccess int `yaml:"max_success"`

	// MaxRetries is how many consecutive failures blacklist a URI.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// TestTimeout/FragmentTimeout/SNITimeout bound the three probe
	// attempts a job may make (primary, fragment fallback, SNI
	// fallback).
	// Defaults: 30s / 30s / 25s
	TestTimeout     time.Duration `yaml:"test_timeout"`
	FragmentTimeout time.Duration `yaml:"fragment_timeout"`
	SNITimeout      time.Duration `yaml:"sni_timeout"`

	// GracefulShutdownTimeout bounds the Shutdown Manager's 3-phase
	// cleanup.
	// Default: 30s
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// EnableRateLimiting toggles whether fetch/test operations acquire
	// from the rate limiter at all (useful to disable in trusted,
	// low-volume test runs).
	// Default: true
	EnableRateLimiting bool `yaml:"enable_rate_limiting"`

	// BasePort is the first loopback port handed to worker 0; worker N
	// gets BasePort+N.
	// Default: 10800
	BasePort int `yaml:"base_port"`

	// ConfigDir is where per-job temp engine config files are written.
	// Default: the OS temp directory
	ConfigDir string `yaml:"config_dir"`
}

// EngineConfig locates the external proxy engine binary.
type EngineConfig struct {
	// ExecutablePath is the path to the engine binary the Proxy Engine
	// Adapter launches per job.
	ExecutablePath string `yaml:"executable_path"`
}

// HistoryConfig contains the run-history store's settings.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `yaml:"path"`
}

// BlocklistConfig contains the blacklist source's settings, mirroring
// the teacher's policy Mode: file | git split.
type BlocklistConfig struct {
	// Mode selects the backing source: "file" or "git".
	// Default: "file"
	Mode string `yaml:"mode"`

	// FilePath is the blacklist YAML file (file mode).
	FilePath string `yaml:"file_path"`

	// GitRepo/GitBranch/GitPath locate the blacklist YAML inside a Git
	// repository (git mode).
	GitRepo   string `yaml:"git_repo"`
	GitBranch string `yaml:"git_branch"`
	GitPath   string `yaml:"git_path"`

	// Watch enables hot-reload on change (file watch or Git poll).
	Watch bool `yaml:"watch"`

	// PollInterval is how often git mode re-pulls.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig contains structured-logging settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is one of "json", "text", "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in each log record.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets enables automatic redaction of proxy credentials
	// (UUIDs, passwords, pre-shared keys) from log fields.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// BufferSize is the async log buffer's capacity, in entries.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns adds custom redaction patterns on top of the
	// built-in ones.
	// Default: empty
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log-field redaction rule.
type RedactPattern struct {
	// Name identifies the pattern for diagnostics.
	Name string `yaml:"name"`

	// Pattern is the regular expression matched against field values.
	Pattern string `yaml:"pattern"`

	// Replacement is substituted for each match; supports $1-style
	// capture group references.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains the Prometheus exporter's settings.
type MetricsConfig struct {
	// Enabled toggles whether metrics are collected and written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is where metrics.txt is written at Phase 4.
	// Default: "metrics.txt"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric name prefix.
	// Default: "proxyfleet"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric name's second segment.
	// Default: "orchestrator"
	Subsystem string `yaml:"subsystem"`

	// ProbeDurationBuckets are the histogram buckets (seconds) used for
	// probe and fetch duration metrics.
	// Default: {0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	ProbeDurationBuckets []float64 `yaml:"probe_duration_buckets"`

	// ListenAddress, if set, serves a live Prometheus /metrics endpoint
	// for the run's duration, in addition to the Phase 4 metrics.txt
	// dump. Empty disables the endpoint.
	// Default: "" (disabled)
	ListenAddress string `yaml:"listen_address"`
}

// TracingConfig contains distributed-tracing settings.
type TracingConfig struct {
	// Enabled toggles span emission.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in exported spans.
	// Default: "proxyfleet-orchestrator"
	ServiceName string `yaml:"service_name"`

	// Sampler selects the sampling strategy: "always", "never", or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of runs traced, in [0, 1]. Only used
	// when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the span exporter: "otlp", "jaeger", or "zipkin".
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector address (OTLP gRPC target or Zipkin URL).
	Endpoint string `yaml:"endpoint"`

	// OTLP contains OTLP-exporter-specific settings.
	OTLP OTLPConfig `yaml:"otlp"`

	// Jaeger contains Jaeger-exporter-specific settings.
	Jaeger JaegerConfig `yaml:"jaeger"`
}

// OTLPConfig contains OTLP gRPC exporter settings.
type OTLPConfig struct {
	// Insecure disables transport credentials for the gRPC connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds the exporter's connection dial.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// JaegerConfig contains Jaeger agent settings.
type JaegerConfig struct {
	AgentHost string `yaml:"agent_host"`
	AgentPort int    `yaml:"agent_port"`
}
