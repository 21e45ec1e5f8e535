package config

import "time"

// Default values for configuration fields.
const (
	DefaultSourcesRetryCount = 3
	DefaultSourcesTimeout    = 15 * time.Second

	DefaultMaxURILength = 4096

	DefaultProbeTimeout = 20 * time.Second

	DefaultGlobalCapacity   int64   = 200
	DefaultGlobalRefillRate float64 = 50.0

	DefaultMaxConcurrentTests      = 50
	DefaultAdaptiveTesting         = true
	DefaultAdaptiveBatchMax        = 100
	DefaultAdaptiveBatchMin        = 10
	DefaultAdaptiveSleepMin        = 100 * time.Millisecond
	DefaultAdaptiveSleepMax        = 2 * time.Second
	DefaultMaxRetries              = 3
	DefaultTestTimeout             = 30 * time.Second
	DefaultFragmentTimeout         = 30 * time.Second
	DefaultSNITimeout              = 25 * time.Second
	DefaultGracefulShutdownTimeout = 30 * time.Second
	DefaultEnableRateLimiting      = true
	DefaultBasePort                = 10800

	DefaultBlocklistMode         = "file"
	DefaultBlocklistFilePath     = "./blacklist.yaml"
	DefaultBlocklistGitBranch    = "main"
	DefaultBlocklistGitPath      = "blacklist.yaml"
	DefaultBlocklistPollInterval = 5 * time.Minute

	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultLoggingBufferSize = 10000

	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "metrics.txt"
	DefaultMetricsNamespace = "proxyfleet"
	DefaultMetricsSubsystem = "orchestrator"

	DefaultTracingEnabled     = false
	DefaultTracingServiceName = "proxyfleet-orchestrator"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingOTLPTimeout = 10 * time.Second

	DefaultResultsPath     = "results.json"
	DefaultBlacklistPath   = "blacklisted_configs.txt"
	DefaultSubscriptionDir = "./subscription"
)

// defaultAllowedSchemes are the connection-URI schemes the orchestrator
// knows how to parse.
var defaultAllowedSchemes = []string{"vmess", "vless", "trojan", "ss", "tuic", "hysteria2"}

// defaultClassPresets mirror the reference rate limiter's per-operation
// defaults.
var defaultClassPresets = map[string]BucketPreset{
	"test":    {Capacity: 50, RefillRate: 10.0},
	"fetch":   {Capacity: 20, RefillRate: 5.0},
	"geoip":   {Capacity: 10, RefillRate: 2.0},
	"telegram": {Capacity: 30, RefillRate: 1.0},
	"default": {Capacity: 100, RefillRate: 20.0},
}

// defaultStrictDomains mirror the reference rate limiter's per-domain
// overrides for hosts known to throttle aggressively.
var defaultStrictDomains = map[string]BucketPreset{
	"api.telegram.org": {Capacity: 30, RefillRate: 0.5},
	"ipapi.co":         {Capacity: 10, RefillRate: 0.5},
	"ipwho.is":         {Capacity: 10, RefillRate: 0.5},
	"ip-api.com":       {Capacity: 5, RefillRate: 0.2},
}

// ApplyDefaults fills in zero-valued fields with sensible defaults. It
// never overwrites a value the caller (or the YAML file) already set.
func ApplyDefaults(cfg *Config) {
	if cfg.Sources.RetryCount == 0 {
		cfg.Sources.RetryCount = DefaultSourcesRetryCount
	}
	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = DefaultSourcesTimeout
	}

	if cfg.Validator.MaxURILength == 0 {
		cfg.Validator.MaxURILength = DefaultMaxURILength
	}
	if len(cfg.Validator.AllowedSchemes) == 0 {
		cfg.Validator.AllowedSchemes = append([]string(nil), defaultAllowedSchemes...)
	}

	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = DefaultProbeTimeout
	}

	if cfg.RateLimit.ClassPresets == nil {
		cfg.RateLimit.ClassPresets = defaultClassPresets
	}
	if cfg.RateLimit.StrictDomains == nil {
		cfg.RateLimit.StrictDomains = defaultStrictDomains
	}
	if cfg.RateLimit.GlobalCapacity == 0 {
		cfg.RateLimit.GlobalCapacity = DefaultGlobalCapacity
	}
	if cfg.RateLimit.GlobalRefillRate == 0 {
		cfg.RateLimit.GlobalRefillRate = DefaultGlobalRefillRate
	}

	o := &cfg.Orchestrator
	if o.MaxConcurrentTests == 0 {
		o.MaxConcurrentTests = DefaultMaxConcurrentTests
	}
	if o.AdaptiveBatchMax == 0 {
		o.AdaptiveBatchMax = DefaultAdaptiveBatchMax
	}
	if o.AdaptiveBatchMin == 0 {
		o.AdaptiveBatchMin = DefaultAdaptiveBatchMin
	}
	if o.AdaptiveSleepMin == 0 {
		o.AdaptiveSleepMin = DefaultAdaptiveSleepMin
	}
	if o.AdaptiveSleepMax == 0 {
		o.AdaptiveSleepMax = DefaultAdaptiveSleepMax
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.TestTimeout == 0 {
		o.TestTimeout = DefaultTestTimeout
	}
	if o.FragmentTimeout == 0 {
		o.FragmentTimeout = DefaultFragmentTimeout
	}
	if o.SNITimeout == 0 {
		o.SNITimeout = DefaultSNITimeout
	}
	if o.GracefulShutdownTimeout == 0 {
		o.GracefulShutdownTimeout = DefaultGracefulShutdownTimeout
	}
	if o.BasePort == 0 {
		o.BasePort = DefaultBasePort
	}

	if cfg.Blocklist.Mode == "" {
		cfg.Blocklist.Mode = DefaultBlocklistMode
	}
	if cfg.Blocklist.FilePath == "" && cfg.Blocklist.Mode == "file" {
		cfg.Blocklist.FilePath = DefaultBlocklistFilePath
	}
	if cfg.Blocklist.GitBranch == "" {
		cfg.Blocklist.GitBranch = DefaultBlocklistGitBranch
	}
	if cfg.Blocklist.GitPath == "" {
		cfg.Blocklist.GitPath = DefaultBlocklistGitPath
	}
	if cfg.Blocklist.PollInterval == 0 {
		cfg.Blocklist.PollInterval = DefaultBlocklistPollInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.BufferSize == 0 {
		cfg.Logging.BufferSize = DefaultLoggingBufferSize
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.ProbeDurationBuckets) == 0 {
		cfg.Metrics.ProbeDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}

	if cfg.Output.ResultsPath == "" {
		cfg.Output.ResultsPath = DefaultResultsPath
	}
	if cfg.Output.BlacklistPath == "" {
		cfg.Output.BlacklistPath = DefaultBlacklistPath
	}
	if cfg.Output.SubscriptionDir == "" {
		cfg.Output.SubscriptionDir = DefaultSubscriptionDir
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}
