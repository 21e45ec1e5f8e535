// Package orchestrator owns the candidate queue, the worker pool, and
// the adaptive testing parameters that drive the proxy fleet test
// pipeline end to end: ingestion, prioritisation, per-job testing with
// bypass fallbacks, and result aggregation.
package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/proxyfleet/orchestrator/pkg/bypass"
	"github.com/proxyfleet/orchestrator/pkg/cli"
	"github.com/proxyfleet/orchestrator/pkg/descriptor"
	"github.com/proxyfleet/orchestrator/pkg/engine"
	"github.com/proxyfleet/orchestrator/pkg/geoip"
	"github.com/proxyfleet/orchestrator/pkg/limits/ratelimit"
	"github.com/proxyfleet/orchestrator/pkg/probe"
)

// Config governs worker count, adaptive throttling, and the various
// per-stage deadlines.
type Config struct {
	MaxConcurrentTests      int
	AdaptiveTesting         bool
	AdaptiveBatchMax        int
	AdaptiveBatchMin        int
	AdaptiveSleepMin        time.Duration
	AdaptiveSleepMax        time.Duration
	MaxSuccess              int // 0 = unlimited
	MaxRetries              int
	TestTimeout             time.Duration
	FragmentTimeout         time.Duration
	SNITimeout              time.Duration
	GracefulShutdownTimeout time.Duration
	EnableRateLimiting      bool
	BasePort                int
	ConfigDir               string
}

// DefaultConfig mirrors the reference orchestrator's defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTests:      50,
		AdaptiveTesting:         true,
		AdaptiveBatchMax:        100,
		AdaptiveBatchMin:        10,
		AdaptiveSleepMin:        100 * time.Millisecond,
		AdaptiveSleepMax:        2 * time.Second,
		MaxSuccess:              0,
		MaxRetries:              3,
		TestTimeout:             30 * time.Second,
		FragmentTimeout:         30 * time.Second,
		SNITimeout:              25 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,
		EnableRateLimiting:      true,
		BasePort:                10800,
		ConfigDir:               "",
	}
}

// Result is a successful Test Job's record, ready for the subscription
// sink and the history store.
type Result struct {
	probe.Result
	URI         string
	Country     string
	CountryCode string
	City        string
	ISP         string
}

// Stats summarises a completed (or in-flight) run for reporting.
type Stats struct {
	Total   int
	Tested  int
	Found   int
	Failed  int
	AvgPing float64
}

// State is the orchestrator's shared, mutex-guarded run state.
type State struct {
	mu sync.Mutex

	uniqueURIs     map[string]bool
	knownURIs      map[string]bool
	blacklist      map[string]bool
	failureCounts  map[string]int
	results        []Result
	totals         Stats
	adaptiveBatch  int
	adaptiveSleep  time.Duration
}

func newState(known map[string]bool, cfg Config) *State {
	if known == nil {
		known = make(map[string]bool)
	}
	return &State{
		uniqueURIs:    make(map[string]bool),
		knownURIs:     known,
		blacklist:     make(map[string]bool),
		failureCounts: make(map[string]int),
		adaptiveBatch: cfg.AdaptiveBatchMax,
		adaptiveSleep: cfg.AdaptiveSleepMin,
	}
}

// Dependencies bundles every collaborator the orchestrator drives.
// Validator, Fetcher, Engine and Prober are required; the other fields
// may be nil, which skips that side effect.
type Dependencies struct {
	Validator interface {
		ValidateURI(uri string) bool
		ValidateDescriptor(d *descriptor.Descriptor) bool
	}
	Fetcher interface {
		Fetch(ctx context.Context, url string, logger *slog.Logger) []string
	}
	Engine interface {
		Start(ctx context.Context, configPath string, port int) (*engine.Handle, error)
		Stop(h *engine.Handle)
	}
	Prober interface {
		Probe(ctx context.Context, d *descriptor.Descriptor, port int) (*probe.Result, error)
	}
	RateLimiter *ratelimit.KeyedLimiter
	GeoResolver interface {
		Resolve(ctx context.Context, ip string) geoip.Info
	}
	Notifier interface {
		Notify(ctx context.Context, result Result) error
	}
	History interface {
		KnownURIs(ctx context.Context) (map[string]bool, error)
		Record(ctx context.Context, result Result) error
	}

	// HTTPClient drives Phase 0's network-status check. Defaults to
	// http.DefaultClient when nil.
	HTTPClient *http.Client

	// Subscription, ResultsWriter, BlacklistWriter, and MetricsExporter
	// back Phase 4's emission step. Each is optional; a nil value skips
	// that emission side effect rather than failing the run.
	Subscription interface {
		Publish(ctx context.Context, results []Result) error
	}
	ResultsWriter interface {
		Write(ctx context.Context, results []Result) error
	}
	BlacklistWriter interface {
		Write(ctx context.Context, blacklist []string) error
	}
	MetricsExporter interface {
		Export(ctx context.Context) error
	}

	// Progress receives Start/Update/Finish calls across the testing
	// phase, every 2s, alongside the structured log line. Optional;
	// a nil value means progress is only visible in the logs.
	Progress cli.ProgressReporter
}

// bypassHooks exist purely so tests can stub the package-level bypass
// helpers without monkey-patching global functions.
type bypassHooks struct {
	shouldAutoFragment func(uri string) bool
	randomSNI          func() string
	sortByPriority     func(uris []string) []string
}

func defaultBypassHooks() bypassHooks {
	return bypassHooks{
		shouldAutoFragment: bypass.ShouldAutoFragment,
		randomSNI:          bypass.RandomSNI,
		sortByPriority:     bypass.SortByPriority,
	}
}
