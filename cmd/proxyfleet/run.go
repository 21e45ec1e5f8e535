package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/proxyfleet/orchestrator/pkg/blocklist"
	"github.com/proxyfleet/orchestrator/pkg/cli"
	"github.com/proxyfleet/orchestrator/pkg/config"
	"github.com/proxyfleet/orchestrator/pkg/engine"
	"github.com/proxyfleet/orchestrator/pkg/fetch"
	"github.com/proxyfleet/orchestrator/pkg/geoip"
	"github.com/proxyfleet/orchestrator/pkg/history"
	"github.com/proxyfleet/orchestrator/pkg/limits/ratelimit"
	"github.com/proxyfleet/orchestrator/pkg/notify"
	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
	"github.com/proxyfleet/orchestrator/pkg/output"
	"github.com/proxyfleet/orchestrator/pkg/probe"
	"github.com/proxyfleet/orchestrator/pkg/shutdown"
	"github.com/proxyfleet/orchestrator/pkg/subscription"
	"github.com/proxyfleet/orchestrator/pkg/telemetry/health"
	"github.com/proxyfleet/orchestrator/pkg/telemetry/logging"
	"github.com/proxyfleet/orchestrator/pkg/telemetry/metrics"
	"github.com/proxyfleet/orchestrator/pkg/telemetry/tracing"
	"github.com/proxyfleet/orchestrator/pkg/validator"
)

var runFlags struct {
	headless   bool
	maxConfigs int
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the proxy fleet test pipeline",
	Long: `Run the full test pipeline: ingest candidate URIs from the
configured sources, validate and deduplicate them, test each through a
disposable engine process, and emit the working subset.

Examples:
  # Run with default config
  proxyfleet run

  # Run headless (no TTY progress bar), capped at 50 working configs
  proxyfleet run --cli --max-configs 50

  # Validate config without running
  proxyfleet run --dry-run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.headless, "cli", false, "run headless: no TTY progress bar, structured logs only")
	runCmd.Flags().IntVar(&runFlags.maxConfigs, "max-configs", 0, "stop once this many working configs are found (0 = unlimited)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without running the pipeline")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.maxConfigs > 0 {
		cfg.Orchestrator.MaxSuccess = runFlags.maxConfigs
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		AddSource:      cfg.Logging.AddSource,
		RedactSecrets:  cfg.Logging.RedactSecrets,
		BufferSize:     cfg.Logging.BufferSize,
		RedactPatterns: cfg.Logging.RedactPatterns,
	})
	if err != nil {
		return cli.NewConfigError("logging", fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Shutdown()
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer tracer.Shutdown(context.Background())
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&cfg.Metrics, registry)
	checker := buildHealthChecker(cfg)

	if cfg.Metrics.ListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.Handle("/healthz", checker.LivenessHandler())
		mux.Handle("/readyz", checker.ReadinessHandler())
		mux.Handle("/version", health.VersionHandler(Version, GitCommit, BuildDate))

		srv := &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	deps, cleanup, err := buildDependencies(cfg, logger, collector)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer cleanup()

	sd := shutdown.New(logger.Slog())
	orch := orchestrator.New(toOrchestratorConfig(cfg.Orchestrator), deps, logger.Slog(), sd)

	type outcome struct {
		results []orchestrator.Result
		stats   orchestrator.Stats
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, stats, err := orch.Run(context.Background(), cfg.Sources.AggregatorURLs, cfg.Sources.DirectURLs)
		done <- outcome{results, stats, err}
	}()

	sigChan := cli.WaitForShutdown()
	var out outcome
	select {
	case out = <-done:
	case sig := <-sigChan:
		fmt.Printf("\nreceived signal %s, shutting down gracefully...\n", sig)
		sd.Request()
		sd.Execute(context.Background(), cfg.Orchestrator.GracefulShutdownTimeout)
		out = <-done
	}

	if out.err != nil {
		return cli.NewCommandError("run", out.err)
	}

	fmt.Printf("\ntested %d candidates: %d working, %d failed\n", out.stats.Tested, out.stats.Found, out.stats.Failed)
	return nil
}

// buildDependencies constructs every orchestrator collaborator from cfg,
// returning a cleanup func that closes whatever needs closing (the
// history store, primarily).
func buildDependencies(cfg *config.Config, logger *logging.Logger, collector *metrics.Collector) (orchestrator.Dependencies, func(), error) {
	blocklistFn, err := buildBlocklistSource(cfg.Blocklist, logger.Slog())
	if err != nil {
		return orchestrator.Dependencies{}, nil, fmt.Errorf("blocklist source: %w", err)
	}

	vcfg := validator.DefaultConfig()
	vcfg.MaxURILength = cfg.Validator.MaxURILength
	v := validator.New(vcfg, blocklistFn)
	fcfg := fetch.DefaultConfig()
	fcfg.RetryCount = cfg.Sources.RetryCount
	fcfg.Timeout = cfg.Sources.Timeout
	fcfg.Schemes = cfg.Validator.AllowedSchemes
	f := fetch.New(fcfg)
	e := engine.New(cfg.Engine.ExecutablePath, logger.Slog())
	p := probe.New(buildProbeConfig(cfg.Probe))
	g := geoip.New(nil, nil)
	rl := ratelimit.NewKeyedLimiter()

	var hist *history.Store
	cleanup := func() {}
	if cfg.History.Path != "" {
		hist, err = history.Open(history.Config{Path: cfg.History.Path})
		if err != nil {
			return orchestrator.Dependencies{}, nil, fmt.Errorf("history store: %w", err)
		}
		cleanup = func() { hist.Close() }
	}

	// A nil collector makes the exporter skip writing metrics.txt.
	exportCollector := collector
	if !cfg.Metrics.Enabled {
		exportCollector = nil
	}

	var progress cli.ProgressReporter
	if !runFlags.headless {
		progress = cli.NewProgressReporter(os.Stderr)
	}

	deps := orchestrator.Dependencies{
		Validator:       v,
		Fetcher:         f,
		Engine:          e,
		Prober:          p,
		RateLimiter:     rl,
		GeoResolver:     g,
		Notifier:        notify.NewLogSink(logger.Slog()),
		Subscription:    subscription.NewFileSink(cfg.Output.SubscriptionDir),
		ResultsWriter:   output.NewResultsWriter(cfg.Output.ResultsPath),
		BlacklistWriter: output.NewBlacklistWriter(cfg.Output.BlacklistPath),
		MetricsExporter: output.NewMetricsExporter(cfg.Metrics.Path, exportCollector),
		Progress:        progress,
	}
	if hist != nil {
		deps.History = hist
	}
	return deps, cleanup, nil
}

// buildHealthChecker registers liveness/readiness checks for the two
// external dependencies a run needs before it can test anything: the
// engine binary on disk and, in file mode, a readable blocklist file.
func buildHealthChecker(cfg *config.Config) *health.Checker {
	checker := health.New(5 * time.Second)

	checker.RegisterCheck("engine_binary", func(ctx context.Context) error {
		if cfg.Engine.ExecutablePath == "" {
			return fmt.Errorf("engine.executable_path is not configured")
		}
		if _, err := os.Stat(cfg.Engine.ExecutablePath); err != nil {
			return fmt.Errorf("engine binary unreachable: %w", err)
		}
		return nil
	})

	if cfg.Blocklist.Mode != "git" {
		checker.RegisterCheck("blocklist_file", func(ctx context.Context) error {
			if cfg.Blocklist.FilePath == "" {
				return nil
			}
			if _, err := os.Stat(cfg.Blocklist.FilePath); err != nil {
				return fmt.Errorf("blocklist file unreachable: %w", err)
			}
			return nil
		})
	}

	return checker
}

// buildProbeConfig adapts the flat probe.Config target-URL shape from
// config.ProbeConfig's latency-target list and connectivity-URL map,
// falling back to probe.DefaultConfig()'s built-ins for targets the
// config section has no equivalent for.
func buildProbeConfig(cfg config.ProbeConfig) probe.Config {
	pc := probe.DefaultConfig()
	pc.DownloadURL = cfg.DownloadURL
	pc.UploadURL = cfg.UploadURL
	pc.CensorshipCheckURL = cfg.BypassCheckURL
	pc.Timeout = cfg.Timeout.Seconds()

	if len(cfg.LatencyTargets) > 0 {
		pc.PingURL = cfg.LatencyTargets[0]
	}
	if len(cfg.LatencyTargets) > 1 {
		pc.PingFallbackURL = cfg.LatencyTargets[1]
	}
	if url, ok := cfg.ConnectivityURLs["telegram"]; ok {
		pc.TelegramURL = url
	}
	if url, ok := cfg.ConnectivityURLs["instagram"]; ok {
		pc.InstagramURL = url
	}
	if url, ok := cfg.ConnectivityURLs["youtube"]; ok {
		pc.YouTubeURL = url
	}
	return pc
}

// buildBlocklistSource loads the configured blocklist source once, wires
// up hot-reload watching if enabled, and returns a closure always
// returning the most recently loaded snapshot. Git-mode authentication
// credentials are intentionally absent from config.BlocklistConfig
// (secrets do not belong in config.yaml) and are instead read from
// environment variables.
func buildBlocklistSource(cfg config.BlocklistConfig, logger *slog.Logger) (func() blocklist.Blocklist, error) {
	var source blocklist.Source
	switch cfg.Mode {
	case "git":
		gitCfg := blocklist.GitSourceConfig{
			Repository:   cfg.GitRepo,
			Branch:       cfg.GitBranch,
			Path:         cfg.GitPath,
			PollInterval: cfg.PollInterval,
		}
		if token := os.Getenv("PROXYFLEET_BLOCKLIST_GIT_TOKEN"); token != "" {
			gitCfg.AuthMode = blocklist.GitAuthToken
			gitCfg.Token = token
		} else if keyPath := os.Getenv("PROXYFLEET_BLOCKLIST_GIT_SSH_KEY_PATH"); keyPath != "" {
			gitCfg.AuthMode = blocklist.GitAuthSSH
			gitCfg.SSHKeyPath = keyPath
			gitCfg.SSHKeyPass = os.Getenv("PROXYFLEET_BLOCKLIST_GIT_SSH_KEY_PASS")
		} else {
			gitCfg.AuthMode = blocklist.GitAuthNone
		}
		source = blocklist.NewGitSource(gitCfg, logger)
	default:
		source = blocklist.NewFileSource(cfg.FilePath, logger)
	}

	ctx := context.Background()
	bl, err := source.Load(ctx)
	if err != nil {
		logger.Warn("initial blocklist load failed, starting with an empty blocklist", "error", err)
		bl = blocklist.Blocklist{}
	}

	var current atomic.Value
	current.Store(bl)

	if cfg.Watch {
		if err := source.Watch(ctx, func(b blocklist.Blocklist) { current.Store(b) }); err != nil {
			logger.Warn("blocklist watch failed to start", "error", err)
		}
	}

	return func() blocklist.Blocklist { return current.Load().(blocklist.Blocklist) }, nil
}

func toOrchestratorConfig(cfg config.OrchestratorConfig) orchestrator.Config {
	return orchestrator.Config{
		MaxConcurrentTests:      cfg.MaxConcurrentTests,
		AdaptiveTesting:         cfg.AdaptiveTesting,
		AdaptiveBatchMax:        cfg.AdaptiveBatchMax,
		AdaptiveBatchMin:        cfg.AdaptiveBatchMin,
		AdaptiveSleepMin:        cfg.AdaptiveSleepMin,
		AdaptiveSleepMax:        cfg.AdaptiveSleepMax,
		MaxSuccess:              cfg.MaxSuccess,
		MaxRetries:              cfg.MaxRetries,
		TestTimeout:             cfg.TestTimeout,
		FragmentTimeout:         cfg.FragmentTimeout,
		SNITimeout:              cfg.SNITimeout,
		GracefulShutdownTimeout: cfg.GracefulShutdownTimeout,
		EnableRateLimiting:      cfg.EnableRateLimiting,
		BasePort:                cfg.BasePort,
		ConfigDir:               cfg.ConfigDir,
	}
}
