package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/proxyfleet/orchestrator/pkg/bypass"
	"github.com/proxyfleet/orchestrator/pkg/descriptor"
	"github.com/proxyfleet/orchestrator/pkg/limits/ratelimit"
	"github.com/proxyfleet/orchestrator/pkg/probe"
	"github.com/proxyfleet/orchestrator/pkg/shutdown"
)

// Orchestrator owns the queue, the worker pool, and the shared run
// state described in the data model: unique/known URI sets, blacklist,
// failure counts, and result accumulation.
type Orchestrator struct {
	cfg    Config
	deps   Dependencies
	hooks  bypassHooks
	state  *State
	logger *slog.Logger
	sd     *shutdown.Manager

	limitReached atomic.Bool
}

// New builds an Orchestrator. sd may be nil, in which case a fresh
// shutdown.Manager is created (useful for standalone runs; a caller
// wiring signal handling should pass its own).
func New(cfg Config, deps Dependencies, logger *slog.Logger, sd *shutdown.Manager) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if sd == nil {
		sd = shutdown.New(logger)
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		hooks:  defaultBypassHooks(),
		logger: logger,
		sd:     sd,
	}
}

// Run executes the full pipeline: network check, ingestion,
// prioritisation, testing, and emission. It returns the accumulated
// results and run stats.
func (o *Orchestrator) Run(ctx context.Context, aggregatorSources, directSources []string) ([]Result, Stats, error) {
	known := map[string]bool{}
	if o.deps.History != nil {
		if loaded, err := o.deps.History.KnownURIs(ctx); err == nil {
			known = loaded
		} else {
			o.logger.Warn("failed to load known uris from history", "error", err)
		}
	}
	o.state = newState(known, o.cfg)

	runCtx, cancel := context.WithCancel(ctx)
	o.sd.RegisterTask(cancel)
	defer cancel()

	// Phase 0: network check.
	o.checkNetwork(runCtx)
	if o.sd.IsRequested() {
		return nil, o.snapshotStats(), nil
	}

	// Phase 1 + 2: ingestion from both source lists, concurrently per URL.
	o.logger.Info("ingesting sources", "aggregators", len(aggregatorSources), "direct", len(directSources))
	o.ingest(runCtx, append(append([]string{}, aggregatorSources...), directSources...))

	if o.sd.IsRequested() {
		return nil, o.snapshotStats(), nil
	}

	// Phase 2.5: prioritisation.
	queue := o.prioritise()
	o.state.mu.Lock()
	o.state.totals.Total = len(queue)
	o.state.mu.Unlock()

	o.logger.Info("testing queue ready", "total", len(queue), "workers", o.cfg.MaxConcurrentTests)

	// Phase 3: testing.
	o.runWorkers(runCtx, queue)

	stats := o.snapshotStats()
	o.logger.Info("run complete", "found", stats.Found, "failed", stats.Failed, "total", stats.Total)

	results := o.snapshotResults()
	o.emit(ctx, results)

	return results, stats, nil
}

// checkNetwork classifies the local network's filtering status. An
// outage (neither domestic nor international targets reachable) halts
// the run entirely; filtering prefetches clean Cloudflare IPs on a
// best-effort basis and logs how many were found. The list is not kept.
func (o *Orchestrator) checkNetwork(ctx context.Context) {
	client := o.deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	status := bypass.CheckNetworkStatus(ctx, client)
	if status.FilteringDetected == nil {
		o.logger.Warn("network outage detected, requesting shutdown")
		o.sd.Request()
		return
	}
	if *status.FilteringDetected {
		o.logger.Info("filtering detected, prefetching clean ips")
		ips := bypass.DiscoverCleanIPs(ctx, client, 20, 256, 5*time.Second)
		o.logger.Info("clean ip prefetch complete", "found", len(ips))
	}
}

// emit is Phase 4: hand results to the subscription sink, write the raw
// results and blacklist files, and export metrics. Every destination is
// optional and failures are logged, not fatal — the run already
// succeeded by the time emission happens.
func (o *Orchestrator) emit(ctx context.Context, results []Result) {
	if o.deps.Subscription != nil {
		if err := o.deps.Subscription.Publish(ctx, results); err != nil {
			o.logger.Warn("subscription publish failed", "error", err)
		}
	}
	if o.deps.ResultsWriter != nil {
		if err := o.deps.ResultsWriter.Write(ctx, results); err != nil {
			o.logger.Warn("results write failed", "error", err)
		}
	}
	if o.deps.BlacklistWriter != nil {
		o.state.mu.Lock()
		blacklist := make([]string, 0, len(o.state.blacklist))
		for uri := range o.state.blacklist {
			blacklist = append(blacklist, uri)
		}
		o.state.mu.Unlock()
		if err := o.deps.BlacklistWriter.Write(ctx, blacklist); err != nil {
			o.logger.Warn("blacklist write failed", "error", err)
		}
	}
	if o.deps.MetricsExporter != nil {
		if err := o.deps.MetricsExporter.Export(ctx); err != nil {
			o.logger.Warn("metrics export failed", "error", err)
		}
	}
}

func (o *Orchestrator) ingest(ctx context.Context, sources []string) {
	var wg sync.WaitGroup
	for _, url := range sources {
		url := url
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o.sd.IsRequested() {
				return
			}
			if o.cfg.EnableRateLimiting && o.deps.RateLimiter != nil {
				o.deps.RateLimiter.Acquire(ctx, ratelimit.KeyForURL(url), ratelimit.OpFetch)
			}
			uris := o.deps.Fetcher.Fetch(ctx, url, o.logger)
			o.enqueueUnique(uris)
		}()
	}
	wg.Wait()
}

func (o *Orchestrator) enqueueUnique(uris []string) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	for _, uri := range uris {
		if o.state.uniqueURIs[uri] {
			continue
		}
		if !o.deps.Validator.ValidateURI(uri) {
			continue
		}
		o.state.uniqueURIs[uri] = true
	}
}

// prioritise drains the unique-URI set into a slice, sorted by
// descending protocol priority (Reality/XTLS first).
func (o *Orchestrator) prioritise() []string {
	o.state.mu.Lock()
	uris := make([]string, 0, len(o.state.uniqueURIs))
	for uri := range o.state.uniqueURIs {
		uris = append(uris, uri)
	}
	o.state.mu.Unlock()
	return o.hooks.sortByPriority(uris)
}

func (o *Orchestrator) runWorkers(ctx context.Context, queue []string) {
	numWorkers := o.cfg.MaxConcurrentTests
	if len(queue) < numWorkers {
		numWorkers = len(queue)
	}
	if numWorkers == 0 {
		o.logger.Info("no candidates found to test")
		return
	}

	jobs := make(chan string, len(queue))
	for _, uri := range queue {
		jobs <- uri
	}
	close(jobs)

	if o.deps.Progress != nil {
		o.deps.Progress.Start(int64(len(queue)))
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			o.worker(ctx, workerID, jobs)
		}(i)
	}

	stopProgress := make(chan struct{})
	go o.reportProgress(stopProgress)

	wg.Wait()
	close(stopProgress)

	if o.deps.Progress != nil {
		o.deps.Progress.Finish()
	}
}

func (o *Orchestrator) reportProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := o.snapshotStats()
			percent := 0.0
			if stats.Total > 0 {
				percent = float64(stats.Tested) / float64(stats.Total) * 100
			}
			o.logger.Info("progress", "tested", stats.Tested, "total", stats.Total, "percent", percent, "found", stats.Found, "failed", stats.Failed)
			if o.deps.Progress != nil {
				o.deps.Progress.Update(int64(stats.Tested))
			}
		}
	}
}

// worker runs the per-job pipeline for every uri it pulls off jobs until
// the channel is exhausted or shutdown is requested. A panic anywhere in
// the pipeline is recovered so one bad job can never take the worker
// down; it's counted as tested (not as a failure) and the worker keeps
// going.
func (o *Orchestrator) worker(ctx context.Context, workerID int, jobs <-chan string) {
	port := o.cfg.BasePort + workerID
	successCount, totalCount := 0, 0

	for uri := range jobs {
		if o.sd.IsRequested() {
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("worker recovered from panic", "worker", workerID, "uri", truncate(uri), "panic", r)
					o.recordProgress(false)
				}
			}()

			if o.limitReached.Load() {
				return // drain as a no-op once the success cap is hit
			}

			if o.isBlacklisted(uri) {
				o.recordProgress(false)
				return
			}

			totalCount++
			result, ok := o.runJob(ctx, uri, port)
			if ok {
				successCount++
				o.recordSuccess(uri, result)
				if o.cfg.MaxSuccess > 0 && o.state.snapshotFound() >= o.cfg.MaxSuccess {
					o.limitReached.Store(true)
				}
			} else {
				o.recordFailure(uri)
			}
			o.recordProgress(ok)

			if o.cfg.AdaptiveTesting && totalCount%10 == 0 {
				o.updateAdaptiveParams(successCount, totalCount)
				if sleep := o.state.snapshotSleep(); sleep > 0 {
					time.Sleep(sleep)
				}
			}
		}()
	}
}

// runJob executes the per-job pipeline: parse, rate-limit acquire,
// probe, and (on failure) the fragment and SNI bypass fallbacks.
func (o *Orchestrator) runJob(ctx context.Context, uri string, port int) (Result, bool) {
	desc, err := descriptor.Parse(uri, port)
	if err != nil {
		o.logger.Debug("parse failed, permanent skip", "uri", truncate(uri), "error", err)
		return Result{}, false
	}
	if !o.deps.Validator.ValidateDescriptor(desc) {
		return Result{}, false
	}

	if o.cfg.EnableRateLimiting && o.deps.RateLimiter != nil {
		host := primaryHost(desc)
		o.deps.RateLimiter.Acquire(ctx, host, ratelimit.OpTest)
	}

	probeCtx, cancel := context.WithTimeout(ctx, o.cfg.TestTimeout)
	res, err := o.runProbe(probeCtx, desc, port)
	cancel()
	fragmentMode := false
	customSNI := ""

	if err != nil && o.hooks.shouldAutoFragment(uri) {
		fragCtx, fragCancel := context.WithTimeout(ctx, o.cfg.FragmentTimeout)
		res, err = o.runProbe(fragCtx, desc.InjectFragment(), port)
		fragCancel()
		if err == nil {
			fragmentMode = true
		}
	}

	if err != nil && (desc.Candidate.Scheme == descriptor.SchemeVLESS || desc.Candidate.Scheme == descriptor.SchemeVMess) {
		sni := o.hooks.randomSNI()
		sniCtx, sniCancel := context.WithTimeout(ctx, o.cfg.SNITimeout)
		res, err = o.runProbe(sniCtx, desc.InjectSNI(sni), port)
		sniCancel()
		if err == nil {
			customSNI = sni
		}
	}

	if err != nil || res == nil {
		return Result{}, false
	}

	res.FragmentMode = fragmentMode
	res.CustomSNI = customSNI

	var geo geoipInfo
	if o.deps.GeoResolver != nil {
		info := o.deps.GeoResolver.Resolve(ctx, res.IP)
		geo = geoipInfo{Country: info.Country, CountryCode: info.CountryCode, City: info.City, ISP: info.ISP}
	}

	return Result{
		Result:      *res,
		URI:         uri,
		Country:     geo.Country,
		CountryCode: geo.CountryCode,
		City:        geo.City,
		ISP:         geo.ISP,
	}, true
}

type geoipInfo struct {
	Country, CountryCode, City, ISP string
}

// runProbe starts the engine against a freshly written config file for
// d, probes it, and always stops the engine and removes the temp config
// afterward regardless of the probe outcome.
func (o *Orchestrator) runProbe(ctx context.Context, d *descriptor.Descriptor, port int) (*probe.Result, error) {
	configPath, err := o.writeConfig(d, port)
	if err != nil {
		return nil, err
	}
	defer o.removeConfig(configPath)

	handle, err := o.deps.Engine.Start(ctx, configPath, port)
	if err != nil {
		return nil, err
	}
	if handle.PID != 0 {
		o.sd.RegisterChild(handle.PID)
	}
	defer func() {
		o.deps.Engine.Stop(handle)
		if handle.PID != 0 {
			o.sd.UnregisterChild(handle.PID)
		}
	}()

	return o.deps.Prober.Probe(ctx, d, port)
}

func (o *Orchestrator) writeConfig(d *descriptor.Descriptor, port int) (string, error) {
	body, err := d.ToEngineConfig()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("temp_config_%d_%s.json", port, uuid.New().String()[:8])
	path := filepath.Join(o.cfg.ConfigDir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// removeConfig retries unlinking for up to ~1.5s, since some platforms
// hold a lock on the file until the engine's handle is fully closed.
func (o *Orchestrator) removeConfig(path string) {
	deadline := time.Now().Add(1500 * time.Millisecond)
	for {
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			o.logger.Warn("failed to remove temp config after retrying", "path", path, "error", err)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (o *Orchestrator) isBlacklisted(uri string) bool {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	return o.state.blacklist[uri]
}

func (o *Orchestrator) recordSuccess(uri string, result Result) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()

	result.URI = uri
	o.state.results = append(o.state.results, result)
	o.state.totals.Found++
	delete(o.state.failureCounts, uri)

	if o.deps.RateLimiter != nil {
		o.deps.RateLimiter.RecordSuccess(primaryHostFromResult(result))
	}

	isNew := !o.state.knownURIs[uri]
	if isNew && o.deps.Notifier != nil {
		go func(r Result) {
			if err := o.deps.Notifier.Notify(context.Background(), r); err != nil {
				o.logger.Warn("notification failed", "uri", truncate(r.URI), "error", err)
			}
		}(result)
	}
	if o.deps.History != nil {
		go func(r Result) {
			if err := o.deps.History.Record(context.Background(), r); err != nil {
				o.logger.Warn("history record failed", "uri", truncate(r.URI), "error", err)
			}
		}(result)
	}
}

func (o *Orchestrator) recordFailure(uri string) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()

	o.state.totals.Failed++
	o.state.failureCounts[uri]++
	if o.state.failureCounts[uri] >= o.cfg.MaxRetries {
		o.state.blacklist[uri] = true
		o.logger.Info("blacklisted after repeated failures", "uri", truncate(uri), "failures", o.state.failureCounts[uri])
	}
}

// recordProgress increments the tested counter exactly once per
// completed queue item, regardless of outcome.
func (o *Orchestrator) recordProgress(success bool) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	o.state.totals.Tested++
}

func (o *Orchestrator) updateAdaptiveParams(successCount, totalCount int) {
	if totalCount == 0 {
		return
	}
	rate := float64(successCount) / float64(totalCount)

	o.state.mu.Lock()
	defer o.state.mu.Unlock()

	switch {
	case rate > 0.8:
		o.state.adaptiveBatch += 10
		if o.state.adaptiveBatch > o.cfg.AdaptiveBatchMax {
			o.state.adaptiveBatch = o.cfg.AdaptiveBatchMax
		}
		o.state.adaptiveSleep -= 50 * time.Millisecond
		if o.state.adaptiveSleep < o.cfg.AdaptiveSleepMin {
			o.state.adaptiveSleep = o.cfg.AdaptiveSleepMin
		}
	case rate < 0.2:
		o.state.adaptiveBatch -= 10
		if o.state.adaptiveBatch < o.cfg.AdaptiveBatchMin {
			o.state.adaptiveBatch = o.cfg.AdaptiveBatchMin
		}
		o.state.adaptiveSleep += 100 * time.Millisecond
		if o.state.adaptiveSleep > o.cfg.AdaptiveSleepMax {
			o.state.adaptiveSleep = o.cfg.AdaptiveSleepMax
		}
	}
}

func (o *Orchestrator) snapshotStats() Stats {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	stats := o.state.totals
	if len(o.state.results) > 0 {
		var sum float64
		for _, r := range o.state.results {
			sum += r.PingMs
		}
		stats.AvgPing = sum / float64(len(o.state.results))
	}
	return stats
}

func (o *Orchestrator) snapshotResults() []Result {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	out := make([]Result, len(o.state.results))
	copy(out, o.state.results)
	return out
}

func (s *State) snapshotFound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals.Found
}

func (s *State) snapshotSleep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adaptiveSleep
}

func primaryHost(d *descriptor.Descriptor) string {
	ob, ok := d.PrimaryOutbound()
	if !ok {
		return "unknown"
	}
	if list, ok := ob.Settings["vnext"].([]map[string]interface{}); ok && len(list) > 0 {
		if a, ok := list[0]["address"].(string); ok {
			return a
		}
	}
	if list, ok := ob.Settings["servers"].([]map[string]interface{}); ok && len(list) > 0 {
		if a, ok := list[0]["address"].(string); ok {
			return a
		}
	}
	return "unknown"
}

func primaryHostFromResult(r Result) string {
	if r.Address != "" {
		return r.Address
	}
	return "unknown"
}

func truncate(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
