package probe

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/proxyfleet/orchestrator/pkg/descriptor"
)

// downloadSampleBytes and uploadPayloadBytes mirror the reference
// implementation's speed-test sample sizes.
const (
	downloadSampleBytes = 3_000_000
	uploadPayloadBytes  = 2_000_000
	downloadChunkBytes  = 65536
)

// ErrProbeFailed indicates the proxy never achieved basic connectivity.
var ErrProbeFailed = fmt.Errorf("probe: no connectivity achieved")

// Prober drives test traffic through a running engine on 127.0.0.1:port,
// reusing a single pooled HTTP client the way the teacher's HTTP provider
// does for upstream calls.
type Prober struct {
	cfg    Config
	client *http.Client
}

// New builds a Prober with a connection-pooled, HTTP/2-enabled client.
func New(cfg Config) *Prober {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Prober{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
	}
}

func (p *Prober) proxyClient(port int, timeout time.Duration) *http.Client {
	proxyURL, _ := url.Parse(fmt.Sprintf("http://127.0.0.1:%d", port))
	transport := &http.Transport{
		Proxy:               http.ProxyURL(proxyURL),
		MaxIdleConns:        p.client.Transport.(*http.Transport).MaxIdleConns,
		MaxIdleConnsPerHost: p.client.Transport.(*http.Transport).MaxIdleConnsPerHost,
		IdleConnTimeout:     p.client.Transport.(*http.Transport).IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Probe runs the full test suite (latency, jitter, throughput,
// connectivity, bypass, address extraction) against the proxy bound to
// 127.0.0.1:port, described by d.
func (p *Prober) Probe(ctx context.Context, d *descriptor.Descriptor, port int) (*Result, error) {
	timeout := time.Duration(p.cfg.Timeout) * time.Second
	client := p.proxyClient(port, timeout+2*time.Second)

	latencies, ok := p.measureLatency(ctx, client)
	if !ok {
		return nil, ErrProbeFailed
	}

	avgPing := mean(latencies)
	jitter := 0.0
	if len(latencies) > 1 {
		jitter = stdev(latencies)
	}

	dlClient := p.proxyClient(port, timeout)
	dl := p.downloadSpeed(ctx, dlClient, timeout)
	ul := p.uploadSpeed(ctx, dlClient, timeout)
	connectivity := p.checkConnectivity(ctx, client)
	bypassOK := p.checkBypass(ctx, client)

	protocol, address := extractServerInfo(d)

	return &Result{
		Protocol:     protocol,
		Address:      address,
		PingMs:       avgPing,
		JitterMs:     jitter,
		DownloadMbps: dl,
		UploadMbps:   ul,
		BypassOK:     bypassOK,
		Connectivity: connectivity,
		IP:           address,
	}, nil
}

// measureLatency tries the primary ping URL, then the fallback, up to two
// attempts each; it stops at the first target that yields any success.
func (p *Prober) measureLatency(ctx context.Context, client *http.Client) ([]float64, bool) {
	targets := []string{p.cfg.PingURL}
	if p.cfg.PingFallbackURL != "" {
		targets = append(targets, p.cfg.PingFallbackURL)
	}

	for _, target := range targets {
		var latencies []float64
		for i := 0; i < 2; i++ {
			start := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				continue
			}
			resp, err := client.Do(req)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == 200 || resp.StatusCode == 204 {
				elapsed := float64(time.Since(start).Milliseconds())
				if elapsed < 10000 {
					latencies = append(latencies, elapsed)
				}
			}
		}
		if len(latencies) > 0 {
			return latencies, true
		}
	}
	return nil, false
}

func (p *Prober) downloadSpeed(ctx context.Context, client *http.Client, timeout time.Duration) float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.DownloadURL, nil)
	if err != nil {
		return 0
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	var total int64
	buf := make([]byte, downloadChunkBytes)
	for {
		if time.Since(start) > timeout {
			break
		}
		n, err := resp.Body.Read(buf)
		total += int64(n)
		if total >= downloadSampleBytes || err != nil {
			break
		}
	}
	duration := time.Since(start).Seconds()
	if duration <= 0 {
		return 0
	}
	return round2(float64(total*8) / duration / 1_000_000)
}

func (p *Prober) uploadSpeed(ctx context.Context, client *http.Client, timeout time.Duration) float64 {
	payload := make([]byte, uploadPayloadBytes)
	if _, err := rand.Read(payload); err != nil {
		return 0
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.UploadURL, bytes.NewReader(payload))
	if err != nil {
		return 0
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer io.Copy(io.Discard, resp.Body)
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	if duration <= 0 || resp.StatusCode != 200 {
		return 0
	}
	return round2(float64(len(payload)*8) / duration / 1_000_000)
}

func (p *Prober) checkConnectivity(ctx context.Context, client *http.Client) Connectivity {
	targets := map[string]string{
		"telegram":  p.cfg.TelegramURL,
		"instagram": p.cfg.InstagramURL,
		"youtube":   p.cfg.YouTubeURL,
	}
	results := map[string]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, target := range targets {
		wg.Add(1)
		go func(name, target string) {
			defer wg.Done()
			ok := p.head200(ctx, client, target, http.MethodGet, 5*time.Second)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}(name, target)
	}
	wg.Wait()
	return Connectivity{Telegram: results["telegram"], Instagram: results["instagram"], YouTube: results["youtube"]}
}

func (p *Prober) checkBypass(ctx context.Context, client *http.Client) bool {
	return p.head200(ctx, client, p.cfg.CensorshipCheckURL, http.MethodHead, 5*time.Second)
}

func (p *Prober) head200(ctx context.Context, client *http.Client, target, method string, timeout time.Duration) bool {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// extractServerInfo walks the descriptor to recover the real server
// address, handling TUIC/Hysteria2's wrapped settings blocks.
func extractServerInfo(d *descriptor.Descriptor) (protocol, address string) {
	ob, ok := d.PrimaryOutbound()
	if !ok {
		return "n/a", "n/a"
	}
	if ob.Stream != nil {
		if ob.Stream.TUICSettings != nil {
			if s, ok := ob.Stream.TUICSettings["server"].(string); ok {
				return "tuic", s
			}
		}
		if ob.Stream.HysteriaSettings != nil {
			if s, ok := ob.Stream.HysteriaSettings["server"].(string); ok {
				return "hysteria2", s
			}
		}
	}
	protocol = ob.Protocol
	switch protocol {
	case "vmess", "vless":
		if list, ok := ob.Settings["vnext"].([]map[string]interface{}); ok && len(list) > 0 {
			if a, ok := list[0]["address"].(string); ok {
				address = a
			}
		}
	case "trojan", "shadowsocks":
		if list, ok := ob.Settings["servers"].([]map[string]interface{}); ok && len(list) > 0 {
			if a, ok := list[0]["address"].(string); ok {
				address = a
			}
		}
	}
	if address == "" {
		address = "n/a"
	}
	return protocol, address
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		sumSq += (x - m) * (x - m)
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
