package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
	"github.com/proxyfleet/orchestrator/pkg/probe"
)

func testResult(protocol string) orchestrator.Result {
	return orchestrator.Result{
		Result: probe.Result{
			Protocol:     protocol,
			Address:      "edge-hk-03.example.net:443",
			PingMs:       180,
			DownloadMbps: 42.5,
			UploadMbps:   8.1,
			BypassOK:     true,
		},
		URI:         "vless://uuid@edge-hk-03.example.net:443?type=ws",
		CountryCode: "HK",
		ISP:         "HKT",
	}
}

func TestLogSink_Notify_LogsResult(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	if err := sink.Notify(context.Background(), testResult("vless")); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "descriptor verified") {
		t.Errorf("expected log line to mention descriptor verified, got %q", out)
	}
	if !strings.Contains(out, "edge-hk-03.example.net:443") {
		t.Errorf("expected log line to contain address, got %q", out)
	}
}

func TestLogSink_Notify_NilLoggerDefaultsToSlogDefault(t *testing.T) {
	sink := NewLogSink(nil)
	if sink.logger == nil {
		t.Fatal("expected NewLogSink(nil) to fall back to a non-nil logger")
	}
}

func TestLogSink_Notify_RateLimitsPerProtocol(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		if err := sink.Notify(ctx, testResult("vless")); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	lines := strings.Count(buf.String(), "descriptor verified")
	if lines == 0 {
		t.Error("expected at least some notifications to be logged")
	}
	if lines >= 200 {
		t.Errorf("expected the per-protocol bucket to drop some of 200 rapid notifications, got %d logged", lines)
	}
}

func TestLogSink_Notify_DroppedNotificationIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	ctx := context.Background()
	for i := 0; i < 500; i++ {
		if err := sink.Notify(ctx, testResult("vmess")); err != nil {
			t.Fatalf("Notify must never return an error for a dropped notification: %v", err)
		}
	}
}

func TestLogSink_Notify_ConcurrentAccess(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(syncWriter{&buf, &mu}, nil))
	sink := NewLogSink(logger)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			protocol := "vless"
			if n%2 == 0 {
				protocol = "trojan"
			}
			for j := 0; j < 20; j++ {
				if err := sink.Notify(ctx, testResult(protocol)); err != nil {
					t.Errorf("Notify: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()
}

type syncWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
