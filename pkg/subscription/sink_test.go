package subscription

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
	"github.com/proxyfleet/orchestrator/pkg/probe"
)

func TestFileSink_Publish_WritesOneURIPerLine(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	results := []orchestrator.Result{
		{Result: probe.Result{Protocol: "vless"}, URI: "vless://a@host:443"},
		{Result: probe.Result{Protocol: "vmess"}, URI: "vmess://b@host:443"},
	}

	if err := sink.Publish(context.Background(), results); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "subscription.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != results[0].URI || lines[1] != results[1].URI {
		t.Errorf("unexpected contents: %v", lines)
	}
}

func TestFileSink_Publish_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewFileSink(dir)

	if err := sink.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "subscription.txt")); err != nil {
		t.Errorf("expected output file to exist: %v", err)
	}
}

func TestFileSink_Publish_OverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	first := []orchestrator.Result{{Result: probe.Result{Protocol: "vless"}, URI: "vless://stale@host:443"}}
	if err := sink.Publish(context.Background(), first); err != nil {
		t.Fatalf("Publish (first): %v", err)
	}

	second := []orchestrator.Result{{Result: probe.Result{Protocol: "trojan"}, URI: "trojan://fresh@host:443"}}
	if err := sink.Publish(context.Background(), second); err != nil {
		t.Fatalf("Publish (second): %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "subscription.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("expected second publish to overwrite the first run's contents")
	}
	if !strings.Contains(string(data), "fresh") {
		t.Error("expected second run's URI to be present")
	}
}

func TestFileSink_Publish_CustomFileName(t *testing.T) {
	dir := t.TempDir()
	sink := &FileSink{Dir: dir, FileName: "custom.txt"}

	if err := sink.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "custom.txt")); err != nil {
		t.Errorf("expected custom.txt to exist: %v", err)
	}
}
