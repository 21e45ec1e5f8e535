package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBlacklistWriter_Write_IncludesHeaderAndURIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklisted_configs.txt")
	w := NewBlacklistWriter(path)

	uris := []string{"vless://bad@host:443", "vmess://worse@host:443"}
	if err := w.Write(context.Background(), uris); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 entries, got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "#") {
		t.Errorf("expected first line to be a comment header, got %q", lines[0])
	}
	if lines[1] != uris[0] || lines[2] != uris[1] {
		t.Errorf("unexpected entries: %v", lines[1:])
	}
}

func TestBlacklistWriter_Write_EmptyStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklisted_configs.txt")
	w := NewBlacklistWriter(path)

	if err := w.Write(context.Background(), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "#") {
		t.Errorf("expected header even with no entries, got %q", data)
	}
}
