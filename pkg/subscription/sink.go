// Package subscription publishes a run's working descriptors as a plain
// URI list, the narrow shape upstream subscription clients expect. Richer
// subscription formats (Clash YAML, sing-box JSON, base64-bundled share
// links) are out of scope: this package exercises the publish interface
// without reimplementing them.
package subscription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
)

// Sink publishes the working descriptors found by a run. Implementations
// satisfy orchestrator.Dependencies.Subscription.
type Sink interface {
	Publish(ctx context.Context, results []orchestrator.Result) error
}

// FileSink writes one URI per line to Dir/FileName, overwriting any
// previous contents so the file always reflects the latest run.
type FileSink struct {
	// Dir is the output directory. Created if missing.
	Dir string

	// FileName defaults to "subscription.txt".
	FileName string
}

// NewFileSink builds a FileSink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir, FileName: "subscription.txt"}
}

// Publish writes results' URIs, one per line, to Dir/FileName.
func (s *FileSink) Publish(ctx context.Context, results []orchestrator.Result) error {
	name := s.FileName
	if name == "" {
		name = "subscription.txt"
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("subscription: create dir: %w", err)
	}

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.URI)
		b.WriteByte('\n')
	}

	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("subscription: write %s: %w", path, err)
	}
	return nil
}
