package output

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// BlacklistWriter writes the run's blacklisted URIs as a plain text file,
// one URI per line, preceded by a comment header. Satisfies
// orchestrator.Dependencies.BlacklistWriter.
type BlacklistWriter struct {
	// Path is the destination file, e.g. "blacklisted_configs.txt".
	Path string
}

// NewBlacklistWriter builds a BlacklistWriter at path.
func NewBlacklistWriter(path string) *BlacklistWriter {
	return &BlacklistWriter{Path: path}
}

// Write writes blacklist, one URI per line, after a header comment
// recording the write time and count.
func (w *BlacklistWriter) Write(ctx context.Context, blacklist []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# blacklisted configs, generated %s, %d entries\n",
		time.Now().UTC().Format(time.RFC3339), len(blacklist))
	for _, uri := range blacklist {
		b.WriteString(uri)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(w.Path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", w.Path, err)
	}
	return nil
}
