// Package output writes a run's three file artifacts: the JSON results
// file, the plain-text blacklist file and the metrics file. Each is satisfied the same way the
// teacher's evidence exporters write a record set to an io.Writer, adapted
// here to write directly to a named file since each artifact is produced
// exactly once per run.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
)

// ResultsWriter writes the working-descriptor results of a run to a JSON
// file, one array of Result records. Satisfies
// orchestrator.Dependencies.ResultsWriter.
type ResultsWriter struct {
	// Path is the destination file, e.g. "results.json".
	Path string

	// Pretty indents the JSON for readability.
	Pretty bool
}

// NewResultsWriter builds a ResultsWriter at path with indentation enabled,
// matching the teacher's JSON exporter default presentation for
// human-inspected artifacts.
func NewResultsWriter(path string) *ResultsWriter {
	return &ResultsWriter{Path: path, Pretty: true}
}

// Write marshals results to w.Path. An empty slice still produces a valid
// "[]" file rather than being skipped, so downstream tooling can always
// parse the artifact.
func (w *ResultsWriter) Write(ctx context.Context, results []orchestrator.Result) error {
	if results == nil {
		results = []orchestrator.Result{}
	}

	var data []byte
	var err error
	if w.Pretty {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return fmt.Errorf("output: marshal results: %w", err)
	}

	if err := os.WriteFile(w.Path, data, 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", w.Path, err)
	}
	return nil
}
