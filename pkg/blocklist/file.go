package blocklist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileSource loads a blocklist from a local YAML file and hot-reloads it
// whenever the file is written, debouncing rapid successive events.
type FileSource struct {
	Path             string
	DebounceInterval time.Duration
	logger           *slog.Logger
}

// NewFileSource returns a FileSource reading from path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{Path: path, DebounceInterval: 200 * time.Millisecond, logger: logger}
}

func (f *FileSource) Load(ctx context.Context) (Blocklist, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Blocklist{}, fmt.Errorf("read blocklist file %s: %w", f.Path, err)
	}
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Blocklist{}, fmt.Errorf("parse blocklist file %s: %w", f.Path, err)
	}
	return r.toBlocklist(), nil
}

// Watch starts an fsnotify watch on the file's directory (watching the
// parent directory, not the file itself, survives editors that replace
// the file via rename-on-save) and invokes onChange, debounced, after
// every write that settles for DebounceInterval.
func (f *FileSource) Watch(ctx context.Context, onChange func(Blocklist)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(f.Path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var mu sync.Mutex
		var timer *time.Timer

		fire := func() {
			bl, err := f.Load(ctx)
			if err != nil {
				f.logger.Warn("blocklist reload failed", "path", f.Path, "error", err)
				return
			}
			onChange(bl)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.Path) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(f.DebounceInterval, fire)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn("blocklist watcher error", "error", err)
			}
		}
	}()
	return nil
}
