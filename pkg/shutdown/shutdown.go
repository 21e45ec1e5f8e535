// Package shutdown coordinates graceful termination across the
// orchestrator's worker pool, its spawned engine child processes, and any
// registered cleanup callbacks.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Cleanup is a shutdown-time callback. It must respect the context
// deadline it's given and return promptly.
type Cleanup func(ctx context.Context) error

// killChild terminates a process by PID; it is a package variable so
// tests can substitute it without signalling real processes.
var killChild = defaultKillChild

// Manager tracks everything that must be torn down on shutdown: running
// goroutines (via cancellable contexts), live child PIDs, and cleanup
// callbacks, then executes the three-phase shutdown sequence within a
// single overall deadline.
type Manager struct {
	logger *slog.Logger

	mu        sync.Mutex
	cancels   []context.CancelFunc
	childPIDs map[int]bool
	cleanups  []Cleanup

	requested chan struct{}
	once      sync.Once
}

// New builds a Manager. logger may be nil, in which case slog.Default is used.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:    logger,
		childPIDs: make(map[int]bool),
		requested: make(chan struct{}),
	}
}

// RegisterTask records a cancel function to be invoked on shutdown. The
// caller is expected to derive its goroutine's context from
// context.WithCancel and hand over the returned cancel func.
func (m *Manager) RegisterTask(cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, cancel)
}

// RegisterChild records a live child PID for termination on shutdown.
func (m *Manager) RegisterChild(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.childPIDs[pid] = true
}

// UnregisterChild removes a PID once its owning worker has stopped it
// normally.
func (m *Manager) UnregisterChild(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.childPIDs, pid)
}

// RegisterCleanup appends a cleanup callback, run in registration order
// during Execute.
func (m *Manager) RegisterCleanup(fn Cleanup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

// Request signals a shutdown. Safe to call more than once or
// concurrently; only the first call has effect.
func (m *Manager) Request() {
	m.once.Do(func() {
		m.logger.Info("shutdown requested")
		close(m.requested)
	})
}

// IsRequested reports whether Request has been called.
func (m *Manager) IsRequested() bool {
	select {
	case <-m.requested:
		return true
	default:
		return false
	}
}

// WaitForRequest blocks until Request is called or ctx is done.
func (m *Manager) WaitForRequest(ctx context.Context) {
	select {
	case <-m.requested:
	case <-ctx.Done():
	}
}

// Execute runs the three-phase shutdown sequence: cancel every
// registered task (waiting up to timeout/3 for the cancellations to
// settle in practice, since cancellation itself is synchronous and the
// wait budget is reserved for the goroutines to observe it), terminate
// every registered child PID, then run cleanup callbacks in order, each
// budgeted with an even share of the time remaining. A callback sees its
// budget only as a context deadline; once the overall timeout is spent,
// the remaining callbacks are skipped with a warning.
func (m *Manager) Execute(ctx context.Context, timeout time.Duration) {
	start := time.Now()
	m.logger.Info("executing shutdown sequence", "timeout", timeout)

	m.mu.Lock()
	cancels := append([]context.CancelFunc(nil), m.cancels...)
	pids := make([]int, 0, len(m.childPIDs))
	for pid := range m.childPIDs {
		pids = append(pids, pid)
	}
	cleanups := append([]Cleanup(nil), m.cleanups...)
	m.mu.Unlock()

	m.logger.Info("cancelling active tasks", "count", len(cancels))
	for _, cancel := range cancels {
		cancel()
	}
	taskBudget := timeout / 3
	taskCtx, cancel := context.WithTimeout(ctx, taskBudget)
	<-taskCtx.Done()
	cancel()

	m.logger.Info("terminating child processes", "count", len(pids))
	for _, pid := range pids {
		if err := killChild(pid); err != nil {
			m.logger.Warn("failed to terminate child process", "pid", pid, "error", err)
		}
		m.UnregisterChild(pid)
	}

	m.logger.Info("running cleanup callbacks", "count", len(cleanups))
	for _, fn := range cleanups {
		elapsed := time.Since(start)
		remaining := timeout - elapsed
		if remaining <= 0 {
			m.logger.Warn("shutdown timeout exhausted, skipping remaining cleanup callbacks")
			break
		}
		share := remaining
		if n := len(cleanups); n > 0 {
			share = remaining / time.Duration(n)
		}
		cbCtx, cbCancel := context.WithTimeout(ctx, share)
		if err := fn(cbCtx); err != nil {
			m.logger.Error("cleanup callback failed", "error", err)
		}
		cbCancel()
	}

	m.logger.Info("shutdown complete", "elapsed", time.Since(start))
}

func defaultKillChild(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return terminateProcess(process)
}
