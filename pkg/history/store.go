// Package history persists the results of working descriptors across
// runs, so a new run can load the URIs already seen and send
// notifications only for descriptors it has not seen before.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
)

// Config controls the SQLite-backed history store.
type Config struct {
	// Path is the database file. Required.
	Path string

	// BusyTimeout is how long a write waits on lock contention before
	// failing.
	// Default: 5s
	BusyTimeout time.Duration
}

// Store is a SQLite-backed run-history store. It satisfies
// orchestrator.Dependencies.History.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	recordStmt *sql.Stmt
	knownStmt  *sql.Stmt
}

// Open creates or opens the history database at cfg.Path, applying the
// schema and enabling WAL mode for concurrent readers during a run.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history: path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("history: set journal mode: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: insert schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("history: schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	var err error
	s.recordStmt, err = s.db.Prepare(`
		INSERT INTO results (
			uri, protocol, address, ping_ms, jitter_ms, download_mbps, upload_mbps,
			bypass_ok, telegram_ok, instagram_ok, youtube_ok,
			ip, fragment_mode, custom_sni,
			country, country_code, city, isp,
			recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			protocol = excluded.protocol,
			address = excluded.address,
			ping_ms = excluded.ping_ms,
			jitter_ms = excluded.jitter_ms,
			download_mbps = excluded.download_mbps,
			upload_mbps = excluded.upload_mbps,
			bypass_ok = excluded.bypass_ok,
			telegram_ok = excluded.telegram_ok,
			instagram_ok = excluded.instagram_ok,
			youtube_ok = excluded.youtube_ok,
			ip = excluded.ip,
			fragment_mode = excluded.fragment_mode,
			custom_sni = excluded.custom_sni,
			country = excluded.country,
			country_code = excluded.country_code,
			city = excluded.city,
			isp = excluded.isp,
			recorded_at = excluded.recorded_at
	`)
	if err != nil {
		return fmt.Errorf("history: prepare record statement: %w", err)
	}

	s.knownStmt, err = s.db.Prepare(`SELECT uri FROM results`)
	if err != nil {
		return fmt.Errorf("history: prepare known-uris statement: %w", err)
	}

	return nil
}

// KnownURIs returns every descriptor URI this store has ever recorded a
// result for; the orchestrator uses the set to skip notifications for
// descriptors a prior run already reported.
func (s *Store) KnownURIs(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.knownStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: known uris: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("history: scan uri: %w", err)
		}
		known[uri] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: known uris: %w", err)
	}
	return known, nil
}

// Record persists a job result, upserting on the descriptor URI so reruns
// overwrite stale measurements instead of accumulating duplicates.
func (s *Store) Record(ctx context.Context, result orchestrator.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.recordStmt.ExecContext(ctx,
		result.URI,
		result.Protocol,
		result.Address,
		result.PingMs,
		result.JitterMs,
		result.DownloadMbps,
		result.UploadMbps,
		result.BypassOK,
		result.Connectivity.Telegram,
		result.Connectivity.Instagram,
		result.Connectivity.YouTube,
		result.IP,
		result.FragmentMode,
		result.CustomSNI,
		result.Country,
		result.CountryCode,
		result.City,
		result.ISP,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Record describes a single row in the results table, as returned by
// Query. It mirrors orchestrator.Result but is decoded straight from
// SQL rows rather than produced by a probe.
type Record struct {
	URI          string
	Protocol     string
	Address      string
	PingMs       float64
	JitterMs     float64
	DownloadMbps float64
	UploadMbps   float64
	BypassOK     bool
	Country      string
	CountryCode  string
	City         string
	ISP          string
	RecordedAt   time.Time
}

// Filter narrows a Query call. Zero values are ignored.
type Filter struct {
	Protocol    string
	CountryCode string
	Limit       int
	Offset      int
}

// Query lists recorded results, most recently recorded first, applying
// Filter's optional protocol/country constraints and pagination.
func (s *Store) Query(ctx context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT uri, protocol, address, ping_ms, jitter_ms, download_mbps, upload_mbps,
		bypass_ok, country, country_code, city, isp, recorded_at FROM results WHERE 1=1`
	var args []any
	if f.Protocol != "" {
		q += " AND protocol = ?"
		args = append(args, f.Protocol)
	}
	if f.CountryCode != "" {
		q += " AND country_code = ?"
		args = append(args, f.CountryCode)
	}
	q += " ORDER BY recorded_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var recordedAt int64
		if err := rows.Scan(&r.URI, &r.Protocol, &r.Address, &r.PingMs, &r.JitterMs,
			&r.DownloadMbps, &r.UploadMbps, &r.BypassOK, &r.Country, &r.CountryCode,
			&r.City, &r.ISP, &recordedAt); err != nil {
			return nil, fmt.Errorf("history: scan record: %w", err)
		}
		r.RecordedAt = time.Unix(recordedAt, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	return records, nil
}

// Prune deletes results recorded before the retention cutoff and
// returns the number of rows removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM results WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the prepared statements and database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordStmt != nil {
		s.recordStmt.Close()
	}
	if s.knownStmt != nil {
		s.knownStmt.Close()
	}
	return s.db.Close()
}
