package window

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite so window counters survive
// process restarts. Suitable for single-instance deployments; use the
// Redis backend when counters must be shared across instances.
//
// The database runs in WAL mode with a single writer connection, matching
// SQLite's concurrency model.
type SQLiteBackend struct {
	db *sql.DB

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite window backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the windows table if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rate_windows (
		scope TEXT NOT NULL,
		minute INTEGER NOT NULL,
		request_count INTEGER NOT NULL,
		cost_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		avg_latency_ms REAL NOT NULL,
		success_rate REAL NOT NULL,
		PRIMARY KEY (scope, minute)
	);

	CREATE INDEX IF NOT EXISTS idx_rate_windows_minute ON rate_windows(minute);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements pre-compiles the SQL statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT scope, minute, request_count, cost_count, error_count, avg_latency_ms, success_rate
		FROM rate_windows WHERE scope = ? AND minute = ?`)
	if err != nil {
		return err
	}

	s.setStmt, err = s.db.Prepare(`
		INSERT INTO rate_windows (scope, minute, request_count, cost_count, error_count, avg_latency_ms, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope, minute) DO UPDATE SET
			request_count = excluded.request_count,
			cost_count = excluded.cost_count,
			error_count = excluded.error_count,
			avg_latency_ms = excluded.avg_latency_ms,
			success_rate = excluded.success_rate`)
	if err != nil {
		return err
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM rate_windows WHERE scope = ? AND minute = ?`)
	if err != nil {
		return err
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT scope, minute, request_count, cost_count, error_count, avg_latency_ms, success_rate
		FROM rate_windows`)
	return err
}

// Get retrieves the window for (scope, minute). Returns nil if absent.
func (s *SQLiteBackend) Get(ctx context.Context, scope string, minute int64) (*RateWindow, error) {
	var w RateWindow
	err := s.getStmt.QueryRowContext(ctx, scope, minute).Scan(
		&w.Scope, &w.Minute, &w.RequestCount, &w.CostCount,
		&w.ErrorCount, &w.AvgLatencyMs, &w.SuccessRate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	return &w, nil
}

// Set stores the window, overwriting any existing row.
func (s *SQLiteBackend) Set(ctx context.Context, w *RateWindow) error {
	if w == nil {
		return fmt.Errorf("window cannot be nil")
	}

	_, err := s.setStmt.ExecContext(ctx,
		w.Scope, w.Minute, w.RequestCount, w.CostCount,
		w.ErrorCount, w.AvgLatencyMs, w.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

// Delete removes the window for (scope, minute).
func (s *SQLiteBackend) Delete(ctx context.Context, scope string, minute int64) error {
	if _, err := s.deleteStmt.ExecContext(ctx, scope, minute); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// List returns all stored windows.
func (s *SQLiteBackend) List(ctx context.Context) ([]*RateWindow, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	var windows []*RateWindow
	for rows.Next() {
		var w RateWindow
		if err := rows.Scan(
			&w.Scope, &w.Minute, &w.RequestCount, &w.CostCount,
			&w.ErrorCount, &w.AvgLatencyMs, &w.SuccessRate,
		); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		windows = append(windows, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}

	return windows, nil
}

// Close closes the prepared statements and the database.
func (s *SQLiteBackend) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt, s.listStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
