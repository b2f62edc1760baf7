package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"streampay/internal/logging"
	"streampay/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistence for the library engine.
type Database struct {
	db *sql.DB
}

// New opens (and if necessary creates) the engine database at dbPath.
// dbPath is the full path to the database file; the parent directory must
// already exist and be writable. Pass ":memory:" for an in-memory store.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and busy_timeout keep concurrent scanner/orchestrator/stream
	// callers from tripping over "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Discovered media assets. abs_path is the canonical absolute path and
	-- carries the uniqueness guarantee that keeps concurrent scans from
	-- creating duplicate rows.
	CREATE TABLE IF NOT EXISTS media_assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		abs_path TEXT NOT NULL UNIQUE,
		rel_path TEXT NOT NULL,
		extension TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'GENERAL',
		parent_category TEXT,
		collection TEXT,
		price REAL NOT NULL DEFAULT 1.0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		mime_type TEXT,
		play_path TEXT,
		transcode_status TEXT NOT NULL DEFAULT 'NONE',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_category ON media_assets(category COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_assets_extension ON media_assets(extension);
	CREATE INDEX IF NOT EXISTS idx_assets_rel_path ON media_assets(rel_path);

	-- Per-extension encoder parameters for the external transcode tool.
	CREATE TABLE IF NOT EXISTS transcode_profiles (
		extension TEXT PRIMARY KEY COLLATE NOCASE,
		args TEXT NOT NULL,
		output_ext TEXT NOT NULL DEFAULT 'mp4',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Transcode job queue. claimed_at is the lease timestamp used to
	-- reclaim jobs stuck in PROCESSING after a crash.
	CREATE TABLE IF NOT EXISTS transcode_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES media_assets(id),
		profile_extension TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		claimed_at INTEGER,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON transcode_jobs(status, created_at);

	-- At most one non-terminal job per asset.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active
		ON transcode_jobs(asset_id) WHERE status != 'DONE';

	-- Durable key/value state for resumable batch operations.
	CREATE TABLE IF NOT EXISTS scan_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
