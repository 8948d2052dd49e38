package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the hints directory
const FileName = "aihint.db"

// timestamps are stored as local wall time so DATE() groups by the player's day
const timeLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("not found")

type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens the database in dir and initializes the schema
func Open(ctx context.Context, dir string) (*DB, error) {
	return OpenPath(ctx, filepath.Join(dir, FileName))
}

// OpenPath opens the database file at path
func OpenPath(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// the daemon writes from a handful of goroutines; one connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		event TEXT NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',

		system TEXT NOT NULL DEFAULT '',
		game TEXT NOT NULL DEFAULT '',

		success BOOLEAN NOT NULL,
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		hint_preview TEXT NOT NULL DEFAULT '',
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_usage_events_timestamp ON usage_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_events_event ON usage_events(event);

	CREATE TABLE IF NOT EXISTS hints (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		system TEXT NOT NULL,
		game TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		text TEXT NOT NULL,
		image_path TEXT NOT NULL,
		archive_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_hints_timestamp ON hints(timestamp);
	CREATE INDEX IF NOT EXISTS idx_hints_game ON hints(system, game);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// since is the lower bound for a "last N days" query, today included
func (db *DB) since(days int) string {
	now := db.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return formatTime(start.AddDate(0, 0, -(days - 1)))
}
