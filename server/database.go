package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS match_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room TEXT NOT NULL,
		winner TEXT,
		loser TEXT,
		duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_events_type ON match_events(event_type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		slog.Error("db migration failed", "err", err)
	}
	return err
}

// GetSetting returns a stored setting, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Warn("read setting failed", "key", key, "err", err)
	}
	return value
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// MatchStats summarises recorded match outcomes
type MatchStats struct {
	Started   int            `json:"started"`
	Finished  int            `json:"finished"`
	Abandoned int            `json:"abandoned"`
	Wins      map[string]int `json:"wins"`
	AvgLength float64        `json:"avg_length"` // seconds, finished matches only
}

// MatchStats aggregates the match log
func (db *DB) MatchStats(ctx context.Context) (*MatchStats, error) {
	stats := &MatchStats{Wins: make(map[string]int)}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM match_events GROUP BY event_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var evt string
		var n int
		if err := rows.Scan(&evt, &n); err != nil {
			return nil, err
		}
		switch evt {
		case EvtMatchReady:
			stats.Started = n
		case EvtMatchOver:
			stats.Finished = n
		case EvtMatchAbandoned:
			stats.Abandoned = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wins, err := db.conn.QueryContext(ctx, `
		SELECT winner, COUNT(*) FROM match_events
		WHERE event_type = ? AND winner IS NOT NULL
		GROUP BY winner
	`, EvtMatchOver)
	if err != nil {
		return nil, err
	}
	defer wins.Close()
	for wins.Next() {
		var role string
		var n int
		if err := wins.Scan(&role, &n); err != nil {
			return nil, err
		}
		stats.Wins[role] = n
	}
	if err := wins.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	err = db.conn.QueryRowContext(ctx,
		"SELECT AVG(duration) FROM match_events WHERE event_type = ?", EvtMatchOver,
	).Scan(&avg)
	if err != nil {
		return nil, err
	}
	stats.AvgLength = avg.Float64
	return stats, nil
}
