package simulator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rileyhilliard/streamwatch/internal/logger"
)

const historySchema = `CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	body TEXT NOT NULL
);`

// SQLiteHistory persists readings in a local SQLite file so a restarted
// producer can serve the history it had before.
type SQLiteHistory struct {
	db    *sql.DB
	path  string
	limit int
	log   logger.Logger
}

// NewSQLiteHistory opens (or creates) the database at path and keeps at
// most limit rows in it.
func NewSQLiteHistory(path string, limit int, log logger.Logger) (*SQLiteHistory, error) {
	if limit < 1 {
		limit = DefaultHistorySize
	}
	if log == nil {
		log = logger.Noop()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}
	return &SQLiteHistory{db: db, path: path, limit: limit, log: log}, nil
}

// Path is the database file.
func (h *SQLiteHistory) Path() string { return h.path }

func (h *SQLiteHistory) Push(ctx context.Context, r Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history write: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO readings (timestamp, body) VALUES (?, ?)", r.Timestamp, string(data)); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert reading: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM readings WHERE id NOT IN (SELECT id FROM readings ORDER BY id DESC LIMIT ?)", h.limit); err != nil {
		tx.Rollback()
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (h *SQLiteHistory) Recent(ctx context.Context, n int) ([]Reading, error) {
	if n <= 0 {
		return []Reading{}, nil
	}
	rows, err := h.db.QueryContext(ctx, "SELECT body FROM readings ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]Reading, 0, n)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r Reading
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			h.log.Debug("skipping undecodable history row: %v", err)
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *SQLiteHistory) Reset(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM readings"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Ping reports whether the database is usable.
func (h *SQLiteHistory) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Close closes the database.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
