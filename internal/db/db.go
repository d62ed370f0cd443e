// Package db provides the SQLite connection and schema for the panel history.
package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema. ":memory:" opens a
// private in-memory database.
func Open(dbPath string) (*DB, error) {
	dsn := dbPath + "?_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every new connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Panel ledger - append-only history of readings, LED requests and stream loads
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS panel_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			request_id TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_type_ts ON panel_ledger(event_type, timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_session ON panel_ledger(session_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create panel_ledger table: %w", err)
	}

	// A request is recorded at most once even if its event is redelivered
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_request
		ON panel_ledger(request_id)
		WHERE request_id IS NOT NULL AND request_id != '';
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_ledger_request index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
