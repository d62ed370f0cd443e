// Package ledger provides an append-only history of what the panel saw and
// did: sensor readings, LED requests and the stream loading. It is never
// read back into panel state.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventReading       EventType = "reading"
	EventReadingFailed EventType = "reading_failed"
	EventLEDRequested  EventType = "led_requested"
	EventStreamLoaded  EventType = "stream_loaded"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	SessionID string
	RequestID string
	Payload   map[string]any
}

// Ledger provides append-only event logging for one panel session
type Ledger struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time
}

// New creates a new Ledger writing entries under sessionID
func New(db *sql.DB, sessionID string) *Ledger {
	return &Ledger{db: db, sessionID: sessionID, now: time.Now}
}

// SessionID returns the session entries are written under.
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// Append adds a new event to the ledger. A non-empty requestID that was
// already recorded is ignored.
func (l *Ledger) Append(eventType EventType, requestID string, at time.Time, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}
	if at.IsZero() {
		at = l.now()
	}

	_, err = l.db.Exec(`
		INSERT OR IGNORE INTO panel_ledger (event_type, timestamp, session_id, request_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`, string(eventType), at.UTC().UnixMilli(), l.sessionID, requestID, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, err)
	}
	return nil
}

// GetByType returns the newest entries of eventType, newest first
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, session_id, request_id, payload
		FROM panel_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByTimeRange returns entries within a time range, newest first
func (l *Ledger) GetByTimeRange(start, end time.Time, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, session_id, request_id, payload
		FROM panel_ledger
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, start.UTC().UnixMilli(), end.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM panel_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, requestID sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &entry.SessionID, &requestID, &payloadStr)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		if requestID.Valid {
			entry.RequestID = requestID.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
