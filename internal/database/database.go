package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Database keeps the two visual slots in SQLite.
type Database struct {
	db *sql.DB
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS session_slots(
	  slot         TEXT    PRIMARY KEY CHECK (slot IN ('current','previous')),
	  session_id   TEXT    NOT NULL,
	  received_at  INTEGER NOT NULL,
	  field_count  INTEGER NOT NULL,
	  event_count  INTEGER NOT NULL,
	  payload_json TEXT    NOT NULL CHECK (json_valid(payload_json))
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Rotate moves the current slot to previous, dropping the old previous, and
// stores record as current. All of it happens in one transaction.
func (d *Database) Rotate(record SlotRecord) error {
	if err := ValidateRecord(record); err != nil {
		return fmt.Errorf("invalid slot record: %w", err)
	}

	transaction, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := transaction.Exec(`DELETE FROM session_slots WHERE slot = 'previous'`); err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to drop previous slot: %w", err)
	}
	if _, err := transaction.Exec(`UPDATE session_slots SET slot = 'previous' WHERE slot = 'current'`); err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to demote current slot: %w", err)
	}
	if _, err := transaction.Exec(
		`INSERT INTO session_slots(slot, session_id, received_at, field_count, event_count, payload_json) VALUES('current',?,?,?,?,json(?))`,
		record.SessionID, record.ReceivedAt, record.FieldCount, record.EventCount, record.Payload,
	); err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to insert current slot: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Slots returns the stored current and previous records; either may be nil.
func (d *Database) Slots() (current, previous *SlotRecord, err error) {
	rows, err := d.db.Query(`SELECT slot, session_id, received_at, field_count, event_count, payload_json FROM session_slots`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record SlotRecord
		var slot string
		if err := rows.Scan(&slot, &record.SessionID, &record.ReceivedAt, &record.FieldCount, &record.EventCount, &record.Payload); err != nil {
			return nil, nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		switch slot {
		case SlotCurrent:
			current = &record
		case SlotPrevious:
			previous = &record
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read slots: %w", err)
	}
	return current, previous, nil
}

// Clear removes both slots.
func (d *Database) Clear() error {
	if _, err := d.db.Exec(`DELETE FROM session_slots`); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	return nil
}

var errEmptyPayload = errors.New("payload cannot be empty")
