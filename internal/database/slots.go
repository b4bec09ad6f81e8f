// Package database persists the current and previous sessions so that a
// restarted visualizer comes back showing what it showed before.
package database

import (
	"encoding/json"
	"fmt"
)

const (
	SlotCurrent  = "current"
	SlotPrevious = "previous"
)

// SlotRecord is one stored session. Payload is the batch JSON as received.
type SlotRecord struct {
	SessionID  string `json:"sessionId"`
	ReceivedAt int64  `json:"receivedAt"` // unix milliseconds
	FieldCount int    `json:"fieldCount"`
	EventCount int    `json:"eventCount"`
	Payload    string `json:"payload"`
}

// SlotStore keeps at most two sessions: current and previous.
type SlotStore interface {
	Rotate(record SlotRecord) error
	Slots() (current, previous *SlotRecord, err error)
	Clear() error
	Close() error
}

var (
	_ SlotStore = (*Database)(nil)
	_ SlotStore = (*PebbleStore)(nil)
)

func ValidateRecord(record SlotRecord) error {
	if record.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if record.Payload == "" {
		return errEmptyPayload
	}
	if !json.Valid([]byte(record.Payload)) {
		return fmt.Errorf("payload is not valid JSON")
	}
	if record.ReceivedAt <= 0 {
		return fmt.Errorf("received timestamp must be positive")
	}
	return nil
}
