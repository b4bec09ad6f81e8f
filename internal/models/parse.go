package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
)

// BatchReport summarises what ParseBatch kept and what it dropped.
type BatchReport struct {
	Items         int
	Fields        int
	SkippedItems  int
	DroppedEvents int
}

// ParseKeyAction reads a raw [action, keyCode, timestamp] record. Numbers must
// come from a decoder with UseNumber enabled, or be Go integer/float values.
func ParseKeyAction(raw []any) (KeyAction, error) {
	if len(raw) < 3 {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "expected 3 elements"}
	}
	action, ok := asInt(raw[0])
	if !ok {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "action is not an integer"}
	}
	if Action(action) != Press && Action(action) != Release {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "unknown action code"}
	}
	keyCode, ok := asInt(raw[1])
	if !ok {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "keyCode is not an integer"}
	}
	timestamp, ok := asTimestamp(raw[2])
	if !ok {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "timestamp is not numeric"}
	}
	if timestamp < 0 {
		return KeyAction{}, &MalformedEventError{Raw: raw, Reason: "timestamp is negative"}
	}
	return KeyAction{Action: Action(action), KeyCode: keyCode, Timestamp: timestamp}, nil
}

// ParseFieldTimeline reads a raw [fieldIdentifier, displayLabel, events] record.
// Events that fail to parse are dropped and returned alongside the field.
func ParseFieldTimeline(raw []any) (FieldTimeline, []error, error) {
	if len(raw) != 3 {
		return FieldTimeline{}, nil, &MalformedFieldError{Raw: raw, Reason: "expected 3 elements"}
	}
	id, ok := raw[0].(string)
	if !ok {
		return FieldTimeline{}, nil, &MalformedFieldError{Raw: raw, Reason: "field identifier is not a string"}
	}
	label, ok := raw[1].(string)
	if !ok {
		return FieldTimeline{}, nil, &MalformedFieldError{Raw: raw, Reason: "display label is not a string"}
	}
	rawEvents, ok := raw[2].([]any)
	if !ok {
		return FieldTimeline{}, nil, &MalformedFieldError{Raw: raw, Reason: "events is not an array"}
	}

	field := FieldTimeline{
		FieldIdentifier: id,
		DisplayLabel:    label,
		Events:          make([]KeyAction, 0, len(rawEvents)),
	}
	var dropped []error
	for _, rawEvent := range rawEvents {
		record, ok := rawEvent.([]any)
		if !ok {
			dropped = append(dropped, &MalformedEventError{Raw: rawEvent, Reason: "event is not an array"})
			continue
		}
		event, err := ParseKeyAction(record)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		field.Events = append(field.Events, event)
	}
	return field, dropped, nil
}

// ParseBatch decodes a JSON array of field records. Items that are not
// well-formed field triples are skipped; malformed events are logged and
// dropped. Only a payload that is not a JSON array yields an error.
func ParseBatch(data []byte) (Session, BatchReport, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return Session{}, BatchReport{}, &IngestionParseError{Err: err}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return Session{}, BatchReport{}, &IngestionParseError{Err: errors.New("unexpected data after top-level array")}
	}
	items, ok := raw.([]any)
	if !ok {
		return Session{}, BatchReport{}, &IngestionParseError{Err: errors.New("top-level value is not an array")}
	}

	report := BatchReport{Items: len(items)}
	var session Session
	for _, item := range items {
		record, ok := item.([]any)
		if !ok {
			report.SkippedItems++
			continue
		}
		field, dropped, err := ParseFieldTimeline(record)
		if err != nil {
			report.SkippedItems++
			continue
		}
		for _, dropErr := range dropped {
			log.Printf("Dropping event in field %q: %v", field.FieldIdentifier, dropErr)
		}
		report.DroppedEvents += len(dropped)
		session.Fields = append(session.Fields, field)
	}
	report.Fields = len(session.Fields)
	return session, report, nil
}

// ParseBehavioData parses the string-encoded batch carried by the ingestion payload.
func ParseBehavioData(behavioData string) (Session, BatchReport, error) {
	return ParseBatch([]byte(behavioData))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < math.MinInt32 || i > math.MaxInt32 {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func asTimestamp(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatTimestamp(f)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return floatTimestamp(n)
	default:
		return 0, false
	}
}

// floatTimestamp truncates f, rejecting values int64 cannot hold.
func floatTimestamp(f float64) (int64, bool) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
