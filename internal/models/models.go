package models

import (
	"strings"
)

// Action is the key transition recorded by the capture script.
type Action int

const (
	Press   Action = 0
	Release Action = 1
)

func (a Action) String() string {
	switch a {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// KeyAction is one observed key transition. Timestamps are client epoch milliseconds.
type KeyAction struct {
	Action    Action `json:"action"`
	KeyCode   int    `json:"keyCode"`
	Timestamp int64  `json:"timestamp"`
}

// LabelPlaceholder is the character capture scripts use in place of a space.
const LabelPlaceholder = "#"

// FieldTimeline is the full interaction record of one form field. Events keep
// arrival order and are not necessarily sorted by timestamp.
type FieldTimeline struct {
	FieldIdentifier string      `json:"fieldIdentifier"`
	DisplayLabel    string      `json:"displayLabel"`
	Events          []KeyAction `json:"events"`
}

// Caption returns the label as it should be drawn.
func (f FieldTimeline) Caption() string {
	return strings.ReplaceAll(f.DisplayLabel, LabelPlaceholder, " ")
}

// Session is one complete capture round. It is never mutated after it has been
// handed to the visualizer.
type Session struct {
	ID     string          `json:"id"`
	Fields []FieldTimeline `json:"fields"`
}

// EventCount returns the number of key actions across all fields.
func (s Session) EventCount() int {
	n := 0
	for _, f := range s.Fields {
		n += len(f.Events)
	}
	return n
}

// Labels returns the distinct display labels in first-encountered order.
func (s Session) Labels() []string {
	seen := make(map[string]bool, len(s.Fields))
	var labels []string
	for _, f := range s.Fields {
		if seen[f.DisplayLabel] {
			continue
		}
		seen[f.DisplayLabel] = true
		labels = append(labels, f.DisplayLabel)
	}
	return labels
}

// Validate reports ErrEmptySession when the session has no fields or no events.
func (s Session) Validate() error {
	if len(s.Fields) == 0 || s.EventCount() == 0 {
		return ErrEmptySession
	}
	return nil
}
