package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseKeyAction(t *testing.T) {
	tests := []struct {
		name      string
		raw       []any
		want      KeyAction
		wantError bool
	}{
		{
			name: "press",
			raw:  []any{json.Number("0"), json.Number("65"), json.Number("1000")},
			want: KeyAction{Action: Press, KeyCode: 65, Timestamp: 1000},
		},
		{
			name: "release with fractional timestamp",
			raw:  []any{json.Number("1"), json.Number("65"), json.Number("1150.7")},
			want: KeyAction{Action: Release, KeyCode: 65, Timestamp: 1150},
		},
		{
			name: "plain go numbers",
			raw:  []any{1, 9, float64(42)},
			want: KeyAction{Action: Release, KeyCode: 9, Timestamp: 42},
		},
		{
			name:      "too short",
			raw:       []any{json.Number("0"), json.Number("65")},
			wantError: true,
		},
		{
			name:      "action not integer",
			raw:       []any{"0", json.Number("65"), json.Number("1000")},
			wantError: true,
		},
		{
			name:      "unknown action",
			raw:       []any{json.Number("2"), json.Number("65"), json.Number("1000")},
			wantError: true,
		},
		{
			name:      "keyCode fractional",
			raw:       []any{json.Number("0"), json.Number("65.5"), json.Number("1000")},
			wantError: true,
		},
		{
			name:      "timestamp not numeric",
			raw:       []any{json.Number("0"), json.Number("65"), "soon"},
			wantError: true,
		},
		{
			name:      "negative timestamp",
			raw:       []any{json.Number("0"), json.Number("65"), json.Number("-1")},
			wantError: true,
		},
		{
			name:      "timestamp beyond int64",
			raw:       []any{json.Number("0"), json.Number("65"), json.Number("1e19")},
			wantError: true,
		},
		{
			name:      "timestamp just past max int64",
			raw:       []any{json.Number("0"), json.Number("65"), json.Number("9223372036854775808")},
			wantError: true,
		},
		{
			name:      "float64 timestamp beyond int64",
			raw:       []any{0, 65, float64(1e19)},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyAction(tt.raw)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseKeyAction() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil {
				var malformed *MalformedEventError
				if !errors.As(err, &malformed) {
					t.Errorf("Expected *MalformedEventError, got %T", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseKeyAction() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFieldTimelineDropsBadEvents(t *testing.T) {
	raw := []any{
		"f1",
		"User#name",
		[]any{
			[]any{json.Number("0"), json.Number("65"), json.Number("1000")},
			[]any{json.Number("0")},
			"not an event",
			[]any{json.Number("1"), json.Number("65"), json.Number("1150")},
		},
	}

	field, dropped, err := ParseFieldTimeline(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(field.Events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(field.Events))
	}
	if len(dropped) != 2 {
		t.Errorf("Expected 2 dropped events, got %d", len(dropped))
	}
	if field.Caption() != "User name" {
		t.Errorf("Expected caption 'User name', got %q", field.Caption())
	}
}

func TestParseFieldTimelineRejectsBadTriple(t *testing.T) {
	tests := []struct {
		name string
		raw  []any
	}{
		{"missing events", []any{"f1", "Hello"}},
		{"too many elements", []any{"f1", "Hello", []any{}, "extra"}},
		{"identifier not string", []any{json.Number("1"), "Hello", []any{}}},
		{"label not string", []any{"f1", nil, []any{}}},
		{"events not array", []any{"f1", "Hello", "[]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFieldTimeline(tt.raw)
			var malformed *MalformedFieldError
			if !errors.As(err, &malformed) {
				t.Errorf("Expected *MalformedFieldError, got %v", err)
			}
		})
	}
}

func TestParseBatchRoundTrip(t *testing.T) {
	session, report, err := ParseBatch([]byte(`[["f1","Hello",[[0,65,1000],[1,65,1150]]]]`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Fields != 1 || len(session.Fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(session.Fields))
	}
	field := session.Fields[0]
	want := []KeyAction{
		{Action: Press, KeyCode: 65, Timestamp: 1000},
		{Action: Release, KeyCode: 65, Timestamp: 1150},
	}
	if len(field.Events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(field.Events))
	}
	for i := range want {
		if field.Events[i] != want[i] {
			t.Errorf("Event %d = %+v, want %+v", i, field.Events[i], want[i])
		}
	}
	if err := session.Validate(); err != nil {
		t.Errorf("Expected valid session, got %v", err)
	}
}

func TestParseBatchSkipsMalformedItems(t *testing.T) {
	payload := `[
		["f1", "Hello"],
		"noise",
		{"not": "a triple"},
		["f2", "World", [[0, 66, 2000], [1, 66, 2100]]],
		["f3", 7, []]
	]`

	session, report, err := ParseBatch([]byte(payload))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(session.Fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(session.Fields))
	}
	if session.Fields[0].FieldIdentifier != "f2" {
		t.Errorf("Expected field f2, got %s", session.Fields[0].FieldIdentifier)
	}
	if report.SkippedItems != 4 {
		t.Errorf("Expected 4 skipped items, got %d", report.SkippedItems)
	}
	if report.Items != 5 {
		t.Errorf("Expected 5 items, got %d", report.Items)
	}
}

func TestParseBatchInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `[[invalid`},
		{"object", `{"behaviodata": []}`},
		{"string", `"[]"`},
		{"trailing data", `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseBatch([]byte(tt.payload))
			var parseErr *IngestionParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("Expected *IngestionParseError, got %v", err)
			}
		})
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr error
	}{
		{"no fields", Session{}, ErrEmptySession},
		{"fields without events", Session{Fields: []FieldTimeline{{FieldIdentifier: "f1"}}}, ErrEmptySession},
		{
			"one event",
			Session{Fields: []FieldTimeline{{Events: []KeyAction{{Action: Press, KeyCode: 1, Timestamp: 5}}}}},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.session.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionLabelsFirstEncounteredOrder(t *testing.T) {
	session := Session{Fields: []FieldTimeline{
		{DisplayLabel: "Password"},
		{DisplayLabel: "Email"},
		{DisplayLabel: "Password"},
	}}

	labels := session.Labels()
	if len(labels) != 2 || labels[0] != "Password" || labels[1] != "Email" {
		t.Errorf("Labels() = %v, want [Password Email]", labels)
	}
}
