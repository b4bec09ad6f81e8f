// Package metrics holds the Prometheus collectors for ingestion and playback.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keytrace_sessions_received_total",
		Help: "Sessions accepted for display.",
	})
	FieldsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keytrace_fields_parsed_total",
		Help: "Field timelines parsed from reports.",
	})
	EventsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keytrace_events_parsed_total",
		Help: "Key actions parsed from reports.",
	})
	ItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keytrace_items_dropped_total",
		Help: "Report entries dropped while parsing, by reason.",
	}, []string{"reason"})
	ReportsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keytrace_reports_rejected_total",
		Help: "Reports rejected before parsing, by reason.",
	}, []string{"reason"})
	FramesTicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keytrace_frames_ticked_total",
		Help: "Frames in which live playback advanced.",
	})
)

// Drop reasons.
const (
	ReasonMalformedField = "malformed_field"
	ReasonMalformedEvent = "malformed_event"
	ReasonMissingField   = "missing_field"
	ReasonInvalidJSON    = "invalid_json"
)
