package normalize

import (
	"github.com/vincentbai/keytrace/internal/models"
)

// NoSkipKey disables key filtering in FieldStartTimes.
const NoSkipKey = -1

// SessionOrigin returns the minimum timestamp across all events of all fields.
// ok is false when the session holds no events, in which case nothing should
// be laid out or played.
func SessionOrigin(session models.Session) (origin int64, ok bool) {
	for _, field := range session.Fields {
		for _, e := range field.Events {
			if !ok || e.Timestamp < origin {
				origin = e.Timestamp
				ok = true
			}
		}
	}
	return origin, ok
}

// FieldStartTime returns the earliest Press timestamp of one field, ignoring
// skipKey. ok is false when the field has no qualifying press.
func FieldStartTime(field models.FieldTimeline, skipKey int) (start int64, ok bool) {
	for _, e := range field.Events {
		if e.Action != models.Press || e.KeyCode == skipKey {
			continue
		}
		if !ok || e.Timestamp < start {
			start = e.Timestamp
			ok = true
		}
	}
	return start, ok
}

// FieldStartTimes computes the start time of every display label. Entries
// sharing a label are drawn in one band, so the earliest press among them
// wins. Labels without a qualifying press fall back to origin.
func FieldStartTimes(session models.Session, origin int64, skipKey int) map[string]int64 {
	starts := make(map[string]int64, len(session.Fields))
	found := make(map[string]bool, len(session.Fields))
	for _, field := range session.Fields {
		start, ok := FieldStartTime(field, skipKey)
		if !ok {
			continue
		}
		if !found[field.DisplayLabel] || start < starts[field.DisplayLabel] {
			starts[field.DisplayLabel] = start
			found[field.DisplayLabel] = true
		}
	}
	for _, field := range session.Fields {
		if !found[field.DisplayLabel] {
			starts[field.DisplayLabel] = origin
		}
	}
	return starts
}

// Timing bundles the derived times of one session.
type Timing struct {
	Origin     int64
	FieldStart map[string]int64
}

// Normalize computes the session origin and per-label start times. ok is
// false for a session without events.
func Normalize(session models.Session, skipKey int) (Timing, bool) {
	origin, ok := SessionOrigin(session)
	if !ok {
		return Timing{}, false
	}
	return Timing{
		Origin:     origin,
		FieldStart: FieldStartTimes(session, origin, skipKey),
	}, true
}

// StartOf returns the start time for label, falling back to the origin.
func (t Timing) StartOf(label string) int64 {
	if start, ok := t.FieldStart[label]; ok {
		return start
	}
	return t.Origin
}

// Offset returns the playback offset of a timestamp relative to the origin.
func (t Timing) Offset(timestamp int64) int64 {
	return timestamp - t.Origin
}
