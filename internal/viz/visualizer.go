// Package viz keeps the live and previous sessions on one surface and owns
// the single goroutine every drawing operation runs on.
package viz

import (
	"log"
	"time"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
	"github.com/vincentbai/keytrace/internal/normalize"
	"github.com/vincentbai/keytrace/internal/playback"
)

// DividerWidth is the stroke width of the line between the two slots.
const DividerWidth = 1.5

// Visualizer animates the newest session in the top slot and shows the one
// before it, frozen, underneath. It must only be used from the UI loop.
type Visualizer struct {
	geometry layout.Geometry
	surface  canvas.Surface
	palette  *canvas.Palette
	player   *playback.Player
	skipKey  int
	now      func() time.Time
	onResize func(height float64)

	current  *models.Session
	previous *models.Session
	started  time.Time

	topHeight    float64
	bottomHeight float64
}

// Option configures a Visualizer.
type Option func(*Visualizer)

// WithClock replaces time.Now as the playback clock source.
func WithClock(now func() time.Time) Option {
	return func(v *Visualizer) { v.now = now }
}

// WithResizeHook registers the host callback told about the required height.
func WithResizeHook(fn func(height float64)) Option {
	return func(v *Visualizer) { v.onResize = fn }
}

// NewVisualizer returns a visualizer drawing on surface.
func NewVisualizer(geometry layout.Geometry, surface canvas.Surface, palette *canvas.Palette, skipKey int, opts ...Option) *Visualizer {
	v := &Visualizer{
		geometry: geometry,
		surface:  surface,
		palette:  palette,
		player:   playback.NewPlayer(surface, palette, skipKey),
		skipKey:  skipKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	surface.Resize(geometry.CanvasWidth, geometry.CanvasHeight)
	return v
}

// ShowSession rotates current to previous, redraws the history slot and
// starts live playback of session. Sessions without events are ignored.
func (v *Visualizer) ShowSession(session models.Session) {
	if err := session.Validate(); err != nil {
		log.Printf("Ignoring session %s: %v", session.ID, err)
		return
	}
	v.previous = v.current
	v.current = &session
	v.render()
}

func (v *Visualizer) render() {
	v.player.Cancel()
	v.surface.Clear()

	v.topHeight = v.geometry.SessionHeight(*v.current)
	v.bottomHeight = 0
	if v.previous != nil {
		v.bottomHeight = v.geometry.SessionHeight(*v.previous)
	}
	height := layout.RequiredHeight(v.topHeight, v.bottomHeight)
	v.surface.Resize(v.geometry.CanvasWidth, height)
	if v.onResize != nil {
		v.onResize(height)
	}

	if v.previous != nil {
		v.surface.AddLine(canvas.Line{
			X1: 0, Y1: v.topHeight,
			X2: v.geometry.CanvasWidth, Y2: v.topHeight,
			StrokeWidth: DividerWidth,
			Stroke:      canvas.DividerColor,
		})
		if timing, ok := normalize.Normalize(*v.previous, v.skipKey); ok {
			l := layout.New(v.geometry, *v.previous, timing, v.topHeight)
			v.drawLabels(l, canvas.HistoryLabel)
			playback.Replay(*v.previous, l, v.surface, v.palette, v.skipKey)
		}
	}

	timing, ok := normalize.Normalize(*v.current, v.skipKey)
	if !ok {
		return
	}
	l := layout.New(v.geometry, *v.current, timing, 0)
	v.drawLabels(l, canvas.White)
	if v.player.Load(*v.current, l) {
		v.started = v.now()
		v.player.Tick(0)
	}
}

func (v *Visualizer) drawLabels(l *layout.Layout, fill canvas.Color) {
	for _, band := range l.Bands() {
		v.surface.AddLabel(canvas.Label{
			X:    v.geometry.LabelX,
			Y:    band.Y,
			Text: band.Caption,
			Fill: fill,
		})
	}
}

// Tick advances live playback to elapsedMs after it started.
func (v *Visualizer) Tick(elapsedMs int64) {
	v.player.Tick(elapsedMs)
}

// Frame advances live playback to the clock's current time. It reports
// whether a playback was active.
func (v *Visualizer) Frame() bool {
	if !v.Playing() {
		return false
	}
	v.player.Tick(v.now().Sub(v.started).Milliseconds())
	return true
}

// Playing reports whether live playback still has actions to fire.
func (v *Visualizer) Playing() bool {
	state := v.player.State()
	return state == playback.Scheduled || state == playback.Running
}

// Reset forgets both sessions and clears the surface.
func (v *Visualizer) Reset() {
	v.player.Cancel()
	v.current = nil
	v.previous = nil
	v.topHeight = 0
	v.bottomHeight = 0
	v.surface.Clear()
	v.surface.Resize(v.geometry.CanvasWidth, v.geometry.CanvasHeight)
	if v.onResize != nil {
		v.onResize(v.geometry.CanvasHeight)
	}
}

// RequiredHeight is the height the host should give the surface.
func (v *Visualizer) RequiredHeight() float64 {
	if v.current == nil {
		return v.geometry.CanvasHeight
	}
	return layout.RequiredHeight(v.topHeight, v.bottomHeight)
}

// Player exposes the live playback for inspection.
func (v *Visualizer) Player() *playback.Player {
	return v.player
}

// Status is a point-in-time summary of the visualizer.
type Status struct {
	State          string  `json:"state"`
	CurrentID      string  `json:"currentId,omitempty"`
	CurrentFields  int     `json:"currentFields"`
	PreviousID     string  `json:"previousId,omitempty"`
	PreviousFields int     `json:"previousFields"`
	OpenBlocks     int     `json:"openBlocks"`
	ElapsedMs      int64   `json:"elapsedMs"`
	DurationMs     int64   `json:"durationMs"`
	Frames         int     `json:"frames"`
	TopHeight      float64 `json:"topHeight"`
	BottomHeight   float64 `json:"bottomHeight"`
	RequiredHeight float64 `json:"requiredHeight"`
}

// Status reports the slots and playback state.
func (v *Visualizer) Status() Status {
	s := Status{
		State:          v.player.State().String(),
		OpenBlocks:     v.player.OpenBlocks(),
		ElapsedMs:      v.player.Elapsed(),
		DurationMs:     v.player.Duration(),
		Frames:         v.player.Frames(),
		TopHeight:      v.topHeight,
		BottomHeight:   v.bottomHeight,
		RequiredHeight: v.RequiredHeight(),
	}
	if v.current != nil {
		s.CurrentID = v.current.ID
		s.CurrentFields = len(v.current.Fields)
	}
	if v.previous != nil {
		s.PreviousID = v.previous.ID
		s.PreviousFields = len(v.previous.Fields)
	}
	return s
}

// Axis returns the seconds ruler matching the geometry.
func (v *Visualizer) Axis() canvas.Axis {
	return canvas.Axis{
		Left:    v.geometry.LabelColumnWidth,
		Width:   v.geometry.DrawWidth(),
		Seconds: int(v.geometry.TimelineDurationMillis / 1000),
		Height:  v.geometry.AxisHeight,
	}
}
