// Package layout places fields into vertical bands and maps key timestamps to
// horizontal positions.
package layout

import (
	"fmt"

	"github.com/vincentbai/keytrace/internal/models"
	"github.com/vincentbai/keytrace/internal/normalize"
)

// Geometry holds the fixed drawing dimensions, in pixels unless noted.
type Geometry struct {
	TimelineDurationMillis int64   `yaml:"timeline_duration_ms"`
	LabelColumnWidth       float64 `yaml:"label_column_width"`
	RightMargin            float64 `yaml:"right_margin"`
	FieldHeight            float64 `yaml:"field_height"`
	TopMargin              float64 `yaml:"top_margin"`
	StackStep              float64 `yaml:"stack_step"`
	BlockHeight            float64 `yaml:"block_height"`
	CanvasWidth            float64 `yaml:"canvas_width"`
	CanvasHeight           float64 `yaml:"canvas_height"`
	AxisHeight             float64 `yaml:"axis_height"`
	LabelX                 float64 `yaml:"label_x"`
}

// DefaultGeometry returns the stock 1200x400 layout with a 20 second window.
func DefaultGeometry() Geometry {
	return Geometry{
		TimelineDurationMillis: 20000,
		LabelColumnWidth:       150,
		RightMargin:            20,
		FieldHeight:            80,
		TopMargin:              30,
		StackStep:              15,
		BlockHeight:            20,
		CanvasWidth:            1200,
		CanvasHeight:           400,
		AxisHeight:             30,
		LabelX:                 10,
	}
}

// Validate rejects geometry that cannot produce a drawable timeline.
func (g Geometry) Validate() error {
	if g.TimelineDurationMillis <= 0 {
		return fmt.Errorf("timeline duration must be positive, got %d", g.TimelineDurationMillis)
	}
	if g.CanvasWidth <= g.LabelColumnWidth+g.RightMargin {
		return fmt.Errorf("canvas width %.0f leaves no room after label column %.0f and margin %.0f",
			g.CanvasWidth, g.LabelColumnWidth, g.RightMargin)
	}
	if g.FieldHeight <= 0 || g.BlockHeight <= 0 {
		return fmt.Errorf("field and block heights must be positive")
	}
	if g.StackStep < 0 || g.TopMargin < 0 || g.LabelColumnWidth < 0 {
		return fmt.Errorf("margins and stack step must not be negative")
	}
	return nil
}

// DrawWidth is the horizontal space available to key blocks.
func (g Geometry) DrawWidth() float64 {
	return g.CanvasWidth - g.LabelColumnWidth - g.RightMargin
}

// ScaleX converts milliseconds to pixels.
func (g Geometry) ScaleX() float64 {
	return g.DrawWidth() / float64(g.TimelineDurationMillis)
}

// SessionHeight is the vertical space one session occupies.
func (g Geometry) SessionHeight(session models.Session) float64 {
	return g.TopMargin + float64(len(session.Labels()))*g.FieldHeight
}

// RequiredHeight is the surface height needed to stack two sessions.
func RequiredHeight(topHeight, bottomHeight float64) float64 {
	return topHeight + bottomHeight
}

// Band is the row assigned to one distinct display label.
type Band struct {
	Index   int
	Label   string
	Caption string
	Y       float64
}

// Layout is the geometry of one session drawn at a vertical offset. It is
// built per session and never shared between sessions.
type Layout struct {
	geometry Geometry
	scaleX   float64
	yOffset  float64
	timing   normalize.Timing
	bands    []Band
	byLabel  map[string]int
}

// New assigns bands in first-encountered label order starting at
// yOffset + TopMargin.
func New(geometry Geometry, session models.Session, timing normalize.Timing, yOffset float64) *Layout {
	l := &Layout{
		geometry: geometry,
		scaleX:   geometry.ScaleX(),
		yOffset:  yOffset,
		timing:   timing,
		byLabel:  make(map[string]int),
	}
	y := yOffset + geometry.TopMargin
	for _, field := range session.Fields {
		if _, ok := l.byLabel[field.DisplayLabel]; ok {
			continue
		}
		l.byLabel[field.DisplayLabel] = len(l.bands)
		l.bands = append(l.bands, Band{
			Index:   len(l.bands),
			Label:   field.DisplayLabel,
			Caption: field.Caption(),
			Y:       y,
		})
		y += geometry.FieldHeight
	}
	return l
}

// Bands returns the bands in drawing order.
func (l *Layout) Bands() []Band {
	return l.bands
}

// Band returns the band of a label. Unknown labels map to the first band.
func (l *Layout) Band(label string) Band {
	if i, ok := l.byLabel[label]; ok {
		return l.bands[i]
	}
	if len(l.bands) > 0 {
		return l.bands[0]
	}
	return Band{Label: label, Y: l.yOffset + l.geometry.TopMargin}
}

// Timing returns the normalized times the layout was built from.
func (l *Layout) Timing() normalize.Timing {
	return l.timing
}

// Geometry returns the dimensions the layout was built with.
func (l *Layout) Geometry() Geometry {
	return l.geometry
}

// ScaleX returns pixels per millisecond.
func (l *Layout) ScaleX() float64 {
	return l.scaleX
}

// X maps a timestamp in a label's band to a horizontal position. Positions
// beyond the draw width are not clipped.
func (l *Layout) X(label string, timestamp int64) float64 {
	return l.geometry.LabelColumnWidth + float64(timestamp-l.timing.StartOf(label))*l.scaleX
}

// Width is the block width for a key held from press until the given time.
func (l *Layout) Width(press, until int64) float64 {
	w := float64(until-press) * l.scaleX
	if w < 0 {
		return 0
	}
	return w
}

// StackOffset is the vertical lift of a block at the given overlap level.
func (l *Layout) StackOffset(level int) float64 {
	return float64(level) * l.geometry.StackStep
}

// BlockY is the top of a block in a label's band at the given overlap level.
func (l *Layout) BlockY(label string, level int) float64 {
	return l.Band(label).Y - l.StackOffset(level)
}

// Height is the vertical space this session occupies.
func (l *Layout) Height() float64 {
	return l.geometry.TopMargin + float64(len(l.bands))*l.geometry.FieldHeight
}
