// Package canvas is the retained drawing surface the timeline draws onto.
// Shapes are kept in a display list so that growing blocks can be mutated in
// place and the whole surface exported as SVG or PNG at any moment.
package canvas

import (
	"fmt"
)

// Color is an opaque RGB colour.
type Color struct {
	R, G, B uint8
}

// CSS renders the colour as a hex string.
func (c Color) CSS() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	Background   = Color{0x2B, 0x2B, 0x2B}
	White        = Color{0xFF, 0xFF, 0xFF}
	HistoryLabel = Color{0xAA, 0xAA, 0xAA}
	DividerColor = Color{0x55, 0x55, 0x55}
)

// Rect is a key block. Width is mutated while the key is held.
type Rect struct {
	X, Y          float64
	Width, Height float64
	Radius        float64
	Fill          Color
}

// Label is a single line of text anchored at its baseline.
type Label struct {
	X, Y float64
	Text string
	Fill Color
}

// Line is a straight stroke.
type Line struct {
	X1, Y1, X2, Y2 float64
	StrokeWidth    float64
	Stroke         Color
}

// Surface is what the renderer and the playback scheduler draw on.
type Surface interface {
	Clear()
	Resize(width, height float64)
	Size() (width, height float64)
	AddRect(r Rect) *Rect
	AddLabel(l Label)
	AddLine(l Line)
}

// Scene is the in-memory Surface. It is not safe for concurrent use; it is
// owned by the UI loop and exported from a Snapshot.
type Scene struct {
	width, height float64
	rects         []*Rect
	labels        []Label
	lines         []Line
}

// NewScene returns an empty scene of the given size.
func NewScene(width, height float64) *Scene {
	return &Scene{width: width, height: height}
}

func (s *Scene) Clear() {
	s.rects = nil
	s.labels = nil
	s.lines = nil
}

func (s *Scene) Resize(width, height float64) {
	s.width = width
	s.height = height
}

func (s *Scene) Size() (float64, float64) {
	return s.width, s.height
}

func (s *Scene) AddRect(r Rect) *Rect {
	rect := &r
	s.rects = append(s.rects, rect)
	return rect
}

func (s *Scene) AddLabel(l Label) {
	s.labels = append(s.labels, l)
}

func (s *Scene) AddLine(l Line) {
	s.lines = append(s.lines, l)
}

// Frame is an immutable copy of a scene.
type Frame struct {
	Width, Height float64
	Rects         []Rect
	Labels        []Label
	Lines         []Line
}

// Snapshot copies the current display list.
func (s *Scene) Snapshot() Frame {
	frame := Frame{
		Width:  s.width,
		Height: s.height,
		Rects:  make([]Rect, len(s.rects)),
		Labels: append([]Label(nil), s.labels...),
		Lines:  append([]Line(nil), s.lines...),
	}
	for i, r := range s.rects {
		frame.Rects[i] = *r
	}
	return frame
}
