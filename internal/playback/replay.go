package playback

import (
	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
)

// Replay draws a session's final geometry in one pass, without timing or
// growth. Widths come straight from matched press/release pairs; presses
// never released stay at zero width.
func Replay(session models.Session, l *layout.Layout, surface canvas.Surface, palette *canvas.Palette, skipKey int) []*Block {
	t := newTrack(l, surface, palette)
	for _, c := range cues(session, skipKey) {
		switch c.event.Action {
		case models.Press:
			t.press(c, false)
		case models.Release:
			t.release(c)
		}
	}
	for _, b := range t.blocks {
		b.Growing = false
	}
	return t.blocks
}
