// Package playback drives the key block lifecycle of a session, either in
// real time (Player) or all at once for historical display (Replay).
package playback

import (
	"github.com/vincentbai/keytrace/internal/canvas"
)

// CornerRadius is the rounding applied to key blocks.
const CornerRadius = 3

// Block is the visual record of one key press. Its rect is owned by the
// surface; the block only mutates the width.
type Block struct {
	KeyCode        int
	Label          string
	Band           int
	Level          int
	PressTimestamp int64
	OriginX        float64
	BandY          float64
	Growing        bool

	rect *canvas.Rect
}

// Width returns the current drawn width.
func (b *Block) Width() float64 {
	return b.rect.Width
}

func (b *Block) setWidth(w float64) {
	if w < 0 {
		w = 0
	}
	b.rect.Width = w
}
