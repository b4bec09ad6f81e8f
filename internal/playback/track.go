package playback

import (
	"sort"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
)

// cue is one key action bound to the band it is drawn in.
type cue struct {
	event models.KeyAction
	label string
}

// cues flattens a session into key actions ordered by timestamp. Ties keep
// field order, then arrival order. Actions on skipKey are left out.
func cues(session models.Session, skipKey int) []cue {
	var out []cue
	for _, field := range session.Fields {
		for _, e := range field.Events {
			if e.KeyCode == skipKey {
				continue
			}
			out = append(out, cue{event: e, label: field.DisplayLabel})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].event.Timestamp < out[j].event.Timestamp
	})
	return out
}

// track holds the open blocks of one playback, per band and key code.
type track struct {
	layout  *layout.Layout
	surface canvas.Surface
	palette *canvas.Palette

	open    map[int]map[int]*Block
	started map[int]bool
	blocks  []*Block
}

func newTrack(l *layout.Layout, surface canvas.Surface, palette *canvas.Palette) *track {
	return &track{
		layout:  l,
		surface: surface,
		palette: palette,
		open:    make(map[int]map[int]*Block),
		started: make(map[int]bool),
	}
}

// press opens a block at width zero. With freezeOthers set, the first press
// in a band stops every block still growing in the other bands.
func (t *track) press(c cue, freezeOthers bool) *Block {
	band := t.layout.Band(c.label)

	if !t.started[band.Index] {
		t.started[band.Index] = true
		if freezeOthers {
			for index, set := range t.open {
				if index == band.Index {
					continue
				}
				for _, b := range set {
					t.freeze(b, c.event.Timestamp)
				}
			}
		}
	}

	set := t.open[band.Index]
	if set == nil {
		set = make(map[int]*Block)
		t.open[band.Index] = set
	}
	level := len(set)
	if previous, ok := set[c.event.KeyCode]; ok {
		t.freeze(previous, c.event.Timestamp)
	}

	x := t.layout.X(c.label, c.event.Timestamp)
	y := t.layout.BlockY(c.label, level)
	geometry := t.layout.Geometry()
	block := &Block{
		KeyCode:        c.event.KeyCode,
		Label:          c.label,
		Band:           band.Index,
		Level:          level,
		PressTimestamp: c.event.Timestamp,
		OriginX:        x,
		BandY:          y,
		Growing:        true,
		rect: t.surface.AddRect(canvas.Rect{
			X:      x,
			Y:      y,
			Height: geometry.BlockHeight,
			Radius: CornerRadius,
			Fill:   t.palette.ColorFor(c.event.KeyCode),
		}),
	}
	set[c.event.KeyCode] = block
	t.blocks = append(t.blocks, block)
	return block
}

// release closes the matching open block in the same band. Unmatched
// releases are ignored.
func (t *track) release(c cue) {
	band := t.layout.Band(c.label)
	set := t.open[band.Index]
	block, ok := set[c.event.KeyCode]
	if !ok {
		return
	}
	delete(set, c.event.KeyCode)
	t.freeze(block, c.event.Timestamp)
}

// freeze stops a growing block with its width fixed at the given time.
func (t *track) freeze(b *Block, at int64) {
	if !b.Growing {
		return
	}
	b.setWidth(t.layout.Width(b.PressTimestamp, at))
	b.Growing = false
}

// grow extends every growing open block to the given playback time.
func (t *track) grow(now int64) {
	for _, set := range t.open {
		for _, b := range set {
			if b.Growing {
				b.setWidth(t.layout.Width(b.PressTimestamp, now))
			}
		}
	}
}

// stopAll ends the playback. Blocks never released drop to zero width, as
// in Replay; blocks already frozen keep their width.
func (t *track) stopAll() {
	for _, set := range t.open {
		for _, b := range set {
			if b.Growing {
				b.setWidth(0)
				b.Growing = false
			}
		}
	}
	t.open = make(map[int]map[int]*Block)
}

func (t *track) openCount() int {
	n := 0
	for _, set := range t.open {
		n += len(set)
	}
	return n
}
