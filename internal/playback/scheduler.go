package playback

import (
	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
)

// State is the lifecycle of a Player.
type State int

const (
	Idle State = iota
	Scheduled
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Player dispatches a session's key actions at their offset from the session
// origin and grows held blocks in between. It is driven entirely by Tick and
// must only be used from one goroutine.
type Player struct {
	surface canvas.Surface
	palette *canvas.Palette
	skipKey int

	state   State
	layout  *layout.Layout
	cues    []cue
	next    int
	elapsed int64
	track   *track
	grower  Grower
}

// NewPlayer returns an idle player drawing on surface. Actions on skipKey are
// not drawn; pass normalize.NoSkipKey to draw everything.
func NewPlayer(surface canvas.Surface, palette *canvas.Palette, skipKey int) *Player {
	return &Player{
		surface: surface,
		palette: palette,
		skipKey: skipKey,
	}
}

// Load arms a new playback, cancelling any playback in progress. It returns
// false and stays idle when the session has nothing to play.
func (p *Player) Load(session models.Session, l *layout.Layout) bool {
	p.Cancel()

	queue := cues(session, p.skipKey)
	if len(queue) == 0 {
		return false
	}
	p.layout = l
	p.cues = queue
	p.track = newTrack(l, p.surface, p.palette)
	p.state = Scheduled
	p.grower.Start()
	return true
}

// Tick advances the playback clock to elapsedMs after the origin, fires every
// action due by then and grows the blocks still held.
func (p *Player) Tick(elapsedMs int64) {
	if p.state != Scheduled && p.state != Running {
		return
	}
	if elapsedMs > p.elapsed {
		p.elapsed = elapsedMs
	}

	origin := p.layout.Timing().Origin
	for p.next < len(p.cues) && p.cues[p.next].event.Timestamp-origin <= p.elapsed {
		c := p.cues[p.next]
		p.next++
		p.state = Running
		switch c.event.Action {
		case models.Press:
			p.track.press(c, true)
		case models.Release:
			p.track.release(c)
		}
	}

	p.grower.update(p.track, origin+p.elapsed)

	if p.next == len(p.cues) {
		p.finish()
	}
}

func (p *Player) finish() {
	p.track.stopAll()
	p.grower.Stop()
	p.state = Finished
}

// Cancel drops any scheduled actions and stops growth immediately. Blocks
// already drawn stay on the surface.
func (p *Player) Cancel() {
	p.grower.Stop()
	p.state = Idle
	p.cues = nil
	p.next = 0
	p.elapsed = 0
	p.track = nil
	p.layout = nil
}

// State returns the current lifecycle state.
func (p *Player) State() State {
	return p.state
}

// Elapsed returns the playback clock in milliseconds after the origin.
func (p *Player) Elapsed() int64 {
	return p.elapsed
}

// Now returns the playback time on the session's own clock.
func (p *Player) Now() int64 {
	if p.layout == nil {
		return 0
	}
	return p.layout.Timing().Origin + p.elapsed
}

// Duration returns the offset of the last scheduled action.
func (p *Player) Duration() int64 {
	if len(p.cues) == 0 {
		return 0
	}
	return p.cues[len(p.cues)-1].event.Timestamp - p.layout.Timing().Origin
}

// Blocks returns every block created by the current playback.
func (p *Player) Blocks() []*Block {
	if p.track == nil {
		return nil
	}
	return p.track.blocks
}

// OpenBlocks returns the number of keys currently held.
func (p *Player) OpenBlocks() int {
	if p.track == nil {
		return 0
	}
	return p.track.openCount()
}

// Frames reports how many growth updates ran in the current playback.
func (p *Player) Frames() int {
	return p.grower.Frames()
}

// Growing reports whether the growth driver is active.
func (p *Player) Growing() bool {
	return p.grower.Running()
}
