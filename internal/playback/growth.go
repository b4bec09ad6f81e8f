package playback

// Grower extends held blocks once per frame. It only runs while a playback
// is active and reads time from the scheduler's playback clock.
type Grower struct {
	running bool
	frames  int
}

func (g *Grower) Start() {
	g.running = true
	g.frames = 0
}

func (g *Grower) Stop() {
	g.running = false
}

func (g *Grower) Running() bool {
	return g.running
}

// Frames reports how many updates ran since Start.
func (g *Grower) Frames() int {
	return g.frames
}

func (g *Grower) update(t *track, now int64) {
	if !g.running {
		return
	}
	g.frames++
	t.grow(now)
}
