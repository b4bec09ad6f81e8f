package playback

import (
	"math"
	"testing"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
	"github.com/vincentbai/keytrace/internal/normalize"
)

const tab = 9

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func press(key int, ts int64) models.KeyAction {
	return models.KeyAction{Action: models.Press, KeyCode: key, Timestamp: ts}
}

func release(key int, ts int64) models.KeyAction {
	return models.KeyAction{Action: models.Release, KeyCode: key, Timestamp: ts}
}

func field(label string, events ...models.KeyAction) models.FieldTimeline {
	return models.FieldTimeline{FieldIdentifier: label, DisplayLabel: label, Events: events}
}

func setup(t *testing.T, session models.Session) (*Player, *layout.Layout, *canvas.Scene) {
	t.Helper()

	timing, ok := normalize.Normalize(session, tab)
	if !ok {
		t.Fatal("Expected a playable session")
	}
	scene := canvas.NewScene(1200, 400)
	l := layout.New(layout.DefaultGeometry(), session, timing, 0)
	player := NewPlayer(scene, canvas.NewPalette(1), tab)
	if !player.Load(session, l) {
		t.Fatal("Expected Load to arm the player")
	}
	return player, l, scene
}

// runTo ticks the player in 16ms frames up to and including elapsed.
func runTo(p *Player, elapsed int64) {
	for ms := p.Elapsed(); ms < elapsed; ms += 16 {
		p.Tick(ms)
	}
	p.Tick(elapsed)
}

func TestPlayerRoundTripGeometry(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("Hello", press(65, 1000), release(65, 1150)),
	}}
	player, l, _ := setup(t, session)

	runTo(player, 150)

	blocks := player.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if !approx(b.OriginX, 150) {
		t.Errorf("OriginX = %v, want 150", b.OriginX)
	}
	if !approx(b.Width(), 150*l.ScaleX()) {
		t.Errorf("Width = %v, want %v", b.Width(), 150*l.ScaleX())
	}
	if b.Growing {
		t.Error("Expected released block to be frozen")
	}
	if player.State() != Finished {
		t.Errorf("Expected finished, got %s", player.State())
	}
	if player.Growing() {
		t.Error("Expected growth to stop after the last action")
	}
}

func TestPlayerStateTransitions(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", release(66, 1000), press(65, 1100), release(65, 1300)),
	}}
	player, _, _ := setup(t, session)

	if player.State() != Scheduled {
		t.Fatalf("Expected scheduled after Load, got %s", player.State())
	}
	player.Tick(0)
	if player.State() != Running {
		t.Fatalf("Expected running after first action, got %s", player.State())
	}
	player.Tick(200)
	if player.OpenBlocks() != 1 {
		t.Fatalf("Expected 1 held key, got %d", player.OpenBlocks())
	}
	player.Tick(300)
	if player.State() != Finished {
		t.Fatalf("Expected finished, got %s", player.State())
	}
	player.Tick(400)
	if player.Elapsed() != 300 {
		t.Errorf("Ticks after finishing must be ignored, elapsed %d", player.Elapsed())
	}
}

func TestPlayerGrowsWhileHeld(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 0+5000), release(65, 5500)),
	}}
	player, l, _ := setup(t, session)

	player.Tick(0)
	player.Tick(100)
	b := player.Blocks()[0]
	if !approx(b.Width(), 100*l.ScaleX()) {
		t.Errorf("Width after 100ms = %v, want %v", b.Width(), 100*l.ScaleX())
	}
	if !b.Growing {
		t.Error("Expected held block to be growing")
	}
	if player.Now() != 5100 {
		t.Errorf("Now() = %d, want 5100", player.Now())
	}
	player.Tick(50)
	if !approx(b.Width(), 100*l.ScaleX()) {
		t.Error("Playback clock must not run backwards")
	}
}

func TestOverlapLevelReusesFreedSlot(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A",
			press(65, 1000),   // level 0
			press(66, 1010),   // level 1
			release(66, 1020), // frees level 1
			press(67, 1030),   // level 1 again
			release(65, 1040),
			release(67, 1050),
			press(68, 1060), // nothing held: level 0
			release(68, 1070),
		),
	}}
	player, l, _ := setup(t, session)
	runTo(player, 100)

	blocks := player.Blocks()
	wantLevels := []int{0, 1, 1, 0}
	if len(blocks) != len(wantLevels) {
		t.Fatalf("Expected %d blocks, got %d", len(wantLevels), len(blocks))
	}
	for i, b := range blocks {
		if b.Level != wantLevels[i] {
			t.Errorf("Block %d (key %d) level = %d, want %d", i, b.KeyCode, b.Level, wantLevels[i])
		}
		if want := l.Band("A").Y - float64(wantLevels[i])*15; !approx(b.BandY, want) {
			t.Errorf("Block %d y = %v, want %v", i, b.BandY, want)
		}
	}
}

func TestFieldSwitchFreezesOtherBands(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("Email", press(65, 1000), release(65, 1400)),
		field("Password", press(66, 1100), release(66, 1200)),
	}}
	player, l, _ := setup(t, session)

	runTo(player, 400)

	blocks := player.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	email := blocks[0]
	if !approx(email.Width(), 100*l.ScaleX()) {
		t.Errorf("Email block should freeze when Password starts: width %v, want %v", email.Width(), 100*l.ScaleX())
	}
	password := blocks[1]
	if !approx(password.Width(), 100*l.ScaleX()) {
		t.Errorf("Password width = %v, want %v", password.Width(), 100*l.ScaleX())
	}
	if password.Level != 0 {
		t.Errorf("Overlap is counted per band, got level %d", password.Level)
	}
}

func TestUnmatchedTrailingPressIsZeroWidth(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 1000), release(65, 1100), press(66, 1200)),
	}}
	player, _, _ := setup(t, session)

	runTo(player, 200)

	blocks := player.Blocks()
	last := blocks[len(blocks)-1]
	if last.Width() != 0 || last.Growing {
		t.Errorf("Expected frozen zero-width block, got width %v growing %v", last.Width(), last.Growing)
	}
	if player.OpenBlocks() != 0 {
		t.Errorf("Expected open set cleared, got %d", player.OpenBlocks())
	}
}

func TestUnmatchedReleaseIsIgnored(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", release(70, 900), press(65, 1000), release(65, 1100)),
	}}
	player, _, _ := setup(t, session)

	runTo(player, 200)

	if n := len(player.Blocks()); n != 1 {
		t.Errorf("Expected 1 block, got %d", n)
	}
}

func TestSkipKeyNotDrawn(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(tab, 1000), release(tab, 1050), press(65, 1100), release(65, 1200)),
	}}
	player, l, _ := setup(t, session)

	runTo(player, 200)

	blocks := player.Blocks()
	if len(blocks) != 1 || blocks[0].KeyCode != 65 {
		t.Fatalf("Expected only key 65 to be drawn, got %d blocks", len(blocks))
	}
	if !approx(blocks[0].OriginX, l.Geometry().LabelColumnWidth) {
		t.Errorf("Field start should ignore tab, x = %v", blocks[0].OriginX)
	}
}

func TestCancelStopsPlayback(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 1000), release(65, 2000)),
	}}
	player, _, _ := setup(t, session)

	player.Tick(100)
	b := player.Blocks()[0]
	width := b.Width()

	player.Cancel()
	player.Tick(500)

	if player.State() != Idle {
		t.Errorf("Expected idle after cancel, got %s", player.State())
	}
	if b.Width() != width {
		t.Error("Block grew after cancel")
	}
	if player.Growing() {
		t.Error("Expected growth driver stopped")
	}
}

func TestLoadWithoutEvents(t *testing.T) {
	scene := canvas.NewScene(1200, 400)
	player := NewPlayer(scene, canvas.NewPalette(1), tab)
	session := models.Session{Fields: []models.FieldTimeline{field("A", press(tab, 10))}}
	l := layout.New(layout.DefaultGeometry(), session, normalize.Timing{Origin: 10}, 0)

	if player.Load(session, l) {
		t.Error("Expected Load to refuse a session with nothing to draw")
	}
	if player.State() != Idle {
		t.Errorf("Expected idle, got %s", player.State())
	}
	player.Tick(100)
	if len(scene.Snapshot().Rects) != 0 {
		t.Error("Expected nothing drawn")
	}
}

func TestReplayMatchesLivePlayback(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("Name",
			press(65, 1000), press(66, 1040), release(65, 1090),
			press(67, 1100), release(66, 1180), release(67, 1250),
			press(65, 1300), press(65, 1350), release(65, 1400),
		),
	}}
	assertReplayMatchesLive(t, session, 400)
}

func TestReplayMatchesLiveWithUnreleasedPress(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 1000), press(66, 1100), release(66, 1200)),
	}}
	live := assertReplayMatchesLive(t, session, 400)

	if live[0].Width() != 0 || live[0].Growing {
		t.Errorf("Unreleased press should end at zero width, got %v growing %v", live[0].Width(), live[0].Growing)
	}
}

// assertReplayMatchesLive plays session to elapsed, replays it on a fresh
// scene and compares the final geometry block by block.
func assertReplayMatchesLive(t *testing.T, session models.Session, elapsed int64) []*Block {
	t.Helper()

	player, l, _ := setup(t, session)
	runTo(player, elapsed)
	if player.State() != Finished {
		t.Fatalf("Expected finished playback at %dms, got %s", elapsed, player.State())
	}

	replayScene := canvas.NewScene(1200, 400)
	replayed := Replay(session, l, replayScene, canvas.NewPalette(1), tab)
	live := player.Blocks()

	if len(replayed) != len(live) {
		t.Fatalf("Replay drew %d blocks, live drew %d", len(replayed), len(live))
	}
	for i := range live {
		if !approx(live[i].OriginX, replayed[i].OriginX) ||
			!approx(live[i].BandY, replayed[i].BandY) ||
			!approx(live[i].Width(), replayed[i].Width()) {
			t.Errorf("Block %d differs: live (x %v, y %v, w %v) replay (x %v, y %v, w %v)", i,
				live[i].OriginX, live[i].BandY, live[i].Width(),
				replayed[i].OriginX, replayed[i].BandY, replayed[i].Width())
		}
		if replayed[i].Growing {
			t.Errorf("Replayed block %d still growing", i)
		}
		if live[i].Level != replayed[i].Level {
			t.Errorf("Block %d level differs: live %d replay %d", i, live[i].Level, replayed[i].Level)
		}
	}
	return live
}

func TestOutOfOrderEventsAreSorted(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", release(65, 1150), press(66, 1200), press(65, 1000), release(66, 1300)),
	}}
	player, l, _ := setup(t, session)
	runTo(player, 400)

	replayed := Replay(session, l, canvas.NewScene(1200, 400), canvas.NewPalette(1), tab)

	tests := []struct {
		name   string
		blocks []*Block
	}{
		{name: "live", blocks: player.Blocks()},
		{name: "replay", blocks: replayed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.blocks) != 2 {
				t.Fatalf("Expected 2 blocks, got %d", len(tt.blocks))
			}
			first, second := tt.blocks[0], tt.blocks[1]
			if first.KeyCode != 65 || second.KeyCode != 66 {
				t.Fatalf("Expected blocks in timestamp order 65, 66; got %d, %d", first.KeyCode, second.KeyCode)
			}
			if !approx(first.OriginX, 150) || !approx(first.Width(), 150*l.ScaleX()) {
				t.Errorf("Key 65: x %v width %v, want x 150 width %v", first.OriginX, first.Width(), 150*l.ScaleX())
			}
			if !approx(second.OriginX, 150+200*l.ScaleX()) || !approx(second.Width(), 100*l.ScaleX()) {
				t.Errorf("Key 66: x %v width %v", second.OriginX, second.Width())
			}
			if first.Level != 0 || second.Level != 0 {
				t.Errorf("Expected both blocks at level 0, got %d and %d", first.Level, second.Level)
			}
		})
	}
}

func TestPlayerDurationAndFrames(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 1000), release(65, 1150)),
	}}
	player, _, _ := setup(t, session)

	if d := player.Duration(); d != 150 {
		t.Errorf("Duration() = %d, want 150", d)
	}
	player.Tick(16)
	player.Tick(32)
	if f := player.Frames(); f != 2 {
		t.Errorf("Frames() = %d, want 2", f)
	}
}

func TestReplayUnmatchedPressZeroWidth(t *testing.T) {
	session := models.Session{Fields: []models.FieldTimeline{
		field("A", press(65, 1000), press(66, 1100), release(66, 1200)),
	}}
	timing, _ := normalize.Normalize(session, tab)
	l := layout.New(layout.DefaultGeometry(), session, timing, 0)

	blocks := Replay(session, l, canvas.NewScene(1200, 400), canvas.NewPalette(1), tab)

	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Width() != 0 {
		t.Errorf("Expected unmatched press at zero width, got %v", blocks[0].Width())
	}
	if !approx(blocks[1].Width(), 100*l.ScaleX()) || blocks[1].Level != 1 {
		t.Errorf("Unexpected second block: width %v level %d", blocks[1].Width(), blocks[1].Level)
	}
}
