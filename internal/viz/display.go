package viz

import (
	"context"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/layout"
	"github.com/vincentbai/keytrace/internal/models"
)

// Display wires a visualizer, its scene and a hub onto one UI loop. All of
// its methods are safe to call from any goroutine.
type Display struct {
	loop  *Loop
	hub   *Hub
	scene *canvas.Scene
	vis   *Visualizer
}

// NewDisplay builds a display ticking at frameRate. onAdvance, if set, runs
// on the loop after every frame in which live playback moved.
func NewDisplay(geometry layout.Geometry, palette *canvas.Palette, skipKey, frameRate int, onAdvance func(), opts ...Option) *Display {
	d := &Display{scene: canvas.NewScene(geometry.CanvasWidth, geometry.CanvasHeight)}
	d.vis = NewVisualizer(geometry, d.scene, palette, skipKey, opts...)
	d.loop = NewLoop(frameRate, func() {
		if d.vis.Frame() && onAdvance != nil {
			onAdvance()
		}
	})
	d.hub = NewHub(d.loop)
	d.hub.Subscribe(d.vis.ShowSession)
	return d
}

// Run drives the UI loop until ctx is cancelled.
func (d *Display) Run(ctx context.Context) {
	d.loop.Run(ctx)
}

// Done is closed once Run has returned.
func (d *Display) Done() <-chan struct{} {
	return d.loop.Done()
}

// Subscribe registers fn to receive every published session after the
// visualizer has shown it.
func (d *Display) Subscribe(fn func(models.Session)) {
	d.hub.Subscribe(fn)
}

// Publish queues session for display.
func (d *Display) Publish(session models.Session) bool {
	return d.hub.Publish(session)
}

// Snapshot copies the scene and its time axis.
func (d *Display) Snapshot(ctx context.Context) (canvas.Frame, canvas.Axis, error) {
	var frame canvas.Frame
	var axis canvas.Axis
	err := d.loop.Call(ctx, func() {
		frame = d.scene.Snapshot()
		axis = d.vis.Axis()
	})
	return frame, axis, err
}

func (d *Display) Status(ctx context.Context) (Status, error) {
	var status Status
	err := d.loop.Call(ctx, func() {
		status = d.vis.Status()
	})
	return status, err
}

// Reset clears both slots on the loop.
func (d *Display) Reset(ctx context.Context) error {
	return d.loop.Call(ctx, d.vis.Reset)
}
