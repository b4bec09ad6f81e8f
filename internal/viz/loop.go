package viz

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopStopped is returned by Call once the loop has exited.
var ErrLoopStopped = errors.New("ui loop stopped")

// Loop is the single goroutine all visualization work runs on. Other
// goroutines hand it work through Post, which never blocks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool

	interval time.Duration
	onFrame  func()
}

// NewLoop returns a loop that calls onFrame frameRate times per second.
func NewLoop(frameRate int, onFrame func()) *Loop {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Loop{
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		interval: time.Second / time.Duration(frameRate),
		onFrame:  onFrame,
	}
}

// Post queues fn to run on the loop. It is safe to call from any goroutine
// and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(finished)
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posted work and frame ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			l.drain()
		case <-ticker.C:
			l.drain()
			if l.onFrame != nil {
				l.onFrame()
			}
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
