package viz

import (
	"sync"

	"github.com/vincentbai/keytrace/internal/models"
)

// Poster runs work on the UI loop.
type Poster interface {
	Post(fn func()) bool
}

// Hub delivers published sessions to subscribers on the UI loop, in
// subscription order.
type Hub struct {
	poster Poster

	mu          sync.Mutex
	subscribers []func(models.Session)
}

// NewHub returns a hub that delivers through poster.
func NewHub(poster Poster) *Hub {
	return &Hub{poster: poster}
}

// Subscribe registers fn for every future session.
func (h *Hub) Subscribe(fn func(models.Session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, fn)
}

// Publish hands session to the UI loop without blocking the caller. It
// returns false when the loop is no longer running.
func (h *Hub) Publish(session models.Session) bool {
	return h.poster.Post(func() {
		h.mu.Lock()
		subscribers := make([]func(models.Session), len(h.subscribers))
		copy(subscribers, h.subscribers)
		h.mu.Unlock()

		for _, fn := range subscribers {
			fn(session)
		}
	})
}
