// Package stream tracks generation streams that are still producing output
// so that a client which lost its connection can re-attach to them.
package stream

import (
	"context"
	"fmt"
	"sync"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
)

// Hub is the registry of active generations, keyed by stream id.
type Hub struct {
	mu     sync.Mutex
	active map[string]*Generation
}

func NewHub() *Hub {
	return &Hub{active: make(map[string]*Generation)}
}

// Start registers a new active generation under id.
func (h *Hub) Start(id string) (*Generation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[id]; ok {
		return nil, fmt.Errorf("stream %s is already active", id)
	}
	g := &Generation{id: id, hub: h, notify: make(chan struct{})}
	h.active[id] = g
	return g, nil
}

// Subscribe attaches to the active generation id. The returned channel
// first replays every chunk published so far, then follows new ones, and is
// closed when the generation finishes or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, id string) (<-chan model.StreamChunk, error) {
	h.mu.Lock()
	g, ok := h.active[id]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", app_errors.ErrStreamNotActive, id)
	}
	return g.Subscribe(ctx), nil
}

// Active reports whether id is still producing output.
func (h *Hub) Active(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.active[id]
	return ok
}

// Len returns the number of active generations.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

func (h *Hub) remove(g *Generation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active[g.id] == g {
		delete(h.active, g.id)
	}
}

// Generation buffers the chunks of one stream for all its subscribers.
type Generation struct {
	id  string
	hub *Hub

	mu     sync.Mutex
	chunks []model.StreamChunk
	done   bool
	// notify is closed and replaced on every change.
	notify chan struct{}
}

// ID returns the stream id.
func (g *Generation) ID() string { return g.id }

// Publish appends a chunk. Chunks published after Finish are dropped.
func (g *Generation) Publish(chunk model.StreamChunk) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	chunk.StreamID = g.id
	g.chunks = append(g.chunks, chunk)
	close(g.notify)
	g.notify = make(chan struct{})
}

// Finish marks the generation complete and removes it from the hub.
// Existing subscribers still receive every buffered chunk.
func (g *Generation) Finish() {
	g.mu.Lock()
	if !g.done {
		g.done = true
		close(g.notify)
	}
	g.mu.Unlock()
	g.hub.remove(g)
}

// Subscribe returns a channel replaying and then following this generation.
func (g *Generation) Subscribe(ctx context.Context) <-chan model.StreamChunk {
	out := make(chan model.StreamChunk)
	go func() {
		defer close(out)
		next := 0
		for {
			g.mu.Lock()
			pending := g.chunks[next:len(g.chunks):len(g.chunks)]
			done := g.done
			wait := g.notify
			g.mu.Unlock()

			for _, chunk := range pending {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			next += len(pending)

			if len(pending) > 0 {
				continue
			}
			if done {
				return
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
