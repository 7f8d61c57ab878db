package server

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RequestRegistry tracks in-flight streaming requests so clients can abort
// generation from a second connection.
type RequestRegistry struct {
	mu      sync.Mutex
	active  map[string]context.CancelFunc
	stopped map[string]bool
}

// NewRequestRegistry builds an empty registry.
func NewRequestRegistry() *RequestRegistry {
	return &RequestRegistry{
		active:  make(map[string]context.CancelFunc),
		stopped: make(map[string]bool),
	}
}

// Register derives a cancellable context for one streaming request and
// records it under id. The returned release func must be called when the
// stream finishes; it drops the entry and frees the context.
func (r *RequestRegistry) Register(ctx context.Context, id string) (context.Context, func()) {
	streamCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.active[id] = cancel
	delete(r.stopped, id)
	r.mu.Unlock()

	release := func() {
		cancel()
		r.mu.Lock()
		delete(r.active, id)
		delete(r.stopped, id)
		r.mu.Unlock()
	}
	return streamCtx, release
}

// Stop cancels the stream registered under id. It reports whether the id was
// known.
func (r *RequestRegistry) Stop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.active[id]
	if !ok {
		return false
	}
	r.stopped[id] = true
	cancel()
	return true
}

// Stopped reports whether the stream under id was aborted via Stop, as
// opposed to finishing or failing on its own.
func (r *RequestRegistry) Stopped(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped[id]
}

// NewRequestID generates an id for clients that did not send one.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}
