// Package lock hands out one mutual-exclusion lock per challenge id.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock could not be taken before the
// deadline. Callers may retry.
var ErrLockTimeout = errors.New("lock acquire timed out")

// Registry owns the per-challenge locks. Entries are created on first use
// and live for the rest of the process.
type Registry struct {
	mu      sync.Mutex
	locks   map[string]*entry
	timeout time.Duration
}

// entry is a one-slot semaphore; a channel lets Acquire honour a context.
type entry struct {
	slot chan struct{}
}

// Held is an acquired lock. Release it exactly once; extra calls are no-ops.
type Held struct {
	ID   string
	e    *entry
	once sync.Once
}

// NewRegistry returns an empty registry. A positive timeout bounds every
// Acquire in addition to the caller's context; zero waits on ctx alone.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		locks:   make(map[string]*entry),
		timeout: timeout,
	}
}

func (r *Registry) get(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.locks[id]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		r.locks[id] = e
	}
	return e
}

// Acquire blocks until the lock for id is held, ctx is done, or the
// registry timeout expires.
func (r *Registry) Acquire(ctx context.Context, id string) (*Held, error) {
	e := r.get(id)

	select {
	case e.slot <- struct{}{}:
		return &Held{ID: id, e: e}, nil
	default:
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	select {
	case e.slot <- struct{}{}:
		return &Held{ID: id, e: e}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: challenge %q: %w", ErrLockTimeout, id, ctx.Err())
	}
}

// Release gives the lock back.
func (h *Held) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() { <-h.e.slot })
}

// Len reports how many challenge locks have been created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
