// Package state keeps the authoritative in-memory copy of each challenge.
package state

import (
	"errors"
	"sync"

	"github.com/rustyeddy/propfirm/challenge"
)

// ErrNotFound means the challenge is not cached; callers hydrate from the
// durable store.
var ErrNotFound = errors.New("challenge not in state store")

type Store interface {
	Get(id string) (challenge.Challenge, error)
	Put(c challenge.Challenge)
	Delete(id string)
}

// Memory is a Store backed by a map of value copies. Callers never share
// a record with the store, so mutating a returned challenge has no effect
// until it is Put back.
type Memory struct {
	mu         sync.RWMutex
	challenges map[string]challenge.Challenge
}

func NewMemory() *Memory {
	return &Memory{challenges: make(map[string]challenge.Challenge)}
}

func (m *Memory) Get(id string) (challenge.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.challenges[id]
	if !ok {
		return challenge.Challenge{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) Put(c challenge.Challenge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.ID] = c
}

func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, id)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.challenges)
}
