package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/propfirm/challenge"
)

// Memory keeps everything in process. It is the development default and
// what most tests run against.
type Memory struct {
	mu         sync.RWMutex
	challenges map[string]challenge.Challenge
	trades     map[string][]challenge.Trade
	tradeIDs   map[string]struct{}
	audit      []AuditEvent
	closed     bool
}

var (
	_ Store     = (*Memory)(nil)
	_ Committer = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		challenges: make(map[string]challenge.Challenge),
		trades:     make(map[string][]challenge.Trade),
		tradeIDs:   make(map[string]struct{}),
	}
}

var errClosed = errors.New("journal: store closed")

func (m *Memory) LoadChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return challenge.Challenge{}, errClosed
	}
	c, ok := m.challenges[id]
	if !ok {
		return challenge.Challenge{}, fmt.Errorf("challenge %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) SaveChallenge(ctx context.Context, c challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.challenges[c.ID] = c
	return nil
}

func (m *Memory) AppendTrade(ctx context.Context, t challenge.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(t)
}

func (m *Memory) appendLocked(t challenge.Trade) error {
	if m.closed {
		return errClosed
	}
	if _, dup := m.tradeIDs[t.ID]; dup {
		return fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateKey)
	}
	m.tradeIDs[t.ID] = struct{}{}
	m.trades[t.ChallengeID] = append(m.trades[t.ChallengeID], t)
	return nil
}

func (m *Memory) CommitTrade(ctx context.Context, t challenge.Trade, c challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendLocked(t); err != nil {
		return err
	}
	m.challenges[c.ID] = c
	return nil
}

func (m *Memory) ListTrades(ctx context.Context, challengeID string) ([]challenge.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}

	out := make([]challenge.Trade, len(m.trades[challengeID]))
	copy(out, m.trades[challengeID])
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) RecordAudit(ctx context.Context, e AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.audit = append(m.audit, e)
	return nil
}

// Audit returns the recorded events in order, optionally filtered to one
// challenge.
func (m *Memory) Audit(challengeID string) []AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AuditEvent
	for _, e := range m.audit {
		if challengeID == "" || e.ChallengeID == challengeID {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
