// Package journal is the durable side of the engine: challenge records, the
// append-only trade ledger and the audit trail.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a trade id is appended twice. The
	// ledger never updates a row.
	ErrDuplicateKey = errors.New("duplicate key: trade ledger is append-only")
)

type Action string

const (
	ActionChallengeCreate    Action = "CHALLENGE_CREATE"
	ActionChallengeActivate  Action = "CHALLENGE_ACTIVATE"
	ActionTradeExecute       Action = "TRADE_EXECUTE"
	ActionStatusChange       Action = "STATUS_CHANGE"
	ActionIntegrityViolation Action = "INTEGRITY_VIOLATION"
	ActionPersistFailed      Action = "PERSIST_FAILED"
)

type AuditEvent struct {
	ID          string
	UserID      string
	ChallengeID string
	Action      Action
	Details     string
	Time        time.Time
}

type Store interface {
	// LoadChallenge returns ErrNotFound on a miss.
	LoadChallenge(ctx context.Context, id string) (challenge.Challenge, error)
	// SaveChallenge inserts or replaces the record.
	SaveChallenge(ctx context.Context, c challenge.Challenge) error
	// AppendTrade returns ErrDuplicateKey for a repeated trade id.
	AppendTrade(ctx context.Context, t challenge.Trade) error
	// ListTrades returns a challenge's trades ordered by open time, then id.
	ListTrades(ctx context.Context, challengeID string) ([]challenge.Trade, error)
	RecordAudit(ctx context.Context, e AuditEvent) error
	Close() error
}

// Committer writes a trade and the challenge it produced atomically.
type Committer interface {
	CommitTrade(ctx context.Context, t challenge.Trade, c challenge.Challenge) error
}
