// Package trading owns the challenge lifecycle. SubmitTrade is the only way
// a trade is ever accepted.
package trading

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/rustyeddy/propfirm/daily"
	"github.com/rustyeddy/propfirm/execution"
	"github.com/rustyeddy/propfirm/id"
	"github.com/rustyeddy/propfirm/journal"
	"github.com/rustyeddy/propfirm/lock"
	"github.com/rustyeddy/propfirm/reconcile"
	"github.com/rustyeddy/propfirm/state"
	"github.com/yanun0323/logs"
)

type TradeRequest struct {
	ChallengeID string
	Symbol      string
	Side        string
	Size        string
}

type TradeResult struct {
	Trade     challenge.Trade
	Challenge challenge.Challenge
}

type Service struct {
	engine  *execution.Engine
	states  state.Store
	locks   *lock.Registry
	journal journal.Store

	plans        challenge.Plans
	now          func() time.Time
	storeTimeout time.Duration

	mu      sync.RWMutex
	blocked map[string]string
}

type Option func(*Service)

func WithPlans(p challenge.Plans) Option {
	return func(s *Service) { s.plans = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStoreTimeout bounds every durable-store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

func New(engine *execution.Engine, states state.Store, locks *lock.Registry, store journal.Store, opts ...Option) *Service {
	s := &Service{
		engine:       engine,
		states:       states,
		locks:        locks,
		journal:      store,
		plans:        challenge.DefaultPlans,
		now:          time.Now,
		storeTimeout: 5 * time.Second,
		blocked:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitTrade validates, executes and records one trade under the
// challenge's lock. A failure to persist after a successful execution is
// logged and audited but does not fail the call: the in-memory result
// stands and reconciliation catches any drift.
func (s *Service) SubmitTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	chID := strings.TrimSpace(req.ChallengeID)
	if chID == "" {
		return TradeResult{}, challenge.Reject(challenge.CodeNotFound, "missing challenge id")
	}

	held, err := s.acquire(ctx, chID)
	if err != nil {
		return TradeResult{}, err
	}
	defer held.Release()

	c, err := s.load(ctx, chID)
	if err != nil {
		return TradeResult{}, err
	}

	tr, next, err := s.engine.Execute(ctx, c, execution.Intent{
		Symbol: req.Symbol,
		Side:   req.Side,
		Size:   req.Size,
	})
	if err != nil {
		return TradeResult{}, err
	}

	s.states.Put(next)
	s.persistTrade(ctx, tr, c.Status, next)

	return TradeResult{Trade: tr, Challenge: next}, nil
}

func (s *Service) persistTrade(ctx context.Context, tr challenge.Trade, prev challenge.Status, next challenge.Challenge) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var err error
	if cm, ok := s.journal.(journal.Committer); ok {
		err = cm.CommitTrade(sctx, tr, next)
	} else if err = s.journal.AppendTrade(sctx, tr); err == nil {
		err = s.journal.SaveChallenge(sctx, next)
	}
	if err != nil {
		logs.Errorf("PERSIST_FAILED challenge=%s trade=%s equity=%s: %+v", next.ID, tr.ID, next.Equity, err)
		s.audit(sctx, next, journal.ActionPersistFailed, map[string]any{
			"tradeId": tr.ID,
			"equity":  next.Equity.String(),
			"error":   err.Error(),
		})
		return
	}

	s.audit(sctx, next, journal.ActionTradeExecute, map[string]any{
		"tradeId":    tr.ID,
		"symbol":     tr.Symbol,
		"side":       tr.Side,
		"size":       tr.Size.String(),
		"entryPrice": tr.EntryPrice.String(),
		"exitPrice":  tr.ExitPrice.String(),
		"pnl":        tr.PnL.String(),
	})

	if prev != next.Status {
		logs.Infof("challenge %s: %s -> %s (equity %s)", next.ID, prev, next.Status, next.Equity.StringFixed(2))
		s.audit(sctx, next, journal.ActionStatusChange, map[string]any{
			"from":   prev,
			"to":     next.Status,
			"equity": next.Equity.String(),
		})
	}
}

// CreateChallenge opens a challenge on a plan. It starts ACTIVE when
// activate is set and PENDING_PAYMENT otherwise.
func (s *Service) CreateChallenge(ctx context.Context, userID, plan string, activate bool) (challenge.Challenge, error) {
	p, err := s.plans.Lookup(plan)
	if err != nil {
		return challenge.Challenge{}, err
	}

	status := challenge.StatusPendingPayment
	if activate {
		status = challenge.StatusActive
	}
	c, err := challenge.New(userID, p, status, s.now())
	if err != nil {
		return challenge.Challenge{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.journal.SaveChallenge(sctx, c); err != nil {
		logs.Errorf("create challenge for %s: %+v", c.UserID, err)
		return challenge.Challenge{}, challenge.Reject(challenge.CodeStoreUnavailable, "save challenge: %v", err)
	}
	s.states.Put(c)

	s.audit(sctx, c, journal.ActionChallengeCreate, map[string]any{
		"plan":           c.Plan,
		"status":         c.Status,
		"initialBalance": c.InitialBalance.String(),
	})
	logs.Infof("challenge %s created for %s on %s (%s)", c.ID, c.UserID, c.Plan, c.Status)
	return c, nil
}

// Activate moves a PENDING_PAYMENT challenge to ACTIVE once payment has
// been captured elsewhere.
func (s *Service) Activate(ctx context.Context, chID string) (challenge.Challenge, error) {
	held, err := s.acquire(ctx, chID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	defer held.Release()

	c, err := s.load(ctx, chID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if c.Status != challenge.StatusPendingPayment {
		return challenge.Challenge{}, challenge.Reject(challenge.CodeNotActive, "challenge %s is %s, not %s", c.ID, c.Status, challenge.StatusPendingPayment)
	}

	now := s.now().UTC()
	c.Status = challenge.StatusActive
	c.UpdatedAt = now
	_, c = daily.RollIfNeeded(c, now)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.journal.SaveChallenge(sctx, c); err != nil {
		logs.Errorf("activate challenge %s: %+v", c.ID, err)
		return challenge.Challenge{}, challenge.Reject(challenge.CodeStoreUnavailable, "save challenge: %v", err)
	}
	s.states.Put(c)

	s.audit(sctx, c, journal.ActionChallengeActivate, map[string]any{"status": c.Status})
	logs.Infof("challenge %s activated", c.ID)
	return c, nil
}

// Challenge returns the current state, hydrating it if needed.
func (s *Service) Challenge(ctx context.Context, chID string) (challenge.Challenge, error) {
	held, err := s.acquire(ctx, chID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	defer held.Release()

	return s.load(ctx, chID)
}

// Trades reads the ledger of one challenge from the durable store.
func (s *Service) Trades(ctx context.Context, chID string) ([]challenge.Trade, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	trades, err := s.journal.ListTrades(sctx, chID)
	if err != nil {
		return nil, challenge.Reject(challenge.CodeStoreUnavailable, "list trades: %v", err)
	}
	if len(trades) > 0 {
		return trades, nil
	}

	if _, err := s.states.Get(chID); err == nil {
		return trades, nil
	}
	if _, err := s.journal.LoadChallenge(sctx, chID); err != nil {
		return nil, s.loadError(chID, err)
	}
	return trades, nil
}

// Verify reconciles the current state against the ledger. A mismatch
// blocks the challenge until Unblock is called.
func (s *Service) Verify(ctx context.Context, chID string) (reconcile.Report, error) {
	held, err := s.acquire(ctx, chID)
	if err != nil {
		return reconcile.Report{}, err
	}
	defer held.Release()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.states.Get(chID)
	if err != nil {
		if c, err = s.journal.LoadChallenge(sctx, chID); err != nil {
			return reconcile.Report{}, s.loadError(chID, err)
		}
	}
	trades, err := s.journal.ListTrades(sctx, chID)
	if err != nil {
		return reconcile.Report{}, challenge.Reject(challenge.CodeStoreUnavailable, "list trades: %v", err)
	}

	report, err := reconcile.Verify(c, trades)
	if err != nil {
		s.block(sctx, c, err)
		return report, err
	}
	return report, nil
}

// Unblock clears an integrity block and drops the cached copy so the next
// access re-hydrates from the durable store.
func (s *Service) Unblock(chID string) {
	s.mu.Lock()
	delete(s.blocked, chID)
	s.mu.Unlock()

	s.states.Delete(chID)
	logs.Infof("challenge %s unblocked", chID)
}

func (s *Service) Blocked(chID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocked[chID]
	return ok
}

func (s *Service) acquire(ctx context.Context, chID string) (*lock.Held, error) {
	held, err := s.locks.Acquire(ctx, chID)
	if err != nil {
		return nil, challenge.Reject(challenge.CodeLockTimeout, "challenge %s is busy: %v", chID, err)
	}
	return held, nil
}

// load returns the live state of chID. The caller holds its lock.
func (s *Service) load(ctx context.Context, chID string) (challenge.Challenge, error) {
	s.mu.RLock()
	reason, blocked := s.blocked[chID]
	s.mu.RUnlock()
	if blocked {
		return challenge.Challenge{}, challenge.Reject(challenge.CodeIntegrity, "challenge %s is blocked: %s", chID, reason)
	}

	if c, err := s.states.Get(chID); err == nil {
		return c, nil
	}
	return s.hydrate(ctx, chID)
}

// hydrate rebuilds the live state from the durable store. The record is
// checked against its ledger first; the daily baseline is rolled when the
// last write happened on an earlier UTC day.
func (s *Service) hydrate(ctx context.Context, chID string) (challenge.Challenge, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.journal.LoadChallenge(sctx, chID)
	if err != nil {
		return challenge.Challenge{}, s.loadError(chID, err)
	}
	trades, err := s.journal.ListTrades(sctx, chID)
	if err != nil {
		return challenge.Challenge{}, challenge.Reject(challenge.CodeStoreUnavailable, "list trades: %v", err)
	}

	if err := c.Validate(); err != nil {
		s.block(sctx, c, err)
		return challenge.Challenge{}, challenge.Reject(challenge.CodeIntegrity, "%v", err)
	}
	if _, err := reconcile.Verify(c, trades); err != nil {
		s.block(sctx, c, err)
		return challenge.Challenge{}, err
	}

	now := s.now()
	_, c = daily.RollFromUpdatedAt(c, now)
	c.DailyDate = challenge.UTCDate(now)

	s.states.Put(c)
	logs.Infof("challenge %s hydrated: %d trades, equity %s", c.ID, len(trades), c.Equity.StringFixed(2))
	return c, nil
}

func (s *Service) loadError(chID string, err error) error {
	if errors.Is(err, journal.ErrNotFound) {
		return challenge.Reject(challenge.CodeNotFound, "challenge %s not found", chID)
	}
	logs.Errorf("load challenge %s: %+v", chID, err)
	return challenge.Reject(challenge.CodeStoreUnavailable, "load challenge %s: %v", chID, err)
}

func (s *Service) block(ctx context.Context, c challenge.Challenge, cause error) {
	s.mu.Lock()
	s.blocked[c.ID] = cause.Error()
	s.mu.Unlock()

	s.states.Delete(c.ID)
	logs.Errorf("INTEGRITY_VIOLATION challenge=%s: %v", c.ID, cause)
	s.audit(ctx, c, journal.ActionIntegrityViolation, map[string]any{"error": cause.Error()})
}

func (s *Service) audit(ctx context.Context, c challenge.Challenge, action journal.Action, details map[string]any) {
	b, err := json.Marshal(details)
	if err != nil {
		b = []byte("{}")
	}
	now := s.now().UTC()
	e := journal.AuditEvent{
		ID:          id.NewAt(now),
		UserID:      c.UserID,
		ChallengeID: c.ID,
		Action:      action,
		Details:     string(b),
		Time:        now,
	}
	if err := s.journal.RecordAudit(ctx, e); err != nil {
		logs.Errorf("audit %s challenge=%s: %+v", action, c.ID, err)
	}
}

// storeCtx survives cancellation of the request context: once a trade has
// executed its write must still be attempted.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
