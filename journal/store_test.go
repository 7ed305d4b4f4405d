package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newChallenge(t *testing.T) challenge.Challenge {
	t.Helper()
	c, err := challenge.New("user-1", challenge.DefaultPlans["PRO"], challenge.StatusActive, t0)
	require.NoError(t, err)
	return c
}

func newTrade(c challenge.Challenge, n int, at time.Time, pnl string) challenge.Trade {
	return challenge.Trade{
		ID:          fmt.Sprintf("%s-t%02d", c.ID, n),
		ChallengeID: c.ID,
		Symbol:      "BTC-USD",
		Side:        challenge.SideBuy,
		EntryPrice:  dec("64123.12345678"),
		ExitPrice:   dec("64187.24578023"),
		Size:        dec("0.015"),
		PnL:         dec(pnl),
		Status:      challenge.TradeClosed,
		OpenedAt:    at,
		ClosedAt:    at,
	}
}

// assertSameChallenge compares decimals by value; the stores may change
// their internal representation.
func assertSameChallenge(t *testing.T, want, got challenge.Challenge) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Plan, got.Plan)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.DailyDate, got.DailyDate)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created %s != %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated %s != %s", want.UpdatedAt, got.UpdatedAt)

	pairs := map[string][2]decimal.Decimal{
		"initial":    {want.InitialBalance, got.InitialBalance},
		"balance":    {want.CurrentBalance, got.CurrentBalance},
		"equity":     {want.Equity, got.Equity},
		"maxEquity":  {want.MaxEquity, got.MaxEquity},
		"dailyStart": {want.DailyStartingBalance, got.DailyStartingBalance},
		"target":     {want.ProfitTarget, got.ProfitTarget},
		"dailyLimit": {want.MaxDailyLossLimit, got.MaxDailyLossLimit},
		"totalLimit": {want.MaxTotalLossLimit, got.MaxTotalLossLimit},
	}
	for name, p := range pairs {
		assert.True(t, p[0].Equal(p[1]), "%s: %s != %s", name, p[0], p[1])
	}
}

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		s := open(t)
		_, err := s.LoadChallenge(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and reload exact decimals", func(t *testing.T) {
		s := open(t)
		c := newChallenge(t)
		c.Equity = dec("10000.12345678")
		c.CurrentBalance = c.Equity
		c.MaxEquity = dec("10010.5")

		require.NoError(t, s.SaveChallenge(ctx, c))
		got, err := s.LoadChallenge(ctx, c.ID)
		require.NoError(t, err)
		assertSameChallenge(t, c, got)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		s := open(t)
		c := newChallenge(t)
		require.NoError(t, s.SaveChallenge(ctx, c))

		c.Status = challenge.StatusFailed
		c.Equity = dec("8999")
		c.CurrentBalance = c.Equity
		c.UpdatedAt = t0.Add(time.Hour)
		require.NoError(t, s.SaveChallenge(ctx, c))

		got, err := s.LoadChallenge(ctx, c.ID)
		require.NoError(t, err)
		assertSameChallenge(t, c, got)
	})

	t.Run("append is append-only", func(t *testing.T) {
		s := open(t)
		c := newChallenge(t)
		tr := newTrade(c, 1, t0, "1.5")

		require.NoError(t, s.AppendTrade(ctx, tr))
		assert.ErrorIs(t, s.AppendTrade(ctx, tr), ErrDuplicateKey)

		got, err := s.ListTrades(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("list is ordered and scoped", func(t *testing.T) {
		s := open(t)
		c := newChallenge(t)
		other := newChallenge(t)

		require.NoError(t, s.AppendTrade(ctx, newTrade(c, 3, t0.Add(2*time.Second), "-3")))
		require.NoError(t, s.AppendTrade(ctx, newTrade(c, 2, t0.Add(time.Second), "2")))
		require.NoError(t, s.AppendTrade(ctx, newTrade(c, 1, t0.Add(time.Second), "1")))
		require.NoError(t, s.AppendTrade(ctx, newTrade(other, 1, t0, "9")))

		got, err := s.ListTrades(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, c.ID+"-t01", got[0].ID)
		assert.Equal(t, c.ID+"-t02", got[1].ID)
		assert.Equal(t, c.ID+"-t03", got[2].ID)

		first := newTrade(c, 1, t0.Add(time.Second), "1")
		assert.True(t, first.EntryPrice.Equal(got[0].EntryPrice))
		assert.True(t, first.ExitPrice.Equal(got[0].ExitPrice))
		assert.True(t, first.Size.Equal(got[0].Size))
		assert.True(t, first.PnL.Equal(got[0].PnL))
		assert.Equal(t, challenge.SideBuy, got[0].Side)
		assert.Equal(t, challenge.TradeClosed, got[0].Status)
		assert.True(t, first.OpenedAt.Equal(got[0].OpenedAt))

		none, err := s.ListTrades(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("commit writes both", func(t *testing.T) {
		s := open(t)
		cm, ok := s.(Committer)
		require.True(t, ok)

		c := newChallenge(t)
		require.NoError(t, s.SaveChallenge(ctx, c))

		tr := newTrade(c, 1, t0.Add(time.Minute), "25.5")
		c.Equity = c.Equity.Add(tr.PnL)
		c.CurrentBalance = c.Equity
		c.MaxEquity = c.Equity
		c.UpdatedAt = tr.ClosedAt
		require.NoError(t, cm.CommitTrade(ctx, tr, c))

		got, err := s.LoadChallenge(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.Equity.Equal(dec("10025.5")))

		trades, err := s.ListTrades(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, trades, 1)
	})

	t.Run("commit rolls back on duplicate", func(t *testing.T) {
		s := open(t)
		cm := s.(Committer)

		c := newChallenge(t)
		require.NoError(t, s.SaveChallenge(ctx, c))
		tr := newTrade(c, 1, t0, "10")
		require.NoError(t, s.AppendTrade(ctx, tr))

		changed := c
		changed.Equity = dec("1")
		changed.CurrentBalance = changed.Equity
		assert.ErrorIs(t, cm.CommitTrade(ctx, tr, changed), ErrDuplicateKey)

		got, err := s.LoadChallenge(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.Equity.Equal(c.Equity))
	})

	t.Run("audit", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.RecordAudit(ctx, AuditEvent{
			ID:          "a1",
			UserID:      "user-1",
			ChallengeID: "c1",
			Action:      ActionTradeExecute,
			Details:     `{"symbol":"BTC-USD"}`,
			Time:        t0,
		}))
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemoryAudit(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.RecordAudit(ctx, AuditEvent{ID: "1", ChallengeID: "a", Action: ActionChallengeCreate}))
	require.NoError(t, m.RecordAudit(ctx, AuditEvent{ID: "2", ChallengeID: "b", Action: ActionChallengeCreate}))
	require.NoError(t, m.RecordAudit(ctx, AuditEvent{ID: "3", ChallengeID: "a", Action: ActionStatusChange}))

	assert.Len(t, m.Audit(""), 3)
	got := m.Audit("a")
	require.Len(t, got, 2)
	assert.Equal(t, ActionStatusChange, got[1].Action)
}

func TestMemoryClosed(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	require.NoError(t, m.Close())
	assert.Error(t, m.SaveChallenge(context.Background(), challenge.Challenge{ID: "x"}))
	_, err := m.LoadChallenge(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
