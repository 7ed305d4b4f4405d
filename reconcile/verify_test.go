package reconcile

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func trade(id, chID, pnl string, st challenge.TradeStatus) challenge.Trade {
	return challenge.Trade{
		ID:          id,
		ChallengeID: chID,
		Symbol:      "BTC-USD",
		Side:        challenge.SideBuy,
		EntryPrice:  dec("100"),
		ExitPrice:   dec("100"),
		Size:        dec("1"),
		PnL:         dec(pnl),
		Status:      st,
		OpenedAt:    t0,
		ClosedAt:    t0,
	}
}

func account(t *testing.T, equity string) challenge.Challenge {
	t.Helper()
	c, err := challenge.New("u1", challenge.DefaultPlans["STARTER"], challenge.StatusActive, t0)
	require.NoError(t, err)
	c.Equity = dec(equity)
	c.CurrentBalance = c.Equity
	c.MaxEquity = decimal.Max(c.MaxEquity, c.Equity)
	return c
}

func TestReconstruct(t *testing.T) {
	t.Parallel()

	trades := []challenge.Trade{
		trade("a", "c", "12.5", challenge.TradeClosed),
		trade("b", "c", "-2.25", challenge.TradeClosed),
		trade("o", "c", "999", challenge.TradeOpen),
	}
	assert.True(t, Reconstruct(dec("5000"), trades).Equal(dec("5010.25")))
	assert.True(t, Reconstruct(dec("5000"), nil).Equal(dec("5000")))
}

func TestReconstructOrderIndependent(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	trades := make([]challenge.Trade, 50)
	for i := range trades {
		pnl := decimal.NewFromFloat(r.Float64()*20 - 10).Round(8)
		trades[i] = trade(string(rune('a'+i%26))+pnl.String(), "c", pnl.String(), challenge.TradeClosed)
	}

	want := Reconstruct(dec("5000"), trades)
	for i := 0; i < 10; i++ {
		r.Shuffle(len(trades), func(a, b int) { trades[a], trades[b] = trades[b], trades[a] })
		assert.True(t, Reconstruct(dec("5000"), trades).Equal(want))
	}
	// Same input, same output.
	assert.True(t, Reconstruct(dec("5000"), trades).Equal(want))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	c := account(t, "5010.25")
	trades := []challenge.Trade{
		trade("a", c.ID, "12.5", challenge.TradeClosed),
		trade("b", c.ID, "-2.25", challenge.TradeClosed),
	}

	r, err := Verify(c, trades)
	require.NoError(t, err)
	assert.True(t, r.Match)
	assert.Equal(t, 2, r.ClosedTrades)
	assert.True(t, r.Diff.IsZero())
}

func TestVerifyWithinEpsilon(t *testing.T) {
	t.Parallel()

	c := account(t, "5010.259")
	_, err := Verify(c, []challenge.Trade{trade("a", c.ID, "10.25", challenge.TradeClosed)})
	assert.NoError(t, err)
}

func TestVerifyDrift(t *testing.T) {
	t.Parallel()

	c := account(t, "5020")
	r, err := Verify(c, []challenge.Trade{trade("a", c.ID, "10", challenge.TradeClosed)})
	require.Error(t, err)

	assert.False(t, r.Match)
	assert.True(t, r.Diff.Equal(dec("10")))
	assert.ErrorIs(t, err, challenge.ErrIntegrity)

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "equity", v.Report.Divergences[0].Field)
	assert.Contains(t, err.Error(), "DATA_INTEGRITY_VIOLATION")

	code, ok := challenge.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, challenge.CodeIntegrity, code)
}

func TestVerifyForeignTrade(t *testing.T) {
	t.Parallel()

	c := account(t, "5000")
	r, err := Verify(c, []challenge.Trade{trade("x", "someone-else", "0", challenge.TradeClosed)})
	assert.ErrorIs(t, err, challenge.ErrIntegrity)
	require.Len(t, r.Divergences, 1)
	assert.Equal(t, "someone-else", r.Divergences[0].Actual)
}
