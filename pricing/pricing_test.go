package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"btc-usd", "BTC-USD", true},
		{" IAM ", "IAM", true},
		{"", "", false},
		{"THIS-IS-TOO-LONG", "", false},
		{"BTC USD", "", false},
		{"-BTC", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrUnavailable, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestStaticSetResolve(t *testing.T) {
	t.Parallel()

	s := NewStatic()
	require.NoError(t, s.SetPrice("btc-usd", decimal.RequireFromString("65000.5")))

	p, err := s.Resolve(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("65000.5")))

	_, err = s.Resolve(context.Background(), "ETH-USD")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Error(t, s.SetPrice("", decimal.NewFromInt(1)))
}

func TestStaticStaleQuote(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStatic()
	s.now = func() time.Time { return now }
	s.MaxAge = time.Minute

	require.NoError(t, s.Set(Quote{Symbol: "AAPL", Price: decimal.NewFromInt(190), Time: now.Add(-2 * time.Minute)}))
	_, err := s.Resolve(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, s.Set(Quote{Symbol: "AAPL", Price: decimal.NewFromInt(191), Time: now}))
	p, err := s.Resolve(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(191)))
}

func TestStaticHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	s := NewStatic()
	require.NoError(t, s.SetPrice("ATW", decimal.NewFromInt(500)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Resolve(ctx, "ATW")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuard(t *testing.T) {
	t.Parallel()

	var seen string
	next := ResolverFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		seen = symbol
		switch symbol {
		case "ZERO":
			return decimal.Zero, nil
		case "NEG":
			return decimal.NewFromInt(-3), nil
		case "ERR":
			return decimal.Zero, errors.New("upstream 502")
		case "SLOW":
			<-ctx.Done()
			return decimal.Zero, ctx.Err()
		}
		return decimal.NewFromInt(42), nil
	})
	g := Guard{Next: next, Timeout: 20 * time.Millisecond}

	p, err := g.Resolve(context.Background(), "tsla")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", seen)
	assert.True(t, p.Equal(decimal.NewFromInt(42)))

	for _, sym := range []string{"ZERO", "NEG", "ERR", "SLOW", "", "WAY-TOO-LONG-SYMBOL"} {
		_, err := g.Resolve(context.Background(), sym)
		assert.ErrorIs(t, err, ErrUnavailable, sym)
	}
}

func TestBinanceExchangeSymbol(t *testing.T) {
	t.Parallel()

	b := NewBinanceWithLister(nil, "USDT")
	assert.Equal(t, "BTCUSDT", b.ExchangeSymbol("BTC"))
	assert.Equal(t, "BTCUSDT", b.ExchangeSymbol("btc-usd"))
	assert.Equal(t, "ETHUSDT", b.ExchangeSymbol("ETHUSDT"))
	assert.Equal(t, "SOLUSDT", b.ExchangeSymbol("SOL/USDT"))

	assert.Equal(t, "BTCUSDT", NewBinanceWithLister(nil, "").ExchangeSymbol("BTC"))
}

func TestBinanceResolve(t *testing.T) {
	t.Parallel()

	b := NewBinanceWithLister(func(ctx context.Context, symbol string) (string, error) {
		switch symbol {
		case "BTCUSDT":
			return "64123.45000000", nil
		case "BADUSDT":
			return "n/a", nil
		}
		return "", errors.New("invalid symbol")
	}, "USDT")

	p, err := b.Resolve(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("64123.45")))

	_, err = b.Resolve(context.Background(), "BAD")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = b.Resolve(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnavailable)
}
