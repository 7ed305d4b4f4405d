// Package execution turns a trade intent into a closed trade and the
// challenge state that results from it. The engine never writes to
// storage; persisting its output is the caller's job.
package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/rustyeddy/propfirm/daily"
	"github.com/rustyeddy/propfirm/id"
	"github.com/rustyeddy/propfirm/pricing"
	"github.com/rustyeddy/propfirm/risk"
	"github.com/shopspring/decimal"
)

// Intent is what a client may choose. There is deliberately no price.
type Intent struct {
	Symbol string
	Side   string
	Size   string
}

type Engine struct {
	prices   pricing.Resolver
	slippage Slippage
	now      func() time.Time
	newID    func(time.Time) string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithSlippage(s Slippage) Option {
	return func(e *Engine) { e.slippage = s }
}

func WithIDs(newID func(time.Time) string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New builds an engine that prices trades with prices. Defaults: wall
// clock, ±0.1% uniform slippage, ULID trade ids.
func New(prices pricing.Resolver, opts ...Option) *Engine {
	e := &Engine{
		prices:   prices,
		slippage: NewUniform(DefaultSlippageBand, 0),
		now:      time.Now,
		newID:    id.NewAt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sizes carry at most SizeScale decimal places and stay below
// 10^(maxSizeExponent+1). Anything finer or larger is refused before any
// arithmetic touches it.
const (
	SizeScale       = 8
	maxSizeExponent = 12
	maxSizeDigits   = 32
)

// PnLScale is the precision a trade result is rounded to before it lands
// in equity.
const PnLScale = 8

// ParseSize accepts a positive decimal number with bounded precision.
func ParseSize(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxSizeDigits+8 {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size is too long (%d chars)", len(s))
	}
	size, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size %q is not a number", s)
	}
	if !size.IsPositive() {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size %q must be positive", s)
	}

	// Exponent checks come first: Round and Equal on an extreme exponent
	// rescale to millions of digits.
	exp := size.Exponent()
	if exp > maxSizeExponent || exp < -maxSizeDigits {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size %q is out of range", s)
	}
	if exp < -SizeScale && !size.Equal(size.Round(SizeScale)) {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size %q has more than %d decimal places", s, SizeScale)
	}
	if size.GreaterThanOrEqual(maxSize) {
		return decimal.Zero, challenge.Reject(challenge.CodeInvalidVolume, "size %q is out of range", s)
	}
	return size.Round(SizeScale), nil
}

var maxSize = decimal.New(1, maxSizeExponent+1)

// Execute checks the intent against c and, if every precondition holds,
// returns the closed trade and the updated challenge. Preconditions run in
// a fixed order and the first failure is returned as a
// *challenge.RejectError; c is never modified.
func (e *Engine) Execute(ctx context.Context, c challenge.Challenge, in Intent) (challenge.Trade, challenge.Challenge, error) {
	if c.Status != challenge.StatusActive {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodeNotActive, "challenge %s is %s", c.ID, c.Status)
	}

	side, ok := challenge.ParseSide(in.Side)
	if !ok {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodeInvalidTradeType, "side %q must be BUY or SELL", in.Side)
	}

	size, err := ParseSize(in.Size)
	if err != nil {
		return challenge.Trade{}, c, err
	}

	symbol, err := pricing.NormalizeSymbol(in.Symbol)
	if err != nil {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodePriceUnavailable, "%v", err)
	}
	price, err := e.prices.Resolve(ctx, symbol)
	if err != nil {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodePriceUnavailable, "%v", err)
	}
	if !price.IsPositive() {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodePriceUnavailable, "%s priced at %s", symbol, price)
	}

	notional := price.Mul(size)
	if notional.GreaterThan(c.Equity) {
		return challenge.Trade{}, c, challenge.Reject(challenge.CodeInsufficientFunds,
			"notional %s exceeds equity %s", notional.StringFixed(2), c.Equity.StringFixed(2))
	}

	slip := e.slippage.Draw()
	if slip.LessThanOrEqual(one.Neg()) || slip.GreaterThanOrEqual(one) {
		return challenge.Trade{}, c, fmt.Errorf("execution: slippage %s out of range", slip)
	}

	now := e.now().UTC()

	// The baseline must roll before this trade's P&L lands.
	_, next := daily.RollIfNeeded(c, now)

	exit := ExitPrice(price, slip)
	pnl := PnL(side, price, exit, size).Round(PnLScale)

	next.Equity = next.Equity.Add(pnl)
	next.CurrentBalance = next.CurrentBalance.Add(pnl)
	next.MaxEquity = decimal.Max(next.MaxEquity, next.Equity)
	next.UpdatedAt = now
	next.Status = risk.Evaluate(next)

	trade := challenge.Trade{
		ID:          e.newID(now),
		ChallengeID: next.ID,
		Symbol:      symbol,
		Side:        side,
		EntryPrice:  price,
		ExitPrice:   exit,
		Size:        size,
		PnL:         pnl,
		Status:      challenge.TradeClosed,
		OpenedAt:    now,
		ClosedAt:    now,
	}
	return trade, next, nil
}
