// Package pricing supplies the server-trusted price a trade executes at.
// Clients choose direction and size; only a Resolver chooses the price.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable wraps every resolution failure: unknown symbol, stale or
// non-positive quote, upstream error or timeout.
var ErrUnavailable = errors.New("market price unavailable")

type Resolver interface {
	Resolve(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

func (f ResolverFunc) Resolve(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f(ctx, symbol)
}

const maxSymbolLen = 12

var symbolRE = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]*$`)

// NormalizeSymbol upper-cases and validates a symbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || len(s) > maxSymbolLen || !symbolRE.MatchString(s) {
		return "", fmt.Errorf("%w: invalid symbol %q", ErrUnavailable, symbol)
	}
	return s, nil
}

// Guard validates the symbol, bounds the upstream call with a timeout and
// refuses non-positive prices, whatever the wrapped resolver returns.
type Guard struct {
	Next    Resolver
	Timeout time.Duration
}

func (g Guard) Resolve(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s, err := NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	p, err := g.Next.Resolve(ctx, s)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, s, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", ErrUnavailable, s, p)
	}
	return p, nil
}
