package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Time   time.Time
}

// Static is an in-process quote table. It serves tests, demos and
// deployments that push prices in from elsewhere.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]Quote

	// MaxAge, when positive, makes quotes older than this unavailable.
	MaxAge time.Duration
	now    func() time.Time
}

func NewStatic() *Static {
	return &Static{quotes: make(map[string]Quote), now: time.Now}
}

// Set stores a quote; the symbol is normalized first.
func (s *Static) Set(q Quote) error {
	sym, err := NormalizeSymbol(q.Symbol)
	if err != nil {
		return err
	}
	q.Symbol = sym
	if q.Time.IsZero() {
		q.Time = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[sym] = q
	return nil
}

// SetPrice is shorthand for Set with the current time.
func (s *Static) SetPrice(symbol string, price decimal.Decimal) error {
	return s.Set(Quote{Symbol: symbol, Price: price})
}

func (s *Static) Get(symbol string) (Quote, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[sym]
	if !ok {
		return Quote{}, fmt.Errorf("%w: no quote for %s", ErrUnavailable, sym)
	}
	return q, nil
}

func (s *Static) Resolve(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	q, err := s.Get(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if s.MaxAge > 0 && s.now().Sub(q.Time) > s.MaxAge {
		return decimal.Zero, fmt.Errorf("%w: quote for %s is stale (%s)", ErrUnavailable, q.Symbol, q.Time.Format(time.RFC3339))
	}
	return q.Price, nil
}
