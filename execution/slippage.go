package execution

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSlippageBand is the half-width of the uniform slippage draw: ±0.1%.
const DefaultSlippageBand = 0.001

// Slippage yields the fractional difference between entry and exit price.
// Draws must lie strictly inside (-1, 1).
type Slippage interface {
	Draw() decimal.Decimal
}

type SlippageFunc func() decimal.Decimal

func (f SlippageFunc) Draw() decimal.Decimal { return f() }

// FixedSlippage always returns pct.
func FixedSlippage(pct decimal.Decimal) Slippage {
	return SlippageFunc(func() decimal.Decimal { return pct })
}

// Uniform draws from [-band, +band]. Safe for concurrent use.
type Uniform struct {
	band float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniform seeds from the clock when seed is zero.
func NewUniform(band float64, seed uint64) *Uniform {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Uniform{
		band: band,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (u *Uniform) Band() float64 { return u.band }

func (u *Uniform) Draw() decimal.Decimal {
	u.mu.Lock()
	f := u.rng.Float64()
	u.mu.Unlock()

	return decimal.NewFromFloat((2*f - 1) * u.band).Round(8)
}
