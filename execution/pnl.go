package execution

import (
	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ExitPrice applies a slippage fraction to the entry price.
func ExitPrice(entry, slippage decimal.Decimal) decimal.Decimal {
	return entry.Mul(one.Add(slippage))
}

// PnL is the realized result of opening at entry and closing at exit.
// Longs gain when the price rises, shorts when it falls.
func PnL(side challenge.Side, entry, exit, size decimal.Decimal) decimal.Decimal {
	if side == challenge.SideSell {
		return entry.Sub(exit).Mul(size)
	}
	return exit.Sub(entry).Mul(size)
}
