package risk

import (
	"fmt"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the verdict for one challenge snapshot.
type Decision struct {
	Status    challenge.Status
	Violation *Violation

	TotalLoss   decimal.Decimal
	DailyLoss   decimal.Decimal
	TotalProfit decimal.Decimal
}

// Changed reports whether the verdict differs from the input status.
func (d Decision) Changed(from challenge.Status) bool {
	return d.Status != from
}

// Check measures the challenge against its thresholds. Total loss is
// checked before daily loss, and both before the profit target, so a
// snapshot that breaches a loss limit always fails.
func Check(c challenge.Challenge) Decision {
	d := Decision{
		Status:      c.Status,
		TotalLoss:   c.InitialBalance.Sub(c.Equity),
		DailyLoss:   c.DailyStartingBalance.Sub(c.Equity),
		TotalProfit: c.Equity.Sub(c.InitialBalance),
	}

	switch {
	case d.TotalLoss.GreaterThanOrEqual(c.MaxTotalLossLimit):
		d.Status = challenge.StatusFailed
		d.Violation = &Violation{
			Code: "TOTAL_LOSS_LIMIT",
			Msg:  fmt.Sprintf("total loss %s >= limit %s", d.TotalLoss, c.MaxTotalLossLimit),
		}
	case d.DailyLoss.GreaterThanOrEqual(c.MaxDailyLossLimit):
		d.Status = challenge.StatusFailed
		d.Violation = &Violation{
			Code: "DAILY_LOSS_LIMIT",
			Msg:  fmt.Sprintf("daily loss %s >= limit %s", d.DailyLoss, c.MaxDailyLossLimit),
		}
	case d.TotalProfit.GreaterThanOrEqual(c.ProfitTarget):
		d.Status = challenge.StatusPassed
		d.Violation = &Violation{
			Code: "PROFIT_TARGET_REACHED",
			Msg:  fmt.Sprintf("profit %s >= target %s", d.TotalProfit, c.ProfitTarget),
		}
	}
	return d
}

// Evaluate returns the status the challenge should have given its current
// equity. It has no side effects.
func Evaluate(c challenge.Challenge) challenge.Status {
	return Check(c).Status
}
