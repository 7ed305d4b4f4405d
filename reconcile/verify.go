// Package reconcile rebuilds a challenge's equity from its trade ledger and
// compares it with the stored value. It only detects drift; nothing here
// repairs a record.
package reconcile

import (
	"fmt"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
)

// Epsilon is the largest tolerated difference between stored and
// reconstructed equity.
var Epsilon = decimal.RequireFromString("0.01")

// Reconstruct returns initial plus the P&L of every CLOSED trade. Order
// does not matter.
func Reconstruct(initial decimal.Decimal, trades []challenge.Trade) decimal.Decimal {
	eq := initial
	for _, t := range trades {
		if t.Status != challenge.TradeClosed {
			continue
		}
		eq = eq.Add(t.PnL)
	}
	return eq
}

// Divergence is one field that did not match.
type Divergence struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type Report struct {
	ChallengeID   string
	Trades        int
	ClosedTrades  int
	Stored        decimal.Decimal
	Reconstructed decimal.Decimal
	Diff          decimal.Decimal
	Match         bool
	Divergences   []Divergence
}

// Violation is returned by Verify when the ledger and the record disagree.
type Violation struct {
	Report Report
}

func (v *Violation) Error() string {
	if len(v.Report.Divergences) == 0 {
		return fmt.Sprintf("%s: challenge %s", challenge.CodeIntegrity, v.Report.ChallengeID)
	}
	d := v.Report.Divergences[0]
	return fmt.Sprintf("%s: challenge %s: %s expected %s, got %s",
		challenge.CodeIntegrity, v.Report.ChallengeID, d.Field, d.Expected, d.Actual)
}

// Unwrap lets callers match with errors.Is(err, challenge.ErrIntegrity).
func (v *Violation) Unwrap() error {
	return challenge.Reject(challenge.CodeIntegrity, "%s", v.Report.ChallengeID)
}

// Verify checks c.Equity against the trades. Trades that belong to another
// challenge are divergences too. The report is always filled in; the error
// is a *Violation exactly when Match is false.
func Verify(c challenge.Challenge, trades []challenge.Trade) (Report, error) {
	r := Report{
		ChallengeID: c.ID,
		Trades:      len(trades),
		Stored:      c.Equity,
	}

	for _, t := range trades {
		if t.ChallengeID != c.ID {
			r.Divergences = append(r.Divergences, Divergence{
				Field:    "trade " + t.ID + " challengeId",
				Expected: c.ID,
				Actual:   t.ChallengeID,
			})
			continue
		}
		if t.Status == challenge.TradeClosed {
			r.ClosedTrades++
		}
	}

	r.Reconstructed = Reconstruct(c.InitialBalance, trades)
	r.Diff = c.Equity.Sub(r.Reconstructed)
	if r.Diff.Abs().GreaterThan(Epsilon) {
		r.Divergences = append(r.Divergences, Divergence{
			Field:    "equity",
			Expected: r.Reconstructed.StringFixed(2),
			Actual:   c.Equity.StringFixed(2),
		})
	}

	r.Match = len(r.Divergences) == 0
	if !r.Match {
		return r, &Violation{Report: r}
	}
	return r, nil
}
