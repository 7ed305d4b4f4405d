// Package challenge holds the prop-firm account and trade records and the
// rejection codes shared by every component that touches them.
package challenge

import (
	"strings"
	"time"

	"github.com/rustyeddy/propfirm/id"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusActive         Status = "ACTIVE"
	StatusPassed         Status = "PASSED"
	StatusFailed         Status = "FAILED"
	StatusFunded         Status = "FUNDED"
)

// Terminal reports whether no further trade may touch the account.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusFunded:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusActive, StatusPassed, StatusFailed, StatusFunded:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", Reject(CodeInvalidChallenge, "unknown status %q", s)
	}
	return st, nil
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide is strict: only the exact upper-case names are accepted.
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// DateLayout is the format of Challenge.DailyDate.
const DateLayout = "2006-01-02"

// UTCDate returns the UTC calendar date of t in DateLayout.
func UTCDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Challenge is one simulated funded-trading account.
type Challenge struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Plan   string `json:"plan"`
	Status Status `json:"status"`

	InitialBalance decimal.Decimal `json:"initialBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Equity         decimal.Decimal `json:"equity"`
	MaxEquity      decimal.Decimal `json:"maxEquity"`

	DailyStartingBalance decimal.Decimal `json:"dailyStartingBalance"`
	DailyDate            string          `json:"dailyDate"`

	ProfitTarget      decimal.Decimal `json:"profitTarget"`
	MaxDailyLossLimit decimal.Decimal `json:"maxDailyLossLimit"`
	MaxTotalLossLimit decimal.Decimal `json:"maxTotalLossLimit"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New opens a challenge on plan for userID. status must be ACTIVE or
// PENDING_PAYMENT.
func New(userID string, plan Plan, status Status, now time.Time) (Challenge, error) {
	if err := plan.Validate(); err != nil {
		return Challenge{}, err
	}
	if status != StatusActive && status != StatusPendingPayment {
		return Challenge{}, Reject(CodeInvalidChallenge, "cannot open a challenge as %s", status)
	}

	now = now.UTC()
	c := Challenge{
		ID:                   id.NewAt(now),
		UserID:               strings.TrimSpace(userID),
		Plan:                 NormalizePlan(plan.Name),
		Status:               status,
		InitialBalance:       plan.InitialBalance,
		CurrentBalance:       plan.InitialBalance,
		Equity:               plan.InitialBalance,
		MaxEquity:            plan.InitialBalance,
		DailyStartingBalance: plan.InitialBalance,
		DailyDate:            UTCDate(now),
		ProfitTarget:         plan.ProfitTarget,
		MaxDailyLossLimit:    plan.MaxDailyLoss,
		MaxTotalLossLimit:    plan.MaxTotalLoss,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := c.Validate(); err != nil {
		return Challenge{}, err
	}
	return c, nil
}

// Validate checks the field-level invariants of a stored or hydrated
// challenge. It does not look at the trade ledger.
func (c Challenge) Validate() error {
	switch {
	case c.ID == "":
		return Reject(CodeInvalidChallenge, "missing id")
	case c.UserID == "":
		return Reject(CodeInvalidChallenge, "challenge %s: missing user id", c.ID)
	case !c.Status.Valid():
		return Reject(CodeInvalidChallenge, "challenge %s: unknown status %q", c.ID, c.Status)
	case !c.InitialBalance.IsPositive():
		return Reject(CodeInvalidChallenge, "challenge %s: initial balance must be positive", c.ID)
	case c.CurrentBalance.IsNegative() || c.Equity.IsNegative() || c.DailyStartingBalance.IsNegative():
		return Reject(CodeInvalidChallenge, "challenge %s: negative balance", c.ID)
	case c.MaxEquity.LessThan(c.Equity):
		return Reject(CodeInvalidChallenge, "challenge %s: max equity %s below equity %s", c.ID, c.MaxEquity, c.Equity)
	case !c.ProfitTarget.IsPositive() || !c.MaxDailyLossLimit.IsPositive() || !c.MaxTotalLossLimit.IsPositive():
		return Reject(CodeInvalidChallenge, "challenge %s: thresholds must be positive", c.ID)
	}
	if c.DailyDate != "" {
		if _, err := time.Parse(DateLayout, c.DailyDate); err != nil {
			return Reject(CodeInvalidChallenge, "challenge %s: bad daily date %q", c.ID, c.DailyDate)
		}
	}
	return nil
}

// Trade is one executed order. Trades are written once and never updated.
type Trade struct {
	ID          string          `json:"id"`
	ChallengeID string          `json:"challengeId"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	EntryPrice  decimal.Decimal `json:"entryPrice"`
	ExitPrice   decimal.Decimal `json:"exitPrice"`
	Size        decimal.Decimal `json:"size"`
	PnL         decimal.Decimal `json:"pnl"`
	Status      TradeStatus     `json:"status"`
	OpenedAt    time.Time       `json:"openedAt"`
	ClosedAt    time.Time       `json:"closedAt"`
}

func (t Trade) Validate() error {
	switch {
	case t.ID == "" || t.ChallengeID == "":
		return Reject(CodeInvalidChallenge, "trade: missing id or challenge id")
	case t.Symbol == "":
		return Reject(CodeInvalidChallenge, "trade %s: missing symbol", t.ID)
	case t.Side != SideBuy && t.Side != SideSell:
		return Reject(CodeInvalidTradeType, "trade %s: side %q", t.ID, t.Side)
	case !t.Size.IsPositive():
		return Reject(CodeInvalidVolume, "trade %s: size must be positive", t.ID)
	case !t.EntryPrice.IsPositive():
		return Reject(CodePriceUnavailable, "trade %s: entry price must be positive", t.ID)
	case t.Status != TradeOpen && t.Status != TradeClosed:
		return Reject(CodeInvalidChallenge, "trade %s: status %q", t.ID, t.Status)
	}
	return nil
}
