package challenge

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is a challenge tier. Its thresholds are copied onto the challenge
// at creation and never read again.
type Plan struct {
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	ProfitTarget   decimal.Decimal `json:"profitTarget"`
	MaxDailyLoss   decimal.Decimal `json:"maxDailyLoss"`
	MaxTotalLoss   decimal.Decimal `json:"maxTotalLoss"`
}

// Plans is keyed by normalized plan name.
type Plans map[string]Plan

// DefaultPlans: 10% target, 5% daily loss, 10% total loss.
var DefaultPlans = Plans{
	"STARTER": newPlan("STARTER", 5000, 500, 250, 500),
	"PRO":     newPlan("PRO", 10000, 1000, 500, 1000),
	"ELITE":   newPlan("ELITE", 25000, 2500, 1250, 2500),
}

func newPlan(name string, initial, target, daily, total int64) Plan {
	return Plan{
		Name:           name,
		InitialBalance: decimal.NewFromInt(initial),
		ProfitTarget:   decimal.NewFromInt(target),
		MaxDailyLoss:   decimal.NewFromInt(daily),
		MaxTotalLoss:   decimal.NewFromInt(total),
	}
}

// NormalizePlan trims and upper-cases a plan name.
func NormalizePlan(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Lookup finds a plan by name, case-insensitively.
func (p Plans) Lookup(name string) (Plan, error) {
	n := NormalizePlan(name)
	plan, ok := p[n]
	if !ok {
		return Plan{}, Reject(CodeInvalidPlan, "unknown plan %q", name)
	}
	if plan.Name == "" {
		plan.Name = n
	}
	return plan, nil
}

// Names returns the plan names in sorted order.
func (p Plans) Names() []string {
	out := make([]string, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (p Plan) Validate() error {
	if !p.InitialBalance.IsPositive() {
		return Reject(CodeInvalidPlan, "plan %s: initial balance must be positive", p.Name)
	}
	if !p.ProfitTarget.IsPositive() {
		return Reject(CodeInvalidPlan, "plan %s: profit target must be positive", p.Name)
	}
	if !p.MaxDailyLoss.IsPositive() || !p.MaxTotalLoss.IsPositive() {
		return Reject(CodeInvalidPlan, "plan %s: loss limits must be positive", p.Name)
	}
	if p.MaxTotalLoss.GreaterThan(p.InitialBalance) {
		return Reject(CodeInvalidPlan, "plan %s: total loss limit exceeds initial balance", p.Name)
	}
	return nil
}
