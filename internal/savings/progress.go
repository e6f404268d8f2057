package savings

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Progress summarises how far a plan is from its target.
type Progress struct {
	Percent   decimal.Decimal `json:"percent"`
	Remaining decimal.Decimal `json:"remaining"`
	Reached   bool            `json:"reached"`
}

// ComputeProgress returns the percentage saved, rounded to two places and
// clamped to [0, 100], and the amount still needed. A plan without a positive
// target has no progress.
func ComputeProgress(target, saved decimal.Decimal) Progress {
	if !target.IsPositive() {
		return Progress{Percent: decimal.Zero, Remaining: decimal.Zero}
	}
	if saved.IsNegative() {
		saved = decimal.Zero
	}

	percent := saved.Div(target).Mul(hundred).Round(2)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	remaining := target.Sub(saved)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Progress{
		Percent:   percent,
		Remaining: remaining,
		Reached:   saved.GreaterThanOrEqual(target),
	}
}
