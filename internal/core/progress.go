// Package core holds the Budgy domain model: financial entities, the
// signed-at-rest amount convention, and the derived progress arithmetic the
// dashboard renders.
package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// BudgetPercent returns how much of a budget's limit has been consumed, as a
// percentage clamped to [0, 100]. A limit of zero or less is treated as 1 so
// the division is always defined.
func BudgetPercent(spent, limit decimal.Decimal) float64 {
	if limit.LessThanOrEqual(decimal.Zero) {
		limit = decimal.NewFromInt(1)
	}
	pct, _ := spent.Abs().Div(limit).Mul(hundred).Float64()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// BudgetExceeded reports whether spending has passed the limit.
func BudgetExceeded(spent, limit decimal.Decimal) bool {
	return spent.Abs().GreaterThan(limit)
}

// PotPercent returns saved/goal as a percentage clamped to [0, 100], with the
// same zero-goal guard as BudgetPercent.
func PotPercent(saved, goal decimal.Decimal) float64 {
	return BudgetPercent(saved, goal)
}

// PotRemaining returns goal - saved, floored at zero.
func PotRemaining(saved, goal decimal.Decimal) decimal.Decimal {
	remaining := goal.Sub(saved)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// PotComplete reports whether the pot reached its goal.
func PotComplete(saved, goal decimal.Decimal) bool {
	return saved.GreaterThanOrEqual(goal)
}

// PercentChange computes the month-over-month change between two period
// totals. When the old value is zero the result is 0 for no movement and 100
// for any movement, mirroring how the dashboard cards report a first month.
func PercentChange(oldValue, newValue decimal.Decimal) float64 {
	if oldValue.IsZero() {
		if newValue.IsZero() {
			return 0
		}
		return 100
	}
	pct, _ := newValue.Sub(oldValue).Div(oldValue).Mul(hundred).Float64()
	return pct
}

// BalanceChangePercent reports a period's net change relative to the current
// balance, 0 when the balance itself is zero.
func BalanceChangePercent(balance, change decimal.Decimal) float64 {
	if balance.IsZero() {
		return 0
	}
	pct, _ := change.Div(balance).Mul(hundred).Float64()
	return pct
}
