package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType selects how a budget's interval is derived.
type PeriodType string

// Supported period types.
const (
	PeriodMonthly PeriodType = "monthly"
	PeriodWeekly  PeriodType = "weekly"
	PeriodCustom  PeriodType = "custom"
)

// Alert threshold bounds. Thresholds outside this range are clamped on load
// so a corrupt or hand-edited row can never silence the early warning.
const (
	MinAlertThreshold = 0.5
	MaxAlertThreshold = 0.8
)

// Allocation caps spending for a single category within a budget period.
type Allocation struct {
	Category string
	Amount   decimal.Decimal
}

// BudgetDefinition is one owner's spending plan for one period. Exactly one
// definition exists per (owner, period start). MonthlyTotal is the overall
// cap for the period regardless of period type; zero means "no cap".
type BudgetDefinition struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ID              string
	OwnerID         string
	PeriodType      PeriodType
	Allocations     []Allocation
	MonthlyTotal    decimal.Decimal
	RolloverAmount  decimal.Decimal
	AlertThreshold  float64
	RolloverEnabled bool
}

// EffectiveTotal is the overall cap including carried-over headroom.
func (b *BudgetDefinition) EffectiveTotal() decimal.Decimal {
	if b.RolloverEnabled {
		return b.MonthlyTotal.Add(b.RolloverAmount)
	}
	return b.MonthlyTotal
}

// Threshold returns the alert threshold clamped to the allowed range.
func (b *BudgetDefinition) Threshold() float64 {
	switch {
	case b.AlertThreshold < MinAlertThreshold:
		return MinAlertThreshold
	case b.AlertThreshold > MaxAlertThreshold:
		return MaxAlertThreshold
	}
	return b.AlertThreshold
}

// AllocatedTotal sums the per-category allocations.
func (b *BudgetDefinition) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range b.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// OverAllocated reports whether the category allocations exceed the overall
// cap. Over-allocation is permitted but surfaced as a warning.
func (b *BudgetDefinition) OverAllocated() bool {
	return b.MonthlyTotal.IsPositive() && b.AllocatedTotal().GreaterThan(b.MonthlyTotal)
}

// AllocationFor returns the allocation for a category, if one exists.
func (b *BudgetDefinition) AllocationFor(category string) (Allocation, bool) {
	for _, a := range b.Allocations {
		if a.Category == category {
			return a, true
		}
	}
	return Allocation{}, false
}
