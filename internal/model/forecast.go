package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpcomingOccurrence is one not-yet-materialized due date of a recurring
// rule, surfaced so callers can offer "confirm or skip" style flows.
type UpcomingOccurrence struct {
	DueDate  time.Time       `json:"due_date"`
	RuleID   string          `json:"rule_id"`
	Label    string          `json:"label"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryBreakdown reports one category's position within the period.
// PercentUsed is deliberately not clamped to 100 so true overage is visible.
type CategoryBreakdown struct {
	Category    string          `json:"category"`
	Allocated   decimal.Decimal `json:"allocated"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed float64         `json:"percent_used"`
}

// ForecastResult is the on-demand "safe to spend" aggregate for one period.
// SafeToSpend may be negative; display layers clamp, the engine does not.
type ForecastResult struct {
	PeriodStart            time.Time            `json:"period_start"`
	PeriodEnd              time.Time            `json:"period_end"`
	MonthlyTotal           decimal.Decimal      `json:"monthly_total"`
	TotalSpent             decimal.Decimal      `json:"total_spent"`
	RemainingBudget        decimal.Decimal      `json:"remaining_budget"`
	UpcomingRecurringTotal decimal.Decimal      `json:"upcoming_recurring_total"`
	SafeToSpend            decimal.Decimal      `json:"safe_to_spend"`
	Upcoming               []UpcomingOccurrence `json:"upcoming"`
	Categories             []CategoryBreakdown  `json:"categories"`
	Partial                bool                 `json:"partial,omitempty"`
}
