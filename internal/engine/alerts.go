package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/model"
)

// WarningCheckpoint is the fixed fraction of a cap at which an approaching
// alert escalates from info to warning, independent of the configurable
// threshold.
const WarningCheckpoint = 0.9

// PeriodTotals carries spending already recorded in the period under
// evaluation.
type PeriodTotals struct {
	Overall    decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

// Candidate is a hypothetical expense evaluated on top of recorded spending,
// the "what if I spend this now" probe.
type Candidate struct {
	Amount   decimal.Decimal
	Category string
}

// EvaluateAlerts compares projected spending against a budget's caps and
// returns every alert that applies, overall first, then categories in
// allocation order, then the over-allocation notice. Alerts are ephemeral:
// nothing here persists or deduplicates them.
//
// A nil budget or a zero overall cap produces no overall alerts; categories
// are judged only against positive allocations.
func EvaluateAlerts(budget *model.BudgetDefinition, totals PeriodTotals, candidate *Candidate) []model.Alert {
	if budget == nil {
		return nil
	}

	var alerts []model.Alert

	projected := totals.Overall
	if candidate != nil {
		projected = projected.Add(candidate.Amount)
	}

	effective := budget.EffectiveTotal()
	if effective.IsPositive() {
		if alert, ok := overallAlert(projected, effective, budget.Threshold()); ok {
			alerts = append(alerts, alert)
		}
	}

	for _, allocation := range budget.Allocations {
		if !allocation.Amount.IsPositive() {
			continue
		}
		spent := totals.ByCategory[allocation.Category]
		if candidate != nil && candidate.Category == allocation.Category {
			spent = spent.Add(candidate.Amount)
		}
		if alert, ok := categoryAlert(spent, allocation); ok {
			alerts = append(alerts, alert)
		}
	}

	if budget.OverAllocated() {
		alerts = append(alerts, model.Alert{
			Kind:     model.AlertOverAllocated,
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("category allocations (%s) exceed the overall budget (%s)",
				budget.AllocatedTotal(), budget.MonthlyTotal),
		})
	}

	return alerts
}

// overallAlert classifies projected spending against the effective cap.
// Exceeding the cap is a warning, crossing the fixed 90% checkpoint is a
// warning, crossing the configured threshold is informational. Below the
// threshold there is nothing to say.
func overallAlert(spent, cap decimal.Decimal, threshold float64) (model.Alert, bool) {
	ratio, _ := spent.Div(cap).Float64()

	switch {
	case spent.GreaterThan(cap):
		return model.Alert{
			Kind:     model.AlertOverallExceeded,
			Severity: model.SeverityWarning,
			Message:  overMessage(spent, cap, ""),
		}, true
	case ratio >= WarningCheckpoint:
		return model.Alert{
			Kind:     model.AlertOverallApproaching,
			Severity: model.SeverityWarning,
			Message:  nearMessage(ratio, spent, cap, ""),
		}, true
	case ratio >= threshold:
		return model.Alert{
			Kind:     model.AlertOverallApproaching,
			Severity: model.SeverityInfo,
			Message:  nearMessage(ratio, spent, cap, ""),
		}, true
	}
	return model.Alert{}, false
}

// categoryAlert classifies category spending against its allocation. Unlike
// the overall cap, categories use only the fixed 90% checkpoint: the
// configurable threshold applies to the budget as a whole.
func categoryAlert(spent decimal.Decimal, allocation model.Allocation) (model.Alert, bool) {
	ratio, _ := spent.Div(allocation.Amount).Float64()

	switch {
	case spent.GreaterThan(allocation.Amount):
		return model.Alert{
			Kind:     model.AlertCategoryExceeded,
			Severity: model.SeverityWarning,
			Category: allocation.Category,
			Message:  overMessage(spent, allocation.Amount, allocation.Category),
		}, true
	case ratio >= WarningCheckpoint:
		return model.Alert{
			Kind:     model.AlertCategoryNear,
			Severity: model.SeverityInfo,
			Category: allocation.Category,
			Message:  nearMessage(ratio, spent, allocation.Amount, allocation.Category),
		}, true
	}
	return model.Alert{}, false
}

func overMessage(spent, cap decimal.Decimal, category string) string {
	if category != "" {
		return fmt.Sprintf("spending in %s (%s) has exceeded its allocation (%s)", category, spent, cap)
	}
	return fmt.Sprintf("spending (%s) has exceeded the budget (%s)", spent, cap)
}

func nearMessage(ratio float64, spent, cap decimal.Decimal, category string) string {
	pct := ratio * 100
	if category != "" {
		return fmt.Sprintf("spending in %s is at %.0f%% of its allocation (%s of %s)", category, pct, spent, cap)
	}
	return fmt.Sprintf("spending is at %.0f%% of the budget (%s of %s)", pct, spent, cap)
}
