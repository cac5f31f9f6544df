package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
	"github.com/centsible/centsible/internal/schedule"
	"github.com/centsible/centsible/internal/service"
)

// UpcomingWindow is how far ahead the forecast lists individual upcoming
// occurrences. The safe-to-spend math still counts everything due before the
// period ends; the window only bounds the itemized list.
const UpcomingWindow = 7 * 24 * time.Hour

// Forecaster computes the on-demand spending outlook for one owner and
// period.
type Forecaster struct {
	ledger  service.LedgerStore
	rules   service.RuleStore
	budgets service.BudgetStore
}

// NewForecaster creates a forecast engine over the given stores.
func NewForecaster(ledger service.LedgerStore, rules service.RuleStore, budgets service.BudgetStore) *Forecaster {
	return &Forecaster{ledger: ledger, rules: rules, budgets: budgets}
}

// Forecast aggregates recorded spending, the budget cap, and not-yet-due
// recurring occurrences into a safe-to-spend figure for the period.
//
// Degradation is deliberate and uneven: a failed budget lookup downgrades to
// an uncapped forecast, a failed rule listing yields a partial result with
// recorded totals only, but a failed spending query fails the whole call
// since every derived number depends on it.
func (f *Forecaster) Forecast(ctx context.Context, ownerID string, r period.Range, now time.Time) (*model.ForecastResult, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	result := &model.ForecastResult{
		PeriodStart: r.Start,
		PeriodEnd:   r.End,
	}

	budget, err := f.budgets.FindBudget(ctx, ownerID, r.Start)
	if err != nil {
		slog.Warn("budget lookup failed, forecasting without a cap",
			"owner_id", ownerID, "period_start", r.Start.Format("2006-01-02"), "error", err)
		budget = nil
		result.Partial = true
	}
	if budget != nil {
		result.MonthlyTotal = budget.MonthlyTotal
	}

	spent, err := f.ledger.SumAmount(ctx, ownerID, r, "")
	if err != nil {
		return nil, fmt.Errorf("failed to sum period spending: %w", err)
	}
	result.TotalSpent = spent
	result.RemainingBudget = result.MonthlyTotal.Sub(spent)

	upcoming, upcomingTotal, err := f.upcoming(ctx, ownerID, r, now)
	if err != nil {
		slog.Warn("rule listing failed, forecast omits upcoming occurrences",
			"owner_id", ownerID, "error", err)
		result.Partial = true
	} else {
		result.Upcoming = upcoming
		result.UpcomingRecurringTotal = upcomingTotal
	}
	result.SafeToSpend = result.RemainingBudget.Sub(result.UpcomingRecurringTotal)

	categories, err := f.categories(ctx, ownerID, r, budget)
	if err != nil {
		slog.Warn("category breakdown failed, forecast omits categories",
			"owner_id", ownerID, "error", err)
		result.Partial = true
	} else {
		result.Categories = categories
	}

	return result, nil
}

// upcoming walks each active rule forward from its anchor. The total covers
// occurrences due before the period ends; the itemized list covers the next
// seven days even when that window crosses into the following period, so a
// bill due on the 1st still shows up when asked on the 28th.
func (f *Forecaster) upcoming(ctx context.Context, ownerID string, r period.Range, now time.Time) ([]model.UpcomingOccurrence, decimal.Decimal, error) {
	rules, err := f.rules.ListActiveRules(ctx, ownerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	listHorizon := now.Add(UpcomingWindow)

	var list []model.UpcomingOccurrence
	total := decimal.Zero
	for i := range rules {
		rule := &rules[i]
		sched := schedule.FromRule(rule)
		amount := rule.Amount.Resolve()

		due := sched.NextAt(sched.Anchor(rule.NextDue), now)
		for due.Before(r.End) || !due.After(listHorizon) {
			if due.Before(r.End) {
				total = total.Add(amount)
			}
			if !due.After(listHorizon) {
				list = append(list, model.UpcomingOccurrence{
					RuleID:   rule.ID,
					Label:    rule.Label,
					Category: rule.Category,
					Amount:   amount,
					DueDate:  due,
				})
			}
			due = sched.Next(due)
		}
	}

	return list, total, nil
}

// categories merges per-category spending with the budget's allocations.
// Allocated categories come first in allocation order; spending in
// unallocated categories follows so nothing recorded disappears from view.
func (f *Forecaster) categories(ctx context.Context, ownerID string, r period.Range, budget *model.BudgetDefinition) ([]model.CategoryBreakdown, error) {
	spent, err := f.ledger.SumByCategory(ctx, ownerID, r)
	if err != nil {
		return nil, err
	}

	var breakdown []model.CategoryBreakdown
	seen := make(map[string]bool)

	if budget != nil {
		for _, a := range budget.Allocations {
			used := spent[a.Category]
			breakdown = append(breakdown, categoryBreakdown(a.Category, a.Amount, used))
			seen[a.Category] = true
		}
	}

	var rest []string
	for category := range spent {
		if !seen[category] {
			rest = append(rest, category)
		}
	}
	sort.Strings(rest)
	for _, category := range rest {
		breakdown = append(breakdown, categoryBreakdown(category, decimal.Zero, spent[category]))
	}

	return breakdown, nil
}

func categoryBreakdown(category string, allocated, spent decimal.Decimal) model.CategoryBreakdown {
	b := model.CategoryBreakdown{
		Category:  category,
		Allocated: allocated,
		Spent:     spent,
		Remaining: allocated.Sub(spent),
	}
	if allocated.IsPositive() {
		ratio, _ := spent.Div(allocated).Float64()
		b.PercentUsed = ratio * 100
	}
	return b
}
