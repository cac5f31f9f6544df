package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

func TestForecastSafeToSpend(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	require.NoError(t, budgets.SaveBudget(ctx, monthlyBudget("owner-1", june.Start, 5000, false)))
	spend(t, ledger, "owner-1", date(2025, time.June, 5), 3000)

	rule := &model.RecurringRule{
		OwnerID:   "owner-1",
		Label:     "Rent",
		Category:  "housing",
		Frequency: model.FrequencyMonthly,
		StartDate: date(2025, time.June, 20),
		Amount:    model.FixedAmount(decimal.NewFromInt(1000)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(ctx, rule))

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	assert.True(t, result.MonthlyTotal.Equal(decimal.NewFromInt(5000)))
	assert.True(t, result.TotalSpent.Equal(decimal.NewFromInt(3000)))
	assert.True(t, result.RemainingBudget.Equal(decimal.NewFromInt(2000)))
	assert.True(t, result.UpcomingRecurringTotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, result.SafeToSpend.Equal(decimal.NewFromInt(1000)))
	assert.False(t, result.Partial)

	// Due in ten days: counted in the total, not in the seven-day list.
	assert.Empty(t, result.Upcoming)
}

func TestForecastListsOccurrencesWithinSevenDays(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	rule := &model.RecurringRule{
		OwnerID:   "owner-1",
		Label:     "Gym",
		Category:  "health",
		Frequency: model.FrequencyMonthly,
		StartDate: date(2025, time.June, 12),
		Amount:    model.FixedAmount(decimal.NewFromInt(40)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(ctx, rule))

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	require.Len(t, result.Upcoming, 1)
	assert.Equal(t, "Gym", result.Upcoming[0].Label)
	assert.True(t, result.Upcoming[0].DueDate.Equal(date(2025, time.June, 12)))
	assert.True(t, result.UpcomingRecurringTotal.Equal(decimal.NewFromInt(40)))
}

func TestForecastListsNextPeriodOccurrencesWithinSevenDays(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	rule := &model.RecurringRule{
		OwnerID:   "owner-1",
		Label:     "Rent",
		Category:  "housing",
		Frequency: model.FrequencyMonthly,
		StartDate: date(2025, time.July, 1),
		Amount:    model.FixedAmount(decimal.NewFromInt(1500)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(ctx, rule))

	// Asked on the 28th, rent due on the 1st is three days out: it belongs
	// in the seven-day list even though it falls in the next period, while
	// this period's total owes nothing for it.
	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 28))
	require.NoError(t, err)

	require.Len(t, result.Upcoming, 1)
	assert.Equal(t, "Rent", result.Upcoming[0].Label)
	assert.True(t, result.Upcoming[0].DueDate.Equal(date(2025, time.July, 1)))
	assert.True(t, result.UpcomingRecurringTotal.IsZero(),
		"got %s", result.UpcomingRecurringTotal)
	assert.True(t, result.SafeToSpend.Equal(result.RemainingBudget))
}

func TestForecastCountsEveryOccurrenceBeforePeriodEnd(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	rule := &model.RecurringRule{
		OwnerID:   "owner-1",
		Label:     "Cleaner",
		Category:  "home",
		Frequency: model.FrequencyWeekly,
		StartDate: date(2025, time.June, 2),
		Amount:    model.FixedAmount(decimal.NewFromInt(80)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(ctx, rule))

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	// Remaining weekly occurrences: June 16, 23, 30.
	assert.True(t, result.UpcomingRecurringTotal.Equal(decimal.NewFromInt(240)),
		"got %s", result.UpcomingRecurringTotal)
	require.Len(t, result.Upcoming, 1)
	assert.True(t, result.Upcoming[0].DueDate.Equal(date(2025, time.June, 16)))
}

func TestForecastNegativeSafeToSpend(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	require.NoError(t, budgets.SaveBudget(ctx, monthlyBudget("owner-1", june.Start, 1000, false)))
	spend(t, ledger, "owner-1", date(2025, time.June, 3), 1500)

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	assert.True(t, result.RemainingBudget.Equal(decimal.NewFromInt(-500)))
	assert.True(t, result.SafeToSpend.Equal(decimal.NewFromInt(-500)))
}

func TestForecastWithoutBudgetIsUncapped(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	spend(t, ledger, "owner-1", date(2025, time.June, 3), 200)

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	assert.True(t, result.MonthlyTotal.IsZero())
	assert.True(t, result.RemainingBudget.Equal(decimal.NewFromInt(-200)))
	assert.False(t, result.Partial)
}

func TestForecastDegradesWhenRuleListingFails(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	rules.ListErr = errors.New("rule store down")
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	require.NoError(t, budgets.SaveBudget(ctx, monthlyBudget("owner-1", june.Start, 5000, false)))
	spend(t, ledger, "owner-1", date(2025, time.June, 5), 3000)

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.True(t, result.UpcomingRecurringTotal.IsZero())
	assert.True(t, result.RemainingBudget.Equal(decimal.NewFromInt(2000)))
}

func TestForecastFailsWhenSpendingUnavailable(t *testing.T) {
	ledger := NewMockLedger()
	ledger.SumErr = errors.New("ledger down")
	forecaster := NewForecaster(ledger, NewMockRules(), NewMockBudgets())

	june := period.Month(date(2025, time.June, 1))
	_, err := forecaster.Forecast(context.Background(), "owner-1", june, date(2025, time.June, 10))
	assert.Error(t, err)
}

func TestForecastCategoryBreakdown(t *testing.T) {
	ledger := NewMockLedger()
	rules := NewMockRules()
	budgets := NewMockBudgets()
	ctx := context.Background()

	june := period.Month(date(2025, time.June, 1))
	budget := monthlyBudget("owner-1", june.Start, 2000, false)
	budget.Allocations = []model.Allocation{
		{Category: "groceries", Amount: decimal.NewFromInt(400)},
		{Category: "dining", Amount: decimal.NewFromInt(200)},
	}
	require.NoError(t, budgets.SaveBudget(ctx, budget))

	require.NoError(t, ledger.CreateEntry(ctx, &model.LedgerEntry{
		OwnerID: "owner-1", Label: "market", Category: "groceries",
		Amount: decimal.NewFromInt(100), EffectiveDate: date(2025, time.June, 4),
	}))
	require.NoError(t, ledger.CreateEntry(ctx, &model.LedgerEntry{
		OwnerID: "owner-1", Label: "cinema", Category: "entertainment",
		Amount: decimal.NewFromInt(30), EffectiveDate: date(2025, time.June, 6),
	}))

	forecaster := NewForecaster(ledger, rules, budgets)
	result, err := forecaster.Forecast(ctx, "owner-1", june, date(2025, time.June, 10))
	require.NoError(t, err)

	require.Len(t, result.Categories, 3)

	// Allocated categories first, in allocation order.
	assert.Equal(t, "groceries", result.Categories[0].Category)
	assert.True(t, result.Categories[0].Remaining.Equal(decimal.NewFromInt(300)))
	assert.InDelta(t, 25.0, result.Categories[0].PercentUsed, 0.001)

	assert.Equal(t, "dining", result.Categories[1].Category)
	assert.True(t, result.Categories[1].Spent.IsZero())

	// Unallocated spending still shows up.
	assert.Equal(t, "entertainment", result.Categories[2].Category)
	assert.True(t, result.Categories[2].Allocated.IsZero())
	assert.Zero(t, result.Categories[2].PercentUsed)
}

func TestForecastRequiresOwner(t *testing.T) {
	forecaster := NewForecaster(NewMockLedger(), NewMockRules(), NewMockBudgets())
	_, err := forecaster.Forecast(context.Background(), "", period.Month(time.Now()), time.Now())
	assert.Error(t, err)
}
