package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/model"
)

func testBudget(total int64, threshold float64) *model.BudgetDefinition {
	return &model.BudgetDefinition{
		OwnerID:        "owner-1",
		PeriodType:     model.PeriodMonthly,
		PeriodStart:    time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		MonthlyTotal:   decimal.NewFromInt(total),
		AlertThreshold: threshold,
	}
}

func TestEvaluateAlertsOverall(t *testing.T) {
	tests := []struct {
		name         string
		spent        int64
		wantKind     model.AlertKind
		wantSeverity model.AlertSeverity
		wantNone     bool
	}{
		{name: "just under threshold", spent: 699, wantNone: true},
		{name: "at threshold", spent: 700, wantKind: model.AlertOverallApproaching, wantSeverity: model.SeverityInfo},
		{name: "at warning checkpoint", spent: 900, wantKind: model.AlertOverallApproaching, wantSeverity: model.SeverityWarning},
		{name: "at the cap exactly", spent: 1000, wantKind: model.AlertOverallApproaching, wantSeverity: model.SeverityWarning},
		{name: "over the cap", spent: 1001, wantKind: model.AlertOverallExceeded, wantSeverity: model.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := testBudget(1000, 0.7)
			totals := PeriodTotals{Overall: decimal.NewFromInt(tt.spent)}

			alerts := EvaluateAlerts(budget, totals, nil)
			if tt.wantNone {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantKind, alerts[0].Kind)
			assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
		})
	}
}

func TestEvaluateAlertsNoBudget(t *testing.T) {
	totals := PeriodTotals{Overall: decimal.NewFromInt(99999)}
	assert.Empty(t, EvaluateAlerts(nil, totals, nil))
}

func TestEvaluateAlertsZeroCapIsSilent(t *testing.T) {
	budget := testBudget(0, 0.7)
	totals := PeriodTotals{Overall: decimal.NewFromInt(99999)}
	assert.Empty(t, EvaluateAlerts(budget, totals, nil))
}

func TestEvaluateAlertsRolloverExtendsCap(t *testing.T) {
	budget := testBudget(1000, 0.7)
	budget.RolloverEnabled = true
	budget.RolloverAmount = decimal.NewFromInt(500)

	// 1100 exceeds the base cap but is only 73% of the effective 1500.
	totals := PeriodTotals{Overall: decimal.NewFromInt(1100)}
	alerts := EvaluateAlerts(budget, totals, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertOverallApproaching, alerts[0].Kind)
	assert.Equal(t, model.SeverityInfo, alerts[0].Severity)
}

func TestEvaluateAlertsRolloverIgnoredWhenDisabled(t *testing.T) {
	budget := testBudget(1000, 0.7)
	budget.RolloverAmount = decimal.NewFromInt(500)

	totals := PeriodTotals{Overall: decimal.NewFromInt(1100)}
	alerts := EvaluateAlerts(budget, totals, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertOverallExceeded, alerts[0].Kind)
}

func TestEvaluateAlertsCandidateCountsTowardTotals(t *testing.T) {
	budget := testBudget(1000, 0.7)
	budget.Allocations = []model.Allocation{
		{Category: "dining", Amount: decimal.NewFromInt(200)},
	}

	totals := PeriodTotals{
		Overall:    decimal.NewFromInt(600),
		ByCategory: map[string]decimal.Decimal{"dining": decimal.NewFromInt(120)},
	}
	candidate := &Candidate{Amount: decimal.NewFromInt(150), Category: "dining"}

	alerts := EvaluateAlerts(budget, totals, candidate)
	require.Len(t, alerts, 2)

	// 750 of 1000 overall crosses the configured threshold.
	assert.Equal(t, model.AlertOverallApproaching, alerts[0].Kind)
	assert.Equal(t, model.SeverityInfo, alerts[0].Severity)

	// 270 of 200 in dining is an overage.
	assert.Equal(t, model.AlertCategoryExceeded, alerts[1].Kind)
	assert.Equal(t, "dining", alerts[1].Category)
	assert.Equal(t, model.SeverityWarning, alerts[1].Severity)
}

func TestEvaluateAlertsCategoryTiers(t *testing.T) {
	tests := []struct {
		name         string
		spent        int64
		wantKind     model.AlertKind
		wantSeverity model.AlertSeverity
		wantNone     bool
	}{
		{name: "below the checkpoint", spent: 269, wantNone: true},
		{name: "at the 90% checkpoint", spent: 270, wantKind: model.AlertCategoryNear, wantSeverity: model.SeverityInfo},
		{name: "at the allocation exactly", spent: 300, wantKind: model.AlertCategoryNear, wantSeverity: model.SeverityInfo},
		{name: "exceeded", spent: 301, wantKind: model.AlertCategoryExceeded, wantSeverity: model.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := testBudget(0, 0.7)
			budget.Allocations = []model.Allocation{
				{Category: "groceries", Amount: decimal.NewFromInt(300)},
			}
			totals := PeriodTotals{
				ByCategory: map[string]decimal.Decimal{"groceries": decimal.NewFromInt(tt.spent)},
			}

			alerts := EvaluateAlerts(budget, totals, nil)
			if tt.wantNone {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantKind, alerts[0].Kind)
			assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
			assert.Equal(t, "groceries", alerts[0].Category)
		})
	}
}

func TestEvaluateAlertsZeroAllocationIsSilent(t *testing.T) {
	budget := testBudget(0, 0.7)
	budget.Allocations = []model.Allocation{
		{Category: "misc", Amount: decimal.Zero},
	}
	totals := PeriodTotals{
		ByCategory: map[string]decimal.Decimal{"misc": decimal.NewFromInt(5000)},
	}
	assert.Empty(t, EvaluateAlerts(budget, totals, nil))
}

func TestEvaluateAlertsOverAllocationWarnsLast(t *testing.T) {
	budget := testBudget(1000, 0.7)
	budget.Allocations = []model.Allocation{
		{Category: "housing", Amount: decimal.NewFromInt(800)},
		{Category: "food", Amount: decimal.NewFromInt(400)},
	}

	totals := PeriodTotals{Overall: decimal.NewFromInt(950)}
	alerts := EvaluateAlerts(budget, totals, nil)
	require.Len(t, alerts, 2)
	assert.Equal(t, model.AlertOverallApproaching, alerts[0].Kind)

	last := alerts[len(alerts)-1]
	assert.Equal(t, model.AlertOverAllocated, last.Kind)
	assert.Equal(t, model.SeverityWarning, last.Severity)
}
