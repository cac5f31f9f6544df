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
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestRule(t *testing.T, rules *MockRules, owner string, freq model.Frequency, start time.Time) *model.RecurringRule {
	t.Helper()
	rule := &model.RecurringRule{
		OwnerID:   owner,
		Label:     "Rent",
		Category:  "housing",
		Frequency: freq,
		StartDate: start,
		Amount:    model.FixedAmount(decimal.NewFromInt(1500)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(context.Background(), rule))
	return rule
}

func TestSyncRuleCatchUp(t *testing.T) {
	tests := []struct {
		name        string
		frequency   model.Frequency
		start       time.Time
		now         time.Time
		wantCreated int
		wantDates   []time.Time
	}{
		{
			name:        "monthly rule five months behind",
			frequency:   model.FrequencyMonthly,
			start:       date(2025, time.January, 15),
			now:         date(2025, time.May, 20),
			wantCreated: 5,
			wantDates: []time.Time{
				date(2025, time.January, 15),
				date(2025, time.February, 15),
				date(2025, time.March, 15),
				date(2025, time.April, 15),
				date(2025, time.May, 15),
			},
		},
		{
			name:        "weekly rule five weeks behind includes start",
			frequency:   model.FrequencyWeekly,
			start:       date(2025, time.March, 3),
			now:         date(2025, time.April, 7),
			wantCreated: 6,
		},
		{
			name:        "start date in the future creates nothing",
			frequency:   model.FrequencyMonthly,
			start:       date(2025, time.July, 1),
			now:         date(2025, time.June, 15),
			wantCreated: 0,
		},
		{
			name:        "end of month start clamps through february",
			frequency:   model.FrequencyMonthly,
			start:       date(2025, time.January, 31),
			now:         date(2025, time.March, 1),
			wantCreated: 2,
			wantDates: []time.Time{
				date(2025, time.January, 31),
				date(2025, time.February, 28),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := NewMockRules()
			ledger := NewMockLedger()
			rule := newTestRule(t, rules, "owner-1", tt.frequency, tt.start)

			syncer := NewSyncer(rules, ledger)
			created, err := syncer.SyncRule(context.Background(), rule, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)

			entries := ledger.Entries()
			require.Len(t, entries, tt.wantCreated)
			if tt.wantDates != nil {
				for i, want := range tt.wantDates {
					assert.True(t, entries[i].EffectiveDate.Equal(want),
						"entry %d: got %s want %s", i, entries[i].EffectiveDate, want)
				}
			}
			for _, e := range entries {
				assert.True(t, e.AutoGenerated)
				assert.Equal(t, rule.ID, e.RuleID)
			}

			next := rules.NextDue(rule.ID)
			if tt.wantCreated == 0 {
				// Nothing was due, so the pointer was never touched.
				assert.Nil(t, next)
				return
			}
			// The pointer always ends up strictly in the future.
			require.NotNil(t, next)
			assert.True(t, next.After(tt.now))
		})
	}
}

func TestSyncAllIdempotent(t *testing.T) {
	rules := NewMockRules()
	ledger := NewMockLedger()
	newTestRule(t, rules, "owner-1", model.FrequencyMonthly, date(2025, time.January, 1))

	syncer := NewSyncer(rules, ledger)
	now := date(2025, time.March, 15)

	first, err := syncer.SyncAll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, first.EntriesCreated)

	second, err := syncer.SyncAll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.EntriesCreated)
	assert.Equal(t, 1, second.RulesProcessed)
	assert.Len(t, ledger.Entries(), 3)
}

func TestSyncRuleResumesAfterPartialRun(t *testing.T) {
	rules := NewMockRules()
	ledger := NewMockLedger()
	rule := newTestRule(t, rules, "owner-1", model.FrequencyMonthly, date(2025, time.January, 1))

	// Simulate a crash after the first entry was written but before the
	// pointer advanced: the entry exists, next_due still points at it.
	require.NoError(t, ledger.CreateEntry(context.Background(), &model.LedgerEntry{
		OwnerID:       "owner-1",
		Label:         rule.Label,
		Amount:        decimal.NewFromInt(1500),
		Category:      rule.Category,
		EffectiveDate: date(2025, time.January, 1),
		RuleID:        rule.ID,
		AutoGenerated: true,
	}))

	syncer := NewSyncer(rules, ledger)
	created, err := syncer.SyncRule(context.Background(), rule, date(2025, time.February, 10))
	require.NoError(t, err)

	// January was already materialized, only February counts as created.
	assert.Equal(t, 1, created)
	assert.Len(t, ledger.Entries(), 2)
}

func TestSyncAllContinuesPastFailingRules(t *testing.T) {
	rules := NewMockRules()
	ledger := NewMockLedger()
	ledger.CreateErr = errors.New("disk full")
	newTestRule(t, rules, "owner-1", model.FrequencyMonthly, date(2025, time.January, 1))
	newTestRule(t, rules, "owner-2", model.FrequencyMonthly, date(2025, time.January, 1))

	syncer := NewSyncer(rules, ledger)
	result, err := syncer.SyncAll(context.Background(), date(2025, time.February, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, result.RulesFailed)
	assert.Equal(t, 0, result.RulesProcessed)
	assert.True(t, result.Failed())
}

func TestSyncOwnerScopesToOwner(t *testing.T) {
	rules := NewMockRules()
	ledger := NewMockLedger()
	newTestRule(t, rules, "owner-1", model.FrequencyMonthly, date(2025, time.March, 1))
	newTestRule(t, rules, "owner-2", model.FrequencyMonthly, date(2025, time.March, 1))

	syncer := NewSyncer(rules, ledger)
	result, err := syncer.SyncOwner(context.Background(), "owner-1", date(2025, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, 1, result.RulesProcessed)
	require.Len(t, ledger.Entries(), 1)
	assert.Equal(t, "owner-1", ledger.Entries()[0].OwnerID)
}

func TestSyncOwnerRequiresOwner(t *testing.T) {
	syncer := NewSyncer(NewMockRules(), NewMockLedger())
	_, err := syncer.SyncOwner(context.Background(), "", time.Now())
	assert.Error(t, err)
}

func TestSyncRuleVariableAmountUsesLastObserved(t *testing.T) {
	rules := NewMockRules()
	ledger := NewMockLedger()
	rule := &model.RecurringRule{
		OwnerID:   "owner-1",
		Label:     "Electric",
		Category:  "utilities",
		Frequency: model.FrequencyMonthly,
		StartDate: date(2025, time.April, 5),
		Amount:    model.VariableAmount(decimal.NewFromFloat(82.17)),
		Active:    true,
	}
	require.NoError(t, rules.CreateRule(context.Background(), rule))

	syncer := NewSyncer(rules, ledger)
	created, err := syncer.SyncRule(context.Background(), rule, date(2025, time.April, 6))
	require.NoError(t, err)
	require.Equal(t, 1, created)
	assert.True(t, ledger.Entries()[0].Amount.Equal(decimal.NewFromFloat(82.17)))
}
