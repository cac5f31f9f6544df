package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

// In-memory store implementations for tests. They live outside the _test
// files so the server package can reuse them.

// MockLedger is an in-memory LedgerStore.
type MockLedger struct {
	mu      sync.Mutex
	entries []model.LedgerEntry

	CreateErr error
	SumErr    error
}

// NewMockLedger creates an empty in-memory ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

// CreateEntry appends an entry, enforcing per-occurrence uniqueness the way
// the real store's index does.
func (m *MockLedger) CreateEntry(_ context.Context, entry *model.LedgerEntry) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.RuleID != "" {
		for _, existing := range m.entries {
			if existing.RuleID == entry.RuleID && existing.EffectiveDate.Equal(entry.EffectiveDate) {
				return fmt.Errorf("%w: rule %s already has an entry for %s",
					common.ErrDuplicateEntry, entry.RuleID, entry.EffectiveDate.Format("2006-01-02"))
			}
		}
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockLedger) SumAmount(_ context.Context, ownerID string, r period.Range, category string) (decimal.Decimal, error) {
	if m.SumErr != nil {
		return decimal.Zero, m.SumErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, e := range m.entries {
		if e.OwnerID != ownerID || !r.Contains(e.EffectiveDate) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (m *MockLedger) SumByCategory(_ context.Context, ownerID string, r period.Range) (map[string]decimal.Decimal, error) {
	if m.SumErr != nil {
		return nil, m.SumErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	totals := make(map[string]decimal.Decimal)
	for _, e := range m.entries {
		if e.OwnerID != ownerID || !r.Contains(e.EffectiveDate) {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals, nil
}

func (m *MockLedger) ListEntries(_ context.Context, ownerID string, r period.Range) ([]model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.LedgerEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID && r.Contains(e.EffectiveDate) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EffectiveDate.Before(entries[j].EffectiveDate)
	})
	return entries, nil
}

// Entries returns a copy of everything stored.
func (m *MockLedger) Entries() []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockRules is an in-memory RuleStore.
type MockRules struct {
	mu    sync.Mutex
	rules map[string]*model.RecurringRule
	order []string

	ListErr    error
	UpdateErr  error
	UpdateErrN int // fail the first N UpdateNextDue calls, then succeed
	updates    int
}

// NewMockRules creates an empty in-memory rule store.
func NewMockRules() *MockRules {
	return &MockRules{rules: make(map[string]*model.RecurringRule)}
}

func (m *MockRules) CreateRule(_ context.Context, rule *model.RecurringRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", len(m.order)+1)
	}
	clone := *rule
	m.rules[rule.ID] = &clone
	m.order = append(m.order, rule.ID)
	return nil
}

func (m *MockRules) GetRule(_ context.Context, id string) (*model.RecurringRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	clone := *rule
	return &clone, nil
}

func (m *MockRules) ListActiveRules(_ context.Context, ownerID string) ([]model.RecurringRule, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var rules []model.RecurringRule
	for _, id := range m.order {
		rule := m.rules[id]
		if !rule.Active {
			continue
		}
		if ownerID != "" && rule.OwnerID != ownerID {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// UpdateNextDue mirrors the real store's monotonic guard: an update that
// would move the pointer backward is silently ignored.
func (m *MockRules) UpdateNextDue(_ context.Context, ruleID string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates++
	if m.UpdateErr != nil && (m.UpdateErrN == 0 || m.updates <= m.UpdateErrN) {
		return m.UpdateErr
	}

	rule, ok := m.rules[ruleID]
	if !ok {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, ruleID)
	}
	if rule.NextDue == nil || !rule.NextDue.After(next) {
		due := next
		rule.NextDue = &due
	}
	return nil
}

func (m *MockRules) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	delete(m.rules, id)
	for i, stored := range m.order {
		if stored == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// NextDue returns the stored pointer for a rule, for assertions.
func (m *MockRules) NextDue(id string) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule, ok := m.rules[id]; ok && rule.NextDue != nil {
		due := *rule.NextDue
		return &due
	}
	return nil
}

// MockBudgets is an in-memory BudgetStore keyed by (owner, period start).
type MockBudgets struct {
	mu      sync.Mutex
	budgets []*model.BudgetDefinition

	FindErr   error
	UpdateErr error
}

// NewMockBudgets creates an empty in-memory budget store.
func NewMockBudgets() *MockBudgets {
	return &MockBudgets{}
}

func (m *MockBudgets) FindBudget(_ context.Context, ownerID string, periodStart time.Time) (*model.BudgetDefinition, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.budgets {
		if b.OwnerID == ownerID && b.PeriodStart.Equal(periodStart) {
			clone := *b
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MockBudgets) SaveBudget(_ context.Context, b *model.BudgetDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.budgets {
		if existing.OwnerID == b.OwnerID && existing.PeriodStart.Equal(b.PeriodStart) {
			clone := *b
			m.budgets[i] = &clone
			return nil
		}
	}
	clone := *b
	m.budgets = append(m.budgets, &clone)
	return nil
}

func (m *MockBudgets) UpdateRolloverAmount(_ context.Context, ownerID string, periodStart time.Time, amount decimal.Decimal) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.budgets {
		if b.OwnerID == ownerID && b.PeriodStart.Equal(periodStart) {
			b.RolloverAmount = amount
			return nil
		}
	}
	return nil
}

func (m *MockBudgets) ListRolloverCandidates(_ context.Context, startFrom, startTo time.Time) ([]model.BudgetDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.BudgetDefinition
	for _, b := range m.budgets {
		if !b.RolloverEnabled {
			continue
		}
		if b.PeriodStart.Before(startFrom) || !b.PeriodStart.Before(startTo) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}
