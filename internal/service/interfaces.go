// Package service defines the boundary contracts between the forecasting
// engines and their external collaborators: the ledger, the rule and budget
// stores, and the notification sink.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

// LedgerStore reads and writes dated expense entries.
type LedgerStore interface {
	// CreateEntry persists one entry. Creating a second auto-generated entry
	// for the same (rule, effective date) fails with common.ErrDuplicateEntry.
	CreateEntry(ctx context.Context, entry *model.LedgerEntry) error
	// SumAmount totals entry amounts for an owner within [r.Start, r.End).
	// An empty category matches all categories.
	SumAmount(ctx context.Context, ownerID string, r period.Range, category string) (decimal.Decimal, error)
	// SumByCategory totals entry amounts per category within the range.
	SumByCategory(ctx context.Context, ownerID string, r period.Range) (map[string]decimal.Decimal, error)
	// ListEntries returns an owner's entries within the range, ordered by
	// effective date.
	ListEntries(ctx context.Context, ownerID string, r period.Range) ([]model.LedgerEntry, error)
}

// RuleStore reads and mutates recurring rules.
type RuleStore interface {
	// ListActiveRules returns active rules for one owner, or for every owner
	// when ownerID is empty (the scheduled-job variant).
	ListActiveRules(ctx context.Context, ownerID string) ([]model.RecurringRule, error)
	// UpdateNextDue advances a rule's next-due pointer. The pointer is
	// monotonic: an update that would move it backward is a no-op.
	UpdateNextDue(ctx context.Context, ruleID string, next time.Time) error
	GetRule(ctx context.Context, id string) (*model.RecurringRule, error)
	CreateRule(ctx context.Context, rule *model.RecurringRule) error
	DeleteRule(ctx context.Context, id string) error
}

// BudgetStore reads and mutates budget definitions.
type BudgetStore interface {
	// FindBudget returns the definition for (owner, period start), or nil
	// when none is configured; a missing budget means "no cap", not an error.
	FindBudget(ctx context.Context, ownerID string, periodStart time.Time) (*model.BudgetDefinition, error)
	SaveBudget(ctx context.Context, b *model.BudgetDefinition) error
	// UpdateRolloverAmount sets the carried-forward balance on the budget
	// keyed by (owner, period start). Updating a missing row is tolerated.
	UpdateRolloverAmount(ctx context.Context, ownerID string, periodStart time.Time, amount decimal.Decimal) error
	// ListRolloverCandidates returns rollover-enabled budgets whose period
	// starts within [startFrom, startTo).
	ListRolloverCandidates(ctx context.Context, startFrom, startTo time.Time) ([]model.BudgetDefinition, error)
}

// Storage is the full persistence contract.
type Storage interface {
	LedgerStore
	RuleStore
	BudgetStore

	Migrate(ctx context.Context) error
	Close() error
}

// AlertSink receives threshold alerts. Persistence and delivery of
// notifications happen on the other side of this interface.
type AlertSink interface {
	Emit(ctx context.Context, ownerID string, alerts []model.Alert) error
}
