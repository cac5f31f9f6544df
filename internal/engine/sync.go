// Package engine implements the budget forecasting core: recurring-expense
// sync, threshold alerting, rollover processing, and safe-to-spend forecasts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/schedule"
	"github.com/centsible/centsible/internal/service"
)

// Syncer materializes due recurring-rule occurrences into ledger entries.
type Syncer struct {
	rules  service.RuleStore
	ledger service.LedgerStore
}

// NewSyncer creates a sync engine over the given stores.
func NewSyncer(rules service.RuleStore, ledger service.LedgerStore) *Syncer {
	return &Syncer{rules: rules, ledger: ledger}
}

// SyncResult reports what one sync pass did.
type SyncResult struct {
	RulesProcessed int
	EntriesCreated int
	RulesFailed    int
}

// Failed reports whether any rule could not be fully caught up.
func (r SyncResult) Failed() bool {
	return r.RulesFailed > 0
}

// SyncAll catches up every active rule system-wide (the scheduled-job
// variant). A failure on one rule is logged and does not abort the batch;
// the result carries partial progress either way.
func (s *Syncer) SyncAll(ctx context.Context, now time.Time) (SyncResult, error) {
	return s.sync(ctx, "", now)
}

// SyncOwner catches up one owner's active rules.
func (s *Syncer) SyncOwner(ctx context.Context, ownerID string, now time.Time) (SyncResult, error) {
	if ownerID == "" {
		return SyncResult{}, fmt.Errorf("owner id is required")
	}
	return s.sync(ctx, ownerID, now)
}

func (s *Syncer) sync(ctx context.Context, ownerID string, now time.Time) (SyncResult, error) {
	var result SyncResult

	rules, err := s.rules.ListActiveRules(ctx, ownerID)
	if err != nil {
		return result, fmt.Errorf("failed to list active rules: %w", err)
	}

	for i := range rules {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		created, err := s.SyncRule(ctx, &rules[i], now)
		result.EntriesCreated += created
		if err != nil {
			result.RulesFailed++
			slog.Error("rule sync failed",
				"rule_id", rules[i].ID,
				"owner_id", rules[i].OwnerID,
				"entries_created", created,
				"error", err)
			continue
		}
		result.RulesProcessed++
	}

	slog.Info("recurring sync complete",
		"owner_id", ownerID,
		"rules_processed", result.RulesProcessed,
		"entries_created", result.EntriesCreated,
		"rules_failed", result.RulesFailed)
	return result, nil
}

// SyncRule catches up a single rule: every occurrence from the anchor
// through now becomes exactly one ledger entry. The next-due pointer is
// advanced after each entry rather than once at the end, so a crash mid
// catch-up leaves at most one occurrence to reconcile, and the ledger's
// uniqueness guarantee absorbs even that one.
func (s *Syncer) SyncRule(ctx context.Context, rule *model.RecurringRule, now time.Time) (int, error) {
	sched := schedule.FromRule(rule)
	due := sched.Anchor(rule.NextDue)

	created := 0
	for !due.After(now) {
		entry := &model.LedgerEntry{
			OwnerID:       rule.OwnerID,
			Label:         rule.Label,
			Amount:        rule.Amount.Resolve(),
			Category:      rule.Category,
			EffectiveDate: due,
			RuleID:        rule.ID,
			AutoGenerated: true,
		}

		err := s.ledger.CreateEntry(ctx, entry)
		switch {
		case errors.Is(err, common.ErrDuplicateEntry):
			// Already materialized by an earlier run that crashed before
			// advancing the pointer. Advance and move on.
			slog.Debug("occurrence already materialized",
				"rule_id", rule.ID, "due", due.Format("2006-01-02"))
		case err != nil:
			return created, fmt.Errorf("create entry for rule %s due %s: %w",
				rule.ID, due.Format("2006-01-02"), err)
		default:
			created++
		}

		next := sched.Next(due)
		err = common.WithRetry(ctx, func() error {
			return s.rules.UpdateNextDue(ctx, rule.ID, next)
		}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
		if err != nil {
			return created, fmt.Errorf("advance rule %s past %s: %w",
				rule.ID, due.Format("2006-01-02"), err)
		}

		rule.NextDue = &next
		due = next
	}

	return created, nil
}
