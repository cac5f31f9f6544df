package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
	"github.com/centsible/centsible/internal/service"
)

// RolloverProcessor carries unspent budget into each owner's next period.
type RolloverProcessor struct {
	budgets service.BudgetStore
	ledger  service.LedgerStore
}

// NewRolloverProcessor creates a rollover engine over the given stores.
func NewRolloverProcessor(budgets service.BudgetStore, ledger service.LedgerStore) *RolloverProcessor {
	return &RolloverProcessor{budgets: budgets, ledger: ledger}
}

// RolloverResult reports what one rollover pass did.
type RolloverResult struct {
	Processed  int
	RolledOver int
	Failed     int
}

// Run closes out rollover-enabled budgets from the previous calendar month.
// Positive leftover is written onto the budget that starts where the closed
// period ends; overspent periods carry nothing forward. Running twice is
// harmless: the leftover is recomputed from the ledger, not accumulated.
//
// Only periods that have actually ended are closed: a weekly budget whose
// week straddles the month boundary stays open until the next pass. The
// candidate window reaches a week before the previous month so a deferred
// straddler is still listed when that pass comes.
func (p *RolloverProcessor) Run(ctx context.Context, now time.Time) (RolloverResult, error) {
	var result RolloverResult

	window := period.Month(now)
	startFrom := window.Start.AddDate(0, -1, -7)

	candidates, err := p.budgets.ListRolloverCandidates(ctx, startFrom, window.Start)
	if err != nil {
		return result, fmt.Errorf("failed to list rollover candidates: %w", err)
	}

	for i := range candidates {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		budget := &candidates[i]
		if budget.PeriodEnd.After(now) {
			slog.Debug("period still open, deferring rollover",
				"owner_id", budget.OwnerID,
				"period_end", budget.PeriodEnd.Format("2006-01-02"))
			continue
		}
		carried, err := p.process(ctx, budget)
		if err != nil {
			result.Failed++
			slog.Error("rollover failed",
				"owner_id", budget.OwnerID,
				"period_start", budget.PeriodStart.Format("2006-01-02"),
				"error", err)
			continue
		}
		result.Processed++
		if carried {
			result.RolledOver++
		}
	}

	slog.Info("rollover pass complete",
		"processed", result.Processed,
		"rolled_over", result.RolledOver,
		"failed", result.Failed)
	return result, nil
}

func (p *RolloverProcessor) process(ctx context.Context, budget *model.BudgetDefinition) (bool, error) {
	// Custom periods have no defined successor to receive the balance.
	if budget.PeriodType == model.PeriodCustom {
		return false, nil
	}

	spent, err := p.ledger.SumAmount(ctx, budget.OwnerID,
		period.Range{Start: budget.PeriodStart, End: budget.PeriodEnd}, "")
	if err != nil {
		return false, fmt.Errorf("sum period spending: %w", err)
	}

	leftover := budget.EffectiveTotal().Sub(spent)
	if !leftover.IsPositive() {
		slog.Debug("no surplus to roll over",
			"owner_id", budget.OwnerID,
			"period_start", budget.PeriodStart.Format("2006-01-02"),
			"leftover", leftover)
		return false, nil
	}

	// The successor period starts exactly where this one ends.
	if err := p.budgets.UpdateRolloverAmount(ctx, budget.OwnerID, budget.PeriodEnd, leftover); err != nil {
		return false, fmt.Errorf("carry %s into next period: %w", leftover, err)
	}

	slog.Info("rolled over surplus",
		"owner_id", budget.OwnerID,
		"period_start", budget.PeriodStart.Format("2006-01-02"),
		"amount", leftover)
	return true, nil
}
