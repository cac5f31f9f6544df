package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/model"
)

// FindBudget returns the definition for (owner, period start), or nil when
// none is configured.
func (s *SQLiteStorage) FindBudget(ctx context.Context, ownerID string, periodStart time.Time) (*model.BudgetDefinition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, period_type, period_start, period_end,
		       monthly_total, rollover_amount, rollover_enabled, alert_threshold
		FROM budgets
		WHERE owner_id = ? AND period_start = ?`,
		ownerID, periodStart.UTC())

	budget, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no budget means no cap configured
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadAllocations(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// SaveBudget inserts or replaces a budget definition and its allocations.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, b *model.BudgetDefinition) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("budget cannot be nil")
	}
	if err := validateString(b.OwnerID, "ownerID"); err != nil {
		return err
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (
			id, owner_id, period_type, period_start, period_end,
			monthly_total, rollover_amount, rollover_enabled, alert_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, period_start) DO UPDATE SET
			period_type = excluded.period_type,
			period_end = excluded.period_end,
			monthly_total = excluded.monthly_total,
			rollover_amount = excluded.rollover_amount,
			rollover_enabled = excluded.rollover_enabled,
			alert_threshold = excluded.alert_threshold`,
		b.ID,
		b.OwnerID,
		string(b.PeriodType),
		b.PeriodStart.UTC(),
		b.PeriodEnd.UTC(),
		b.MonthlyTotal.String(),
		b.RolloverAmount.String(),
		boolToInt(b.RolloverEnabled),
		b.Threshold(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}

	// Resolve the row ID actually stored; on conflict the existing ID wins.
	var storedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE owner_id = ? AND period_start = ?`,
		b.OwnerID, b.PeriodStart.UTC()).Scan(&storedID)
	if err != nil {
		return fmt.Errorf("failed to resolve budget id: %w", err)
	}
	b.ID = storedID

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budget_allocations WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	for i, a := range b.Allocations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budget_allocations (budget_id, position, category, amount)
			VALUES (?, ?, ?, ?)`,
			b.ID, i, a.Category, a.Amount.String()); err != nil {
			return fmt.Errorf("failed to insert allocation %q: %w", a.Category, err)
		}
	}

	return tx.Commit()
}

// UpdateRolloverAmount sets the carried-forward balance for (owner, period
// start). Zero matched rows is not an error: the successor period's budget
// may simply not exist yet.
func (s *SQLiteStorage) UpdateRolloverAmount(ctx context.Context, ownerID string, periodStart time.Time, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE budgets SET rollover_amount = ?
		WHERE owner_id = ? AND period_start = ?`,
		amount.String(), ownerID, periodStart.UTC())
	if err != nil {
		return fmt.Errorf("failed to update rollover amount: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		slog.Debug("no budget to receive rollover",
			"owner_id", ownerID, "period_start", periodStart.Format("2006-01-02"))
	}
	return nil
}

// ListRolloverCandidates returns rollover-enabled budgets whose period starts
// within [startFrom, startTo).
func (s *SQLiteStorage) ListRolloverCandidates(ctx context.Context, startFrom, startTo time.Time) ([]model.BudgetDefinition, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, period_type, period_start, period_end,
		       monthly_total, rollover_amount, rollover_enabled, alert_threshold
		FROM budgets
		WHERE rollover_enabled = 1 AND period_start >= ? AND period_start < ?
		ORDER BY owner_id, period_start`,
		startFrom.UTC(), startTo.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query rollover candidates: %w", err)
	}
	defer rows.Close()

	var budgets []model.BudgetDefinition
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rollover candidates: %w", err)
	}

	return budgets, nil
}

func (s *SQLiteStorage) loadAllocations(ctx context.Context, b *model.BudgetDefinition) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, amount FROM budget_allocations
		WHERE budget_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, raw string
		if err := rows.Scan(&category, &raw); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("corrupt allocation amount %q: %w", raw, err)
		}
		b.Allocations = append(b.Allocations, model.Allocation{Category: category, Amount: amount})
	}
	return rows.Err()
}

func scanBudget(row rowScanner) (*model.BudgetDefinition, error) {
	var (
		budget      model.BudgetDefinition
		periodType  string
		start, end  time.Time
		totalRaw    string
		rolloverRaw string
		enabled     int
	)
	if err := row.Scan(&budget.ID, &budget.OwnerID, &periodType, &start, &end,
		&totalRaw, &rolloverRaw, &enabled, &budget.AlertThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}

	total, err := decimal.NewFromString(totalRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupt budget total %q: %w", totalRaw, err)
	}
	rollover, err := decimal.NewFromString(rolloverRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupt rollover amount %q: %w", rolloverRaw, err)
	}

	budget.PeriodType = model.PeriodType(periodType)
	budget.PeriodStart = start.UTC()
	budget.PeriodEnd = end.UTC()
	budget.MonthlyTotal = total
	budget.RolloverAmount = rollover
	budget.RolloverEnabled = enabled != 0
	return &budget, nil
}
