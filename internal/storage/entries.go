package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

// CreateEntry persists a ledger entry, assigning an ID if the caller did not.
func (s *SQLiteStorage) CreateEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	var ruleID any
	if entry.RuleID != "" {
		ruleID = entry.RuleID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			id, owner_id, label, amount, category, effective_date, rule_id, auto_generated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OwnerID,
		entry.Label,
		entry.Amount.String(),
		entry.Category,
		entry.EffectiveDate.UTC(),
		ruleID,
		boolToInt(entry.AutoGenerated),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rule %s already has an entry for %s",
				common.ErrDuplicateEntry, entry.RuleID, entry.EffectiveDate.Format("2006-01-02"))
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	slog.Debug("created ledger entry",
		"entry_id", entry.ID,
		"owner_id", entry.OwnerID,
		"effective_date", entry.EffectiveDate.Format("2006-01-02"),
		"auto_generated", entry.AutoGenerated)
	return nil
}

// SumAmount totals entry amounts for an owner within [r.Start, r.End).
// An empty category matches all categories.
func (s *SQLiteStorage) SumAmount(ctx context.Context, ownerID string, r period.Range, category string) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return decimal.Zero, err
	}

	query := `
		SELECT amount FROM ledger_entries
		WHERE owner_id = ? AND effective_date >= ? AND effective_date < ?`
	args := []any{ownerID, r.Start.UTC(), r.End.UTC()}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query entry amounts: %w", err)
	}
	defer rows.Close()

	// Amounts are stored as decimal strings, so the summation happens here
	// rather than in SQL to avoid float rounding.
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating amounts: %w", err)
	}

	return total, nil
}

// SumByCategory totals entry amounts per category within [r.Start, r.End).
func (s *SQLiteStorage) SumByCategory(ctx context.Context, ownerID string, r period.Range) (map[string]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, amount FROM ledger_entries
		WHERE owner_id = ? AND effective_date >= ? AND effective_date < ?`,
		ownerID, r.Start.UTC(), r.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query category amounts: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, raw string
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan category amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		totals[category] = totals[category].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category amounts: %w", err)
	}

	return totals, nil
}

// ListEntries returns an owner's entries within [r.Start, r.End), ordered by
// effective date.
func (s *SQLiteStorage) ListEntries(ctx context.Context, ownerID string, r period.Range) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, label, amount, category, effective_date, rule_id, auto_generated
		FROM ledger_entries
		WHERE owner_id = ? AND effective_date >= ? AND effective_date < ?
		ORDER BY effective_date, id`,
		ownerID, r.Start.UTC(), r.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

func scanEntry(rows *sql.Rows) (model.LedgerEntry, error) {
	var (
		entry  model.LedgerEntry
		raw    string
		ruleID sql.NullString
		auto   int
		date   time.Time
	)
	if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.Label, &raw,
		&entry.Category, &date, &ruleID, &auto); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("corrupt amount %q: %w", raw, err)
	}
	entry.Amount = amount
	entry.EffectiveDate = date.UTC()
	entry.RuleID = ruleID.String
	entry.AutoGenerated = auto != 0
	return entry, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
