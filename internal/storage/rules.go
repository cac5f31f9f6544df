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

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
)

const ruleColumns = `id, owner_id, label, amount_kind, amount, last_observed,
	category, frequency, start_date, day_of_month, active, next_due`

// CreateRule persists a recurring rule, assigning an ID if the caller did not.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	var lastObserved any
	if rule.Amount.Kind == model.AmountVariable {
		lastObserved = rule.Amount.LastObserved.String()
	}
	var nextDue any
	if rule.NextDue != nil {
		nextDue = rule.NextDue.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (
			id, owner_id, label, amount_kind, amount, last_observed,
			category, frequency, start_date, day_of_month, active, next_due
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.OwnerID,
		rule.Label,
		string(rule.Amount.Kind),
		rule.Amount.Fixed.String(),
		lastObserved,
		rule.Category,
		string(rule.Frequency),
		rule.StartDate.UTC(),
		rule.DayOfMonth,
		boolToInt(rule.Active),
		nextDue,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring rule: %w", err)
	}

	return nil
}

// GetRule returns a rule by ID, or common.ErrNotFound.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListActiveRules returns active rules for one owner, or for every owner
// when ownerID is empty.
func (s *SQLiteStorage) ListActiveRules(ctx context.Context, ownerID string) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM recurring_rules WHERE active = 1`
	args := []any{}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY owner_id, created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring rules: %w", err)
	}

	slog.Debug("listed active rules", "owner_id", ownerID, "count", len(rules))
	return rules, nil
}

// UpdateNextDue advances a rule's next-due pointer. The guard in the WHERE
// clause keeps the pointer monotonic: a stale or replayed update that would
// move it backward changes nothing.
func (s *SQLiteStorage) UpdateNextDue(ctx context.Context, ruleID string, next time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE recurring_rules SET next_due = ?
		WHERE id = ? AND (next_due IS NULL OR next_due <= ?)`,
		next.UTC(), ruleID, next.UTC())
	if err != nil {
		return fmt.Errorf("failed to update next due date: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Either the rule is gone or the stored pointer is already ahead.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM recurring_rules WHERE id = ?`, ruleID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: rule %s", common.ErrNotFound, ruleID)
		}
		if err != nil {
			return fmt.Errorf("failed to check rule existence: %w", err)
		}
		slog.Debug("next due already ahead, skipping update",
			"rule_id", ruleID, "requested", next.Format("2006-01-02"))
	}

	return nil
}

// DeleteRule removes a rule. Per product behavior rules are deleted outright
// rather than archived; entries the rule produced keep their back-reference.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*model.RecurringRule, error) {
	var (
		rule         model.RecurringRule
		kind         string
		amountRaw    string
		lastObserved sql.NullString
		frequency    string
		startDate    time.Time
		active       int
		nextDue      sql.NullTime
	)
	if err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Label, &kind, &amountRaw,
		&lastObserved, &rule.Category, &frequency, &startDate, &rule.DayOfMonth,
		&active, &nextDue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
	}

	fixed, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupt rule amount %q: %w", amountRaw, err)
	}
	rule.Amount = model.RuleAmount{Kind: model.AmountKind(kind), Fixed: fixed}
	if lastObserved.Valid {
		observed, err := decimal.NewFromString(lastObserved.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt last observed amount %q: %w", lastObserved.String, err)
		}
		rule.Amount.LastObserved = observed
	}

	freq, err := model.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}
	rule.Frequency = freq
	rule.StartDate = startDate.UTC()
	rule.Active = active != 0
	if nextDue.Valid {
		due := nextDue.Time.UTC()
		rule.NextDue = &due
	}

	return &rule, nil
}
