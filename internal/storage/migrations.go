package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS recurring_rules (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					label TEXT NOT NULL,
					amount_kind TEXT NOT NULL DEFAULT 'fixed',
					amount TEXT NOT NULL,
					last_observed TEXT,
					category TEXT NOT NULL,
					frequency TEXT NOT NULL,
					start_date DATETIME NOT NULL,
					day_of_month INTEGER NOT NULL DEFAULT 0,
					active INTEGER NOT NULL DEFAULT 1,
					next_due DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_owner ON recurring_rules(owner_id)`,

				`CREATE TABLE IF NOT EXISTS ledger_entries (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					label TEXT NOT NULL,
					amount TEXT NOT NULL,
					category TEXT NOT NULL,
					effective_date DATETIME NOT NULL,
					rule_id TEXT REFERENCES recurring_rules(id),
					auto_generated INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_entries_owner_date ON ledger_entries(owner_id, effective_date)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					period_type TEXT NOT NULL,
					period_start DATETIME NOT NULL,
					period_end DATETIME NOT NULL,
					monthly_total TEXT NOT NULL DEFAULT '0',
					rollover_amount TEXT NOT NULL DEFAULT '0',
					rollover_enabled INTEGER NOT NULL DEFAULT 0,
					alert_threshold REAL NOT NULL DEFAULT 0.8,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(owner_id, period_start)
				)`,

				`CREATE TABLE IF NOT EXISTS budget_allocations (
					budget_id TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					category TEXT NOT NULL,
					amount TEXT NOT NULL,
					PRIMARY KEY (budget_id, position)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Enforce one auto-generated entry per rule occurrence",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_rule_occurrence
				ON ledger_entries(rule_id, effective_date)
				WHERE rule_id IS NOT NULL AND rule_id != ''
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Index active rules by next due date for sync scans",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_rules_active_due
				ON recurring_rules(active, next_due)
			`)
			return err
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
