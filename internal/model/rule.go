// Package model defines the core domain types for budgets, recurring rules,
// and the ledger entries they produce.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency describes how often a recurring rule comes due.
type Frequency string

// Supported frequencies.
const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ParseFrequency converts a stored string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}

// Valid reports whether the frequency is one of the supported values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// AmountKind distinguishes fixed-amount rules from variable ones.
type AmountKind string

// Amount kinds.
const (
	AmountFixed    AmountKind = "fixed"
	AmountVariable AmountKind = "variable"
)

// RuleAmount is the tagged amount of a recurring rule: either a fixed amount,
// or a variable amount tracked by its last observed value (e.g. a utility
// bill that changes month to month).
type RuleAmount struct {
	Kind         AmountKind
	Fixed        decimal.Decimal
	LastObserved decimal.Decimal
}

// FixedAmount returns a fixed RuleAmount.
func FixedAmount(amount decimal.Decimal) RuleAmount {
	return RuleAmount{Kind: AmountFixed, Fixed: amount}
}

// VariableAmount returns a variable RuleAmount seeded with the last observed value.
func VariableAmount(lastObserved decimal.Decimal) RuleAmount {
	return RuleAmount{Kind: AmountVariable, LastObserved: lastObserved}
}

// Resolve returns the amount a generated entry should carry.
func (a RuleAmount) Resolve() decimal.Decimal {
	if a.Kind == AmountVariable {
		return a.LastObserved
	}
	return a.Fixed
}

// RecurringRule is a template for expenses that repeat on a schedule.
// NextDue is nil for rules that have never been synced; once set it only
// ever moves forward.
type RecurringRule struct {
	StartDate  time.Time
	NextDue    *time.Time
	ID         string
	OwnerID    string
	Label      string
	Category   string
	Frequency  Frequency
	Amount     RuleAmount
	DayOfMonth int
	Active     bool
}

// Validate checks the fields a caller must supply before a rule is stored.
func (r *RecurringRule) Validate() error {
	if r.OwnerID == "" {
		return fmt.Errorf("rule owner is required")
	}
	if r.Label == "" {
		return fmt.Errorf("rule label is required")
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("rule start date is required")
	}
	if r.Amount.Resolve().IsNegative() {
		return fmt.Errorf("rule amount must not be negative")
	}
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		return fmt.Errorf("day of month must be 0..31")
	}
	return nil
}
