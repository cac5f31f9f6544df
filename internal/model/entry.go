package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a single dated expense. EffectiveDate is the date the
// expense is due, not the time the row was created; entries may be backdated.
// Entries produced by the sync engine carry the originating rule's ID and
// the AutoGenerated flag.
type LedgerEntry struct {
	EffectiveDate time.Time
	ID            string
	OwnerID       string
	Label         string
	Category      string
	RuleID        string
	Amount        decimal.Decimal
	AutoGenerated bool
}

// Validate checks the fields a caller must supply before an entry is stored.
func (e *LedgerEntry) Validate() error {
	if e.OwnerID == "" {
		return fmt.Errorf("entry owner is required")
	}
	if e.Label == "" {
		return fmt.Errorf("entry label is required")
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("entry amount must not be negative")
	}
	if e.EffectiveDate.IsZero() {
		return fmt.Errorf("entry effective date is required")
	}
	return nil
}
