// Package period resolves budget period declarations into concrete half-open
// [start, end) intervals. All bounds are UTC midnights; every downstream
// total queries the ledger with date >= start AND date < end, which makes
// these intervals the single source of truth for period membership.
package period

import (
	"fmt"
	"time"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
)

// Range is a half-open [Start, End) interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the interval.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the interval length in whole days.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start) / (24 * time.Hour))
}

// Midnight truncates t to 00:00:00 UTC on the same calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Month resolves the calendar month containing ref.
func Month(ref time.Time) Range {
	ref = ref.UTC()
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParseMonth resolves a "YYYY-MM" token to its calendar month.
func ParseMonth(token string) (Range, error) {
	if token == "" {
		return Range{}, fmt.Errorf("%w: month token is required", common.ErrInvalidPeriod)
	}
	start, err := time.ParseInLocation("2006-01", token, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: month token must be YYYY-MM, got %q", common.ErrInvalidPeriod, token)
	}
	return Month(start), nil
}

// Week resolves a seven-day period starting at midnight of the given date.
func Week(start time.Time) (Range, error) {
	if start.IsZero() {
		return Range{}, fmt.Errorf("%w: week start date is required", common.ErrInvalidPeriod)
	}
	s := Midnight(start)
	return Range{Start: s, End: s.AddDate(0, 0, 7)}, nil
}

// Custom resolves an arbitrary date range. The end date is inclusive: a
// range ending on the 15th covers through 23:59:59 on the 15th, represented
// here as an exclusive bound at midnight on the 16th.
func Custom(start, end time.Time) (Range, error) {
	if start.IsZero() || end.IsZero() {
		return Range{}, fmt.Errorf("%w: custom ranges need both start and end dates", common.ErrInvalidPeriod)
	}
	s := Midnight(start)
	e := Midnight(end)
	if e.Before(s) {
		return Range{}, fmt.Errorf("%w: end %s precedes start %s",
			common.ErrInvalidPeriod, e.Format("2006-01-02"), s.Format("2006-01-02"))
	}
	return Range{Start: s, End: e.AddDate(0, 0, 1)}, nil
}

// ForBudget resolves the interval a stored budget definition covers.
func ForBudget(b *model.BudgetDefinition) (Range, error) {
	switch b.PeriodType {
	case model.PeriodMonthly:
		if b.PeriodStart.IsZero() {
			return Range{}, fmt.Errorf("%w: monthly budget has no period start", common.ErrInvalidPeriod)
		}
		return Month(b.PeriodStart), nil
	case model.PeriodWeekly:
		return Week(b.PeriodStart)
	case model.PeriodCustom:
		// Stored period_end is exclusive already, so convert back to the
		// inclusive end date Custom expects.
		if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
			return Range{}, fmt.Errorf("%w: custom budget has no bounds", common.ErrInvalidPeriod)
		}
		return Custom(b.PeriodStart, b.PeriodEnd.AddDate(0, 0, -1))
	default:
		return Range{}, fmt.Errorf("%w: unknown period type %q", common.ErrInvalidPeriod, b.PeriodType)
	}
}

// Next returns the period immediately following r for the given type.
// Custom periods have no defined successor.
func Next(pt model.PeriodType, r Range) (Range, error) {
	switch pt {
	case model.PeriodMonthly:
		return Month(r.End), nil
	case model.PeriodWeekly:
		return Week(r.End)
	default:
		return Range{}, fmt.Errorf("%w: %q periods have no successor", common.ErrInvalidPeriod, pt)
	}
}
