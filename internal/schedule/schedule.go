// Package schedule generates the concrete due dates of a recurring rule.
// Generation is a pure function of the rule's start date, frequency, and an
// anchor, so any sequence can be regenerated from the same inputs: the sync
// engine relies on that to resume cleanly after a partial run.
package schedule

import (
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

// Schedule is the recurrence pattern of a single rule.
type Schedule struct {
	Start      time.Time
	Frequency  model.Frequency
	DayOfMonth int // monthly target day; 0 derives it from Start
}

// FromRule builds the schedule for a recurring rule.
func FromRule(r *model.RecurringRule) Schedule {
	return Schedule{
		Start:      r.StartDate,
		Frequency:  r.Frequency,
		DayOfMonth: r.DayOfMonth,
	}
}

// First returns the first occurrence: the rule's start date at midnight UTC.
func (s Schedule) First() time.Time {
	return period.Midnight(s.Start)
}

// Anchor returns where generation resumes: the recorded next-due date if the
// rule has ever been synced, otherwise the first occurrence.
func (s Schedule) Anchor(nextDue *time.Time) time.Time {
	if nextDue != nil {
		return period.Midnight(*nextDue)
	}
	return s.First()
}

// Next advances one interval past the given occurrence. Monthly advancement
// re-targets the configured day of month each step, clamping to the last day
// when the month is short: a rule anchored on the 31st lands on Feb 28 (or
// 29) and returns to the 31st in March.
func (s Schedule) Next(occurrence time.Time) time.Time {
	d := period.Midnight(occurrence)
	switch s.Frequency {
	case model.FrequencyWeekly:
		return d.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return nextMonthClamped(d, s.targetDay())
	case model.FrequencyYearly:
		return nextYearClamped(d, s.Start)
	}
	// Unknown frequencies never occur for validated rules; advancing a full
	// year keeps a corrupt row from looping forever.
	return d.AddDate(1, 0, 0)
}

// DueThrough returns every occurrence from anchor through horizon, both
// inclusive, in order. An anchor past the horizon yields nothing.
func (s Schedule) DueThrough(anchor, horizon time.Time) []time.Time {
	var due []time.Time
	for d := period.Midnight(anchor); !d.After(horizon); d = s.Next(d) {
		due = append(due, d)
	}
	return due
}

// NextAt returns the first occurrence at or after t, stepping from anchor.
func (s Schedule) NextAt(anchor, t time.Time) time.Time {
	d := period.Midnight(anchor)
	for d.Before(t) {
		d = s.Next(d)
	}
	return d
}

func (s Schedule) targetDay() int {
	if s.DayOfMonth >= 1 && s.DayOfMonth <= 31 {
		return s.DayOfMonth
	}
	return s.Start.Day()
}

func nextMonthClamped(d time.Time, day int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func nextYearClamped(d, start time.Time) time.Time {
	year := d.Year() + 1
	month := d.Month()
	day := d.Day()
	// Re-target the rule's original day so a Feb 29 start clamped to the
	// 28th in common years lands back on the 29th when a leap year returns.
	if start.Month() == month && start.Day() > day {
		day = start.Day()
	}
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
