// Package recurrence evaluates declarative recurrence rules into concrete
// calendar dates. The evaluator is a pure function over a date window: no
// I/O, no knowledge of what has already been generated, and the same inputs
// always yield the same ascending, deduplicated sequence.
package recurrence

import (
	"fmt"
	"time"

	"github.com/encorelive/backend/internal/models"
)

// ValidationError reports a template field that fails rule validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid template: %s %s", e.Field, e.Reason)
}

// Rule is the recurrence pattern of a template, stripped of event metadata.
type Rule struct {
	Type        models.RecurrenceType
	DayOfWeek   *int // 0-6, Sunday=0
	WeekOfMonth *int // 1-5
	DayOfMonth  *int // 1-31
	StartDate   time.Time
	EndDate     *time.Time // exclusive
}

// FromTemplate extracts the recurrence rule from a template.
func FromTemplate(t models.RecurringTemplate) Rule {
	return Rule{
		Type:        t.RecurrenceType,
		DayOfWeek:   t.DayOfWeek,
		WeekOfMonth: t.WeekOfMonth,
		DayOfMonth:  t.DayOfMonth,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
	}
}

// Validate checks that the rule's fields form a well-defined pattern.
// Monthly rules must use exactly one addressing mode: DayOfMonth alone, or
// WeekOfMonth together with DayOfWeek. Ambiguous or empty addressing is
// rejected rather than guessed at.
func (r Rule) Validate() error {
	if r.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if r.EndDate != nil && !r.EndDate.After(r.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}

	switch r.Type {
	case models.RecurrenceWeekly, models.RecurrenceBiweekly:
		if r.DayOfWeek == nil {
			return &ValidationError{Field: "day_of_week", Reason: "is required for weekly and biweekly recurrence"}
		}
		if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return &ValidationError{Field: "day_of_week", Reason: "must be between 0 (Sunday) and 6 (Saturday)"}
		}
	case models.RecurrenceMonthly:
		hasFixed := r.DayOfMonth != nil
		hasNth := r.WeekOfMonth != nil
		switch {
		case hasFixed && hasNth:
			return &ValidationError{Field: "day_of_month", Reason: "cannot be combined with week_of_month"}
		case hasFixed:
			if *r.DayOfMonth < 1 || *r.DayOfMonth > 31 {
				return &ValidationError{Field: "day_of_month", Reason: "must be between 1 and 31"}
			}
		case hasNth:
			if *r.WeekOfMonth < 1 || *r.WeekOfMonth > 5 {
				return &ValidationError{Field: "week_of_month", Reason: "must be between 1 and 5"}
			}
			if r.DayOfWeek == nil {
				return &ValidationError{Field: "day_of_week", Reason: "is required with week_of_month"}
			}
			if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
				return &ValidationError{Field: "day_of_week", Reason: "must be between 0 (Sunday) and 6 (Saturday)"}
			}
		default:
			return &ValidationError{Field: "day_of_month", Reason: "or week_of_month with day_of_week is required for monthly recurrence"}
		}
	default:
		return &ValidationError{Field: "recurrence_type", Reason: "must be weekly, biweekly or monthly"}
	}
	return nil
}

// Occurrences returns the rule's calendar dates between from and to, both
// inclusive, further bounded by the rule's own start date (inclusive) and end
// date (exclusive). Results are midnight-normalized UTC dates in ascending
// order. Callers must Validate first; an invalid rule yields no dates.
func (r Rule) Occurrences(from, to time.Time) []time.Time {
	lo := DateOnly(from)
	if s := DateOnly(r.StartDate); s.After(lo) {
		lo = s
	}
	hi := DateOnly(to)
	if r.EndDate != nil {
		if last := DateOnly(*r.EndDate).AddDate(0, 0, -1); last.Before(hi) {
			hi = last
		}
	}
	if lo.After(hi) {
		return nil
	}

	switch r.Type {
	case models.RecurrenceWeekly, models.RecurrenceBiweekly:
		return r.weekdayDates(lo, hi)
	case models.RecurrenceMonthly:
		return r.monthlyDates(lo, hi)
	}
	return nil
}

// weekdayDates walks the matching weekday through [lo, hi]. For biweekly
// rules the phase is anchored at the week containing StartDate, so moving the
// window never shifts which weeks match.
func (r Rule) weekdayDates(lo, hi time.Time) []time.Time {
	if r.DayOfWeek == nil {
		return nil
	}
	want := time.Weekday(*r.DayOfWeek)

	d := lo
	if delta := (int(want) - int(d.Weekday()) + 7) % 7; delta > 0 {
		d = d.AddDate(0, 0, delta)
	}

	step := 7
	if r.Type == models.RecurrenceBiweekly {
		anchor := startOfWeek(DateOnly(r.StartDate))
		if weeksBetween(anchor, d)%2 != 0 {
			d = d.AddDate(0, 0, 7)
		}
		step = 14
	}

	var out []time.Time
	for ; !d.After(hi); d = d.AddDate(0, 0, step) {
		out = append(out, d)
	}
	return out
}

// monthlyDates resolves the rule's addressing mode once per month overlapping
// [lo, hi]. Months where the addressed day does not exist (day 31 in
// February, a 5th Friday in a four-Friday month) are skipped, not clamped.
func (r Rule) monthlyDates(lo, hi time.Time) []time.Time {
	var out []time.Time
	for m := time.Date(lo.Year(), lo.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(hi); m = m.AddDate(0, 1, 0) {
		var (
			d  time.Time
			ok bool
		)
		switch {
		case r.DayOfMonth != nil:
			d, ok = fixedDayInMonth(m, *r.DayOfMonth)
		case r.WeekOfMonth != nil && r.DayOfWeek != nil:
			d, ok = nthWeekdayInMonth(m, *r.WeekOfMonth, time.Weekday(*r.DayOfWeek))
		}
		if ok && !d.Before(lo) && !d.After(hi) {
			out = append(out, d)
		}
	}
	return out
}

// fixedDayInMonth returns day-of-month within the month starting at first,
// or false when the month is too short.
func fixedDayInMonth(first time.Time, day int) (time.Time, bool) {
	d := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != first.Month() {
		return time.Time{}, false
	}
	return d, true
}

// nthWeekdayInMonth returns the week-th occurrence of weekday in the month
// starting at first, or false when the month has fewer occurrences.
func nthWeekdayInMonth(first time.Time, week int, weekday time.Weekday) (time.Time, bool) {
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	d := first.AddDate(0, 0, offset+(week-1)*7)
	if d.Month() != first.Month() {
		return time.Time{}, false
	}
	return d, true
}

// DateOnly truncates t to a midnight-normalized UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Sunday on or before d, matching day_of_week
// numbering where Sunday is 0.
func startOfWeek(d time.Time) time.Time {
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// weeksBetween counts whole weeks from anchor to d. Both must be
// midnight-normalized UTC dates with anchor <= d.
func weeksBetween(anchor, d time.Time) int {
	return int(d.Sub(anchor).Hours()) / (24 * 7)
}
