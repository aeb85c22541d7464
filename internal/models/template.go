package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurrenceType identifies how a recurring template repeats.
type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// DateLayout is the canonical calendar-date format used for idempotency keys.
const DateLayout = "2006-01-02"

// RecurringTemplate is a persisted recurrence rule plus the event metadata
// copied into every event it generates.
//
// Monthly templates use exactly one addressing mode: DayOfMonth alone
// ("15th of every month"), or WeekOfMonth together with DayOfWeek
// ("2nd Saturday"). Weekly and biweekly templates require DayOfWeek and
// ignore the monthly fields.
type RecurringTemplate struct {
	ID                 uuid.UUID      `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	EventType          string         `json:"event_type"`
	VenueID            *uuid.UUID     `json:"venue_id,omitempty"`
	RecurrenceType     RecurrenceType `json:"recurrence_type"`
	DayOfWeek          *int           `json:"day_of_week,omitempty"`   // 0-6, Sunday=0
	WeekOfMonth        *int           `json:"week_of_month,omitempty"` // 1-5
	DayOfMonth         *int           `json:"day_of_month,omitempty"`  // 1-31
	EventTime          string         `json:"event_time"`              // "HH:MM" wall clock
	StartDate          time.Time      `json:"start_date"`
	EndDate            *time.Time     `json:"end_date,omitempty"` // exclusive
	GenerateWeeksAhead int            `json:"generate_weeks_ahead"`
	IsActive           bool           `json:"is_active"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ParseEventTime parses an "HH:MM" wall-clock time into its components.
func ParseEventTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
