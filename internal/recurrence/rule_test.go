package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/encorelive/backend/internal/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func intp(v int) *int { return &v }

func timep(t time.Time) *time.Time { return &t }

func equalDates(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func TestWeeklyOccurrences(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceWeekly,
		DayOfWeek: intp(2), // Tuesday
		StartDate: date(2024, 1, 1),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 1, 31))
	want := []time.Time{
		date(2024, 1, 2),
		date(2024, 1, 9),
		date(2024, 1, 16),
		date(2024, 1, 23),
		date(2024, 1, 30),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBiweeklyPhaseAnchoredToStartDate(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceBiweekly,
		DayOfWeek: intp(2), // Tuesday
		StartDate: date(2024, 1, 2),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 2, 29))
	want := []time.Time{
		date(2024, 1, 2),
		date(2024, 1, 16),
		date(2024, 1, 30),
		date(2024, 2, 13),
		date(2024, 2, 27),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBiweeklyPhaseUnchangedByWindowShift(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceBiweekly,
		DayOfWeek: intp(2),
		StartDate: date(2024, 1, 2),
	}

	// A window starting in an off week must not pick up the off-week Tuesday.
	got := r.Occurrences(date(2024, 1, 8), date(2024, 1, 31))
	want := []time.Time{
		date(2024, 1, 16),
		date(2024, 1, 30),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMonthlyFixedDaySkipsShortMonths(t *testing.T) {
	r := Rule{
		Type:       models.RecurrenceMonthly,
		DayOfMonth: intp(31),
		StartDate:  date(2024, 1, 1),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 4, 30))
	want := []time.Time{
		date(2024, 1, 31),
		date(2024, 3, 31),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected February and April skipped, got %v", got)
	}
}

func TestMonthlyNthWeekday(t *testing.T) {
	r := Rule{
		Type:        models.RecurrenceMonthly,
		WeekOfMonth: intp(2),
		DayOfWeek:   intp(6), // 2nd Saturday
		StartDate:   date(2024, 1, 1),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 3, 31))
	want := []time.Time{
		date(2024, 1, 13),
		date(2024, 2, 10),
		date(2024, 3, 9),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMonthlyFifthWeekdaySkippedWhenAbsent(t *testing.T) {
	r := Rule{
		Type:        models.RecurrenceMonthly,
		WeekOfMonth: intp(5),
		DayOfWeek:   intp(5), // 5th Friday
		StartDate:   date(2024, 1, 1),
	}

	// April 2024 has four Fridays.
	if got := r.Occurrences(date(2024, 4, 1), date(2024, 4, 30)); len(got) != 0 {
		t.Fatalf("expected no occurrences in April 2024, got %v", got)
	}

	// March 2024 has five (the 29th is the fifth).
	got := r.Occurrences(date(2024, 3, 1), date(2024, 3, 31))
	want := []time.Time{date(2024, 3, 29)}
	if !equalDates(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOccurrencesBoundedByStartDate(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceWeekly,
		DayOfWeek: intp(2),
		StartDate: date(2024, 1, 15),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 1, 31))
	want := []time.Time{
		date(2024, 1, 16),
		date(2024, 1, 23),
		date(2024, 1, 30),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected dates before start_date excluded, got %v", got)
	}
}

func TestEndDateIsExclusive(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceWeekly,
		DayOfWeek: intp(2),
		StartDate: date(2024, 1, 1),
		EndDate:   timep(date(2024, 1, 16)),
	}

	got := r.Occurrences(date(2024, 1, 1), date(2024, 1, 31))
	want := []time.Time{
		date(2024, 1, 2),
		date(2024, 1, 9),
	}
	if !equalDates(got, want) {
		t.Fatalf("expected no occurrence on or after end_date, got %v", got)
	}
}

func TestOccurrencesDeterministic(t *testing.T) {
	r := Rule{
		Type:      models.RecurrenceBiweekly,
		DayOfWeek: intp(4),
		StartDate: date(2024, 2, 1),
	}

	first := r.Occurrences(date(2024, 2, 1), date(2024, 5, 31))
	second := r.Occurrences(date(2024, 2, 1), date(2024, 5, 31))
	if !equalDates(first, second) {
		t.Fatalf("expected identical sequences, got %v then %v", first, second)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name      string
		rule      Rule
		wantField string // empty means valid
	}{
		{
			name:      "weekly missing day_of_week",
			rule:      Rule{Type: models.RecurrenceWeekly, StartDate: date(2024, 1, 1)},
			wantField: "day_of_week",
		},
		{
			name:      "weekly day_of_week out of range",
			rule:      Rule{Type: models.RecurrenceWeekly, DayOfWeek: intp(7), StartDate: date(2024, 1, 1)},
			wantField: "day_of_week",
		},
		{
			name: "monthly both addressing modes",
			rule: Rule{
				Type: models.RecurrenceMonthly, DayOfMonth: intp(15),
				WeekOfMonth: intp(2), DayOfWeek: intp(6), StartDate: date(2024, 1, 1),
			},
			wantField: "day_of_month",
		},
		{
			name:      "monthly no addressing mode",
			rule:      Rule{Type: models.RecurrenceMonthly, StartDate: date(2024, 1, 1)},
			wantField: "day_of_month",
		},
		{
			name:      "monthly nth weekday missing day_of_week",
			rule:      Rule{Type: models.RecurrenceMonthly, WeekOfMonth: intp(2), StartDate: date(2024, 1, 1)},
			wantField: "day_of_week",
		},
		{
			name:      "monthly week_of_month out of range",
			rule:      Rule{Type: models.RecurrenceMonthly, WeekOfMonth: intp(6), DayOfWeek: intp(1), StartDate: date(2024, 1, 1)},
			wantField: "week_of_month",
		},
		{
			name:      "unknown recurrence type",
			rule:      Rule{Type: "daily", DayOfWeek: intp(1), StartDate: date(2024, 1, 1)},
			wantField: "recurrence_type",
		},
		{
			name:      "missing start_date",
			rule:      Rule{Type: models.RecurrenceWeekly, DayOfWeek: intp(1)},
			wantField: "start_date",
		},
		{
			name:      "end_date before start_date",
			rule:      Rule{Type: models.RecurrenceWeekly, DayOfWeek: intp(1), StartDate: date(2024, 2, 1), EndDate: timep(date(2024, 1, 1))},
			wantField: "end_date",
		},
		{
			name: "valid weekly",
			rule: Rule{Type: models.RecurrenceWeekly, DayOfWeek: intp(0), StartDate: date(2024, 1, 1)},
		},
		{
			name: "valid monthly fixed day",
			rule: Rule{Type: models.RecurrenceMonthly, DayOfMonth: intp(15), StartDate: date(2024, 1, 1)},
		},
		{
			name: "valid monthly nth weekday",
			rule: Rule{Type: models.RecurrenceMonthly, WeekOfMonth: intp(2), DayOfWeek: intp(6), StartDate: date(2024, 1, 1)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid rule, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Fatalf("expected field %q, got %q", tc.wantField, verr.Field)
			}
		})
	}
}
