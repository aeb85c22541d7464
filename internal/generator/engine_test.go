package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/encorelive/backend/internal/models"
	"github.com/encorelive/backend/internal/recurrence"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func intp(v int) *int { return &v }

// fakeEventStore is an in-memory EventStore keyed by the
// (source_template_id, event_date) idempotency pair.
type fakeEventStore struct {
	mu            sync.Mutex
	rows          map[string]models.Event
	existingCalls int
	insertCalls   int
	existingErr   error
	insertErr     error
	// racePending simulates a concurrent run: these rows appear right after
	// the existence pre-filter, so the insert hits the uniqueness constraint.
	racePending []models.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{rows: make(map[string]models.Event)}
}

func rowKey(templateID uuid.UUID, d time.Time) string {
	return templateID.String() + "|" + d.Format(models.DateLayout)
}

func (s *fakeEventStore) ExistingDates(_ context.Context, templateID uuid.UUID, dates []time.Time) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existingCalls++
	if s.existingErr != nil {
		return nil, s.existingErr
	}
	out := make(map[string]struct{})
	for _, d := range dates {
		if _, ok := s.rows[rowKey(templateID, d)]; ok {
			out[d.Format(models.DateLayout)] = struct{}{}
		}
	}
	for _, ev := range s.racePending {
		s.rows[rowKey(*ev.SourceTemplateID, recurrence.DateOnly(ev.StartsAt))] = ev
	}
	s.racePending = nil
	return out, nil
}

func (s *fakeEventStore) InsertGenerated(_ context.Context, events []models.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	inserted := 0
	for _, ev := range events {
		k := rowKey(*ev.SourceTemplateID, recurrence.DateOnly(ev.StartsAt))
		if _, ok := s.rows[k]; ok {
			continue
		}
		s.rows[k] = ev
		inserted++
	}
	return inserted, nil
}

func (s *fakeEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func newTestEngine(store *fakeEventStore, today time.Time) *Engine {
	e := NewEngine(store, nil)
	e.now = func() time.Time { return today }
	return e
}

// tuesdayTemplate repeats every Tuesday at 19:30, four weeks ahead,
// anchored at Monday 2024-01-01.
func tuesdayTemplate() models.RecurringTemplate {
	return models.RecurringTemplate{
		ID:                 uuid.New(),
		Title:              "Jazz Night",
		Description:        "Live jazz at the main stage",
		EventType:          "music",
		RecurrenceType:     models.RecurrenceWeekly,
		DayOfWeek:          intp(2),
		EventTime:          "19:30",
		StartDate:          date(2024, 1, 1),
		GenerateWeeksAhead: 4,
		IsActive:           true,
	}
}

func TestGenerateIdempotent(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()

	first, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Tuesdays within [2024-01-01, 2024-01-29]: the 2nd, 9th, 16th, 23rd.
	if first.Created != 4 || first.SkippedExisting != 0 {
		t.Fatalf("first run: expected created=4 skipped=0, got %+v", first)
	}

	second, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.SkippedExisting != 4 {
		t.Fatalf("second run: expected created=0 skipped=4, got %+v", second)
	}
	if store.count() != 4 {
		t.Fatalf("expected 4 persisted events, got %d", store.count())
	}
}

func TestGenerateWindowGrowthOnlyAppendsTail(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()

	if _, err := engine.Generate(context.Background(), tpl); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstKey := rowKey(tpl.ID, date(2024, 1, 2))
	originalID := store.rows[firstKey].ID

	tpl.GenerateWeeksAhead = 12
	second, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// 12 Tuesdays fall within [2024-01-01, 2024-03-25]; 4 already exist.
	if second.Created != 8 || second.SkippedExisting != 4 {
		t.Fatalf("expected created=8 skipped=4, got %+v", second)
	}
	if store.count() != 12 {
		t.Fatalf("expected 12 persisted events, got %d", store.count())
	}
	if store.rows[firstKey].ID != originalID {
		t.Fatalf("expected previously generated event untouched")
	}
}

func TestGenerateInactiveIsTrueNoOp(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()
	tpl.IsActive = false

	summary, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 0 || summary.SkippedExisting != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if store.existingCalls != 0 || store.insertCalls != 0 {
		t.Fatalf("expected no store calls, got existing=%d insert=%d", store.existingCalls, store.insertCalls)
	}
}

func TestGenerateValidationFailsBeforeAnyInsert(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()
	tpl.RecurrenceType = models.RecurrenceMonthly
	tpl.DayOfMonth = intp(15)
	tpl.WeekOfMonth = intp(2) // both addressing modes: invalid

	_, err := engine.Generate(context.Background(), tpl)
	var verr *recurrence.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "day_of_month" {
		t.Fatalf("expected offending field day_of_month, got %q", verr.Field)
	}
	if store.existingCalls != 0 || store.insertCalls != 0 {
		t.Fatalf("expected no store calls after validation failure")
	}
}

func TestGenerateCountsInsertRaceAsSkipped(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()

	templateID := tpl.ID
	store.racePending = []models.Event{{
		ID:               uuid.New(),
		StartsAt:         date(2024, 1, 9),
		SourceTemplateID: &templateID,
	}}

	summary, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 3 || summary.SkippedExisting != 1 {
		t.Fatalf("expected created=3 skipped=1, got %+v", summary)
	}
}

func TestGenerateStoreErrorsPropagate(t *testing.T) {
	store := newFakeEventStore()
	store.existingErr = errors.New("connection refused")
	engine := newTestEngine(store, date(2024, 1, 1))

	if _, err := engine.Generate(context.Background(), tuesdayTemplate()); err == nil {
		t.Fatalf("expected existence-check error to propagate")
	}

	store = newFakeEventStore()
	store.insertErr = errors.New("connection refused")
	engine = newTestEngine(store, date(2024, 1, 1))

	if _, err := engine.Generate(context.Background(), tuesdayTemplate()); err == nil {
		t.Fatalf("expected insert error to propagate")
	}
}

func TestGenerateComposesTemplateMetadata(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()
	venueID := uuid.New()
	tpl.VenueID = &venueID

	if _, err := engine.Generate(context.Background(), tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev, ok := store.rows[rowKey(tpl.ID, date(2024, 1, 2))]
	if !ok {
		t.Fatalf("expected an event on 2024-01-02")
	}
	wantStart := time.Date(2024, 1, 2, 19, 30, 0, 0, time.UTC)
	if !ev.StartsAt.Equal(wantStart) {
		t.Fatalf("expected starts_at %v, got %v", wantStart, ev.StartsAt)
	}
	if ev.Title != tpl.Title || ev.Description != tpl.Description || ev.EventType != tpl.EventType {
		t.Fatalf("expected template metadata copied, got %+v", ev)
	}
	if ev.VenueID == nil || *ev.VenueID != venueID {
		t.Fatalf("expected venue reference copied")
	}
	if ev.SourceTemplateID == nil || *ev.SourceTemplateID != tpl.ID {
		t.Fatalf("expected source template provenance set")
	}
	if ev.Status != models.EventStatusScheduled {
		t.Fatalf("expected status %q, got %q", models.EventStatusScheduled, ev.Status)
	}
}

func TestGenerateEndDateClipsWindow(t *testing.T) {
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	tpl := tuesdayTemplate()
	end := date(2024, 1, 16)
	tpl.EndDate = &end

	summary, err := engine.Generate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the 2nd and 9th fall before the exclusive end date.
	if summary.Created != 2 {
		t.Fatalf("expected created=2, got %+v", summary)
	}
}
