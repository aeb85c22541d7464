package generator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/encorelive/backend/internal/models"
)

type fakeTemplateStore struct {
	templates []models.RecurringTemplate
	err       error
}

func (s *fakeTemplateStore) Active(context.Context) ([]models.RecurringTemplate, error) {
	return s.templates, s.err
}

type fakeInvalidator struct {
	calls atomic.Int32
}

func (f *fakeInvalidator) Invalidate(context.Context) { f.calls.Add(1) }

func TestRunAllContinuesAfterTemplateFailure(t *testing.T) {
	broken := tuesdayTemplate()
	broken.RecurrenceType = models.RecurrenceMonthly
	broken.DayOfMonth = nil // no addressing mode: validation failure

	templates := &fakeTemplateStore{
		templates: []models.RecurringTemplate{tuesdayTemplate(), broken, tuesdayTemplate()},
	}
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	runner := NewRunner(templates, engine, nil, 2, nil)

	report, err := runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Templates != 3 {
		t.Fatalf("expected 3 templates processed, got %d", report.Templates)
	}
	if report.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", report.Failed)
	}
	// The two valid weekly templates each create 4 Tuesdays.
	if report.Created != 8 {
		t.Fatalf("expected created=8, got %+v", report)
	}
}

func TestRunAllAggregatesAndInvalidatesOnce(t *testing.T) {
	templates := &fakeTemplateStore{
		templates: []models.RecurringTemplate{tuesdayTemplate(), tuesdayTemplate(), tuesdayTemplate()},
	}
	store := newFakeEventStore()
	engine := newTestEngine(store, date(2024, 1, 1))
	cache := &fakeInvalidator{}
	runner := NewRunner(templates, engine, cache, 2, nil)

	report, err := runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Created != 12 || report.SkippedExisting != 0 {
		t.Fatalf("expected created=12, got %+v", report)
	}
	if got := cache.calls.Load(); got != 1 {
		t.Fatalf("expected one cache invalidation, got %d", got)
	}

	// A second sweep creates nothing and must leave the cache alone.
	report, err = runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if report.Created != 0 || report.SkippedExisting != 12 {
		t.Fatalf("expected created=0 skipped=12, got %+v", report)
	}
	if got := cache.calls.Load(); got != 1 {
		t.Fatalf("expected no further invalidation, got %d", got)
	}
}

func TestRunAllTemplateStoreError(t *testing.T) {
	templates := &fakeTemplateStore{err: errors.New("connection refused")}
	engine := newTestEngine(newFakeEventStore(), date(2024, 1, 1))
	runner := NewRunner(templates, engine, nil, 2, nil)

	if _, err := runner.RunAll(context.Background()); err == nil {
		t.Fatalf("expected template store error to propagate")
	}
}
