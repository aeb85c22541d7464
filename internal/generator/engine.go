// Package generator materializes recurring-event templates into concrete
// calendar events inside a rolling future window. Runs are idempotent: the
// (source_template_id, event_date) pair is the de-duplication key, enforced
// both by a pre-filter query and by the store's uniqueness constraint.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/encorelive/backend/internal/models"
	"github.com/encorelive/backend/internal/recurrence"
)

// TemplateStore enumerates templates due for generation.
type TemplateStore interface {
	Active(ctx context.Context) ([]models.RecurringTemplate, error)
}

// EventStore persists generated events.
//
// ExistingDates must resolve in a single query, not a per-date loop; it is a
// best-effort pre-filter. InsertGenerated is the authoritative
// de-duplication point: rows hitting the (source_template_id, event_date)
// uniqueness constraint are silently not inserted and excluded from the
// returned count.
type EventStore interface {
	ExistingDates(ctx context.Context, templateID uuid.UUID, dates []time.Time) (map[string]struct{}, error)
	InsertGenerated(ctx context.Context, events []models.Event) (int, error)
}

// RunSummary reports the outcome of one Generate invocation.
type RunSummary struct {
	TemplateID      uuid.UUID `json:"template_id"`
	Created         int       `json:"created"`
	SkippedExisting int       `json:"skipped_existing"`
}

// Engine turns one template into newly persisted events.
type Engine struct {
	events EventStore
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a generation engine.
func NewEngine(events EventStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{events: events, logger: logger, now: time.Now}
}

// ValidateTemplate checks a template's metadata and recurrence rule,
// returning a *recurrence.ValidationError naming the offending field.
func ValidateTemplate(tpl models.RecurringTemplate) error {
	if strings.TrimSpace(tpl.Title) == "" {
		return &recurrence.ValidationError{Field: "title", Reason: "is required"}
	}
	if _, _, err := models.ParseEventTime(tpl.EventTime); err != nil {
		return &recurrence.ValidationError{Field: "event_time", Reason: "must be in HH:MM format"}
	}
	if tpl.GenerateWeeksAhead < 1 || tpl.GenerateWeeksAhead > 52 {
		return &recurrence.ValidationError{Field: "generate_weeks_ahead", Reason: "must be between 1 and 52"}
	}
	return recurrence.FromTemplate(tpl).Validate()
}

// Generate materializes the template's occurrences within
// [today, today + generate_weeks_ahead weeks].
//
// Inactive templates are a true no-op: zero summary, no store calls.
// Validation failures abort before any insert. Occurrences already present
// in the store, including rows inserted by a concurrent run between the
// pre-filter and the insert, are counted as SkippedExisting.
func (e *Engine) Generate(ctx context.Context, tpl models.RecurringTemplate) (RunSummary, error) {
	summary := RunSummary{TemplateID: tpl.ID}
	if !tpl.IsActive {
		return summary, nil
	}
	if err := ValidateTemplate(tpl); err != nil {
		return summary, err
	}

	hour, minute, _ := models.ParseEventTime(tpl.EventTime)
	today := recurrence.DateOnly(e.now())
	windowEnd := today.AddDate(0, 0, 7*tpl.GenerateWeeksAhead)

	dates := recurrence.FromTemplate(tpl).Occurrences(today, windowEnd)
	if len(dates) == 0 {
		return summary, nil
	}

	existing, err := e.events.ExistingDates(ctx, tpl.ID, dates)
	if err != nil {
		return summary, fmt.Errorf("query existing dates: %w", err)
	}

	now := e.now()
	templateID := tpl.ID
	batch := make([]models.Event, 0, len(dates))
	for _, d := range dates {
		if _, ok := existing[d.Format(models.DateLayout)]; ok {
			summary.SkippedExisting++
			continue
		}
		batch = append(batch, models.Event{
			ID:               uuid.New(),
			Title:            tpl.Title,
			Description:      tpl.Description,
			EventType:        tpl.EventType,
			VenueID:          tpl.VenueID,
			StartsAt:         time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC),
			Status:           models.EventStatusScheduled,
			SourceTemplateID: &templateID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if len(batch) == 0 {
		return summary, nil
	}

	inserted, err := e.events.InsertGenerated(ctx, batch)
	if err != nil {
		return summary, fmt.Errorf("insert events: %w", err)
	}
	summary.Created = inserted

	// Rows lost to the uniqueness constraint were created by a concurrent
	// run; the admin only ever sees them as skipped.
	if raced := len(batch) - inserted; raced > 0 {
		summary.SkippedExisting += raced
		e.logger.Debug("concurrent run already materialized occurrences",
			zap.String("template_id", tpl.ID.String()),
			zap.Int("count", raced),
		)
	}
	return summary, nil
}
