// Package templates persists recurring-event templates and serves the admin
// CRUD endpoints plus the manual "generate now" trigger.
package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encorelive/backend/internal/models"
)

// ErrNotFound is returned when no template matches the given ID.
var ErrNotFound = errors.New("template not found")

const templateColumns = `id, title, description, event_type, venue_id, recurrence_type,
	day_of_week, week_of_month, day_of_month, event_time, start_date, end_date,
	generate_weeks_ahead, is_active, created_at, updated_at`

// Repository handles recurring-template persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a template repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new template.
func (r *Repository) Create(ctx context.Context, t *models.RecurringTemplate) error {
	const q = `INSERT INTO recurring_event_templates
		(id, title, description, event_type, venue_id, recurrence_type, day_of_week,
		 week_of_month, day_of_month, event_time, start_date, end_date, generate_weeks_ahead, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		t.Title, t.Description, t.EventType, t.VenueID, t.RecurrenceType, t.DayOfWeek,
		t.WeekOfMonth, t.DayOfMonth, t.EventTime, t.StartDate, t.EndDate,
		t.GenerateWeeksAhead, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a template by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.RecurringTemplate, error) {
	q := `SELECT ` + templateColumns + ` FROM recurring_event_templates WHERE id = $1`
	t, err := scanTemplate(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns all templates, newest first. activeOnly restricts to templates
// the generation engine would pick up.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.RecurringTemplate, error) {
	q := `SELECT ` + templateColumns + ` FROM recurring_event_templates`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Active returns the templates due for generation. Satisfies
// generator.TemplateStore.
func (r *Repository) Active(ctx context.Context) ([]models.RecurringTemplate, error) {
	return r.List(ctx, true)
}

// Update replaces a template's mutable fields. Edits only affect future
// generation runs; previously generated events are never rewritten.
func (r *Repository) Update(ctx context.Context, t *models.RecurringTemplate) error {
	const q = `UPDATE recurring_event_templates SET
		title = $1, description = $2, event_type = $3, venue_id = $4, recurrence_type = $5,
		day_of_week = $6, week_of_month = $7, day_of_month = $8, event_time = $9,
		start_date = $10, end_date = $11, generate_weeks_ahead = $12, is_active = $13,
		updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q,
		t.Title, t.Description, t.EventType, t.VenueID, t.RecurrenceType,
		t.DayOfWeek, t.WeekOfMonth, t.DayOfMonth, t.EventTime,
		t.StartDate, t.EndDate, t.GenerateWeeksAhead, t.IsActive, t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SetActive toggles a template. Deactivation halts future generation while
// keeping every already-generated event in place.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	const q = `UPDATE recurring_event_templates SET is_active = $1, updated_at = NOW() WHERE id = $2`
	ct, err := r.pool.Exec(ctx, q, active, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a template. Generated events survive with their provenance
// reference nulled out (FK ON DELETE SET NULL); nothing cascades.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM recurring_event_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*models.RecurringTemplate, error) {
	var t models.RecurringTemplate
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.EventType, &t.VenueID, &t.RecurrenceType,
		&t.DayOfWeek, &t.WeekOfMonth, &t.DayOfMonth, &t.EventTime, &t.StartDate, &t.EndDate,
		&t.GenerateWeeksAhead, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &t, nil
}
