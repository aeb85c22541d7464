// Package events persists calendar events. It implements the engine's
// EventStore contract (existence pre-filter and conflict-tolerant bulk
// insert) alongside the ordinary event endpoints: generated events are normal
// events once created.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encorelive/backend/internal/models"
	"github.com/encorelive/backend/internal/recurrence"
)

// ErrNotFound is returned when no event matches the given ID.
var ErrNotFound = errors.New("event not found")

const eventColumns = `id, title, description, event_type, venue_id, starts_at, status,
	source_template_id, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ExistingDates returns which of the candidate dates are already
// materialized for the template, keyed by models.DateLayout. One query
// against the (source_template_id, event_date) index.
func (r *Repository) ExistingDates(ctx context.Context, templateID uuid.UUID, dates []time.Time) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(dates) == 0 {
		return out, nil
	}
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = recurrence.DateOnly(d)
	}

	const q = `SELECT to_char(event_date, 'YYYY-MM-DD') FROM events
		WHERE source_template_id = $1 AND event_date = ANY($2::date[])`
	rows, err := r.pool.Query(ctx, q, templateID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out[key] = struct{}{}
	}
	return out, rows.Err()
}

// InsertGenerated bulk-inserts generated events and returns how many rows
// actually landed. A row conflicting on (source_template_id, event_date) was
// materialized by a concurrent run and is simply not counted.
func (r *Repository) InsertGenerated(ctx context.Context, events []models.Event) (int, error) {
	const q = `INSERT INTO events
		(id, title, description, event_type, venue_id, starts_at, event_date, status, source_template_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source_template_id, event_date) WHERE source_template_id IS NOT NULL DO NOTHING`

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(q,
			ev.ID, ev.Title, ev.Description, ev.EventType, ev.VenueID,
			ev.StartsAt, recurrence.DateOnly(ev.StartsAt), ev.Status,
			ev.SourceTemplateID, ev.CreatedAt, ev.UpdatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range events {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert event: %w", err)
		}
		inserted += int(ct.RowsAffected())
	}
	return inserted, nil
}

// ListUpcoming returns events starting on or after from, optionally filtered
// by venue and event type, soonest first.
func (r *Repository) ListUpcoming(ctx context.Context, from time.Time, venueID *uuid.UUID, eventType string) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE starts_at >= $1`
	args := []interface{}{from}
	if venueID != nil {
		args = append(args, *venueID)
		q += fmt.Sprintf(" AND venue_id = $%d", len(args))
	}
	if eventType != "" {
		args = append(args, eventType)
		q += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	q += " ORDER BY starts_at ASC"

	return r.queryEvents(ctx, q, args...)
}

// ListByTemplate returns every event a template has generated, for admin
// traceability. Events keep this provenance even after template edits.
func (r *Repository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE source_template_id = $1 ORDER BY starts_at ASC`
	return r.queryEvents(ctx, q, templateID)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	ev, err := scanEvent(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Update edits an event's fields. The event_date idempotency column is left
// at the originally generated date on purpose: moving an event does not make
// the engine regenerate its old slot.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, eventType, status *string, venueID *uuid.UUID, startsAt *time.Time) error {
	const q = `UPDATE events SET
		title = COALESCE($1, title),
		description = COALESCE($2, description),
		event_type = COALESCE($3, event_type),
		status = COALESCE($4, status),
		venue_id = COALESCE($5, venue_id),
		starts_at = COALESCE($6, starts_at),
		updated_at = NOW()
		WHERE id = $7`
	ct, err := r.pool.Exec(ctx, q, title, description, eventType, status, venueID, startsAt, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) queryEvents(ctx context.Context, q string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ev)
	}
	return list, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.EventType, &ev.VenueID, &ev.StartsAt,
		&ev.Status, &ev.SourceTemplateID, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
