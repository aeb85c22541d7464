// Package venues persists venues, the lookup-only collaborator referenced by
// events and recurring templates.
package venues

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encorelive/backend/internal/models"
)

// ErrNotFound is returned when no venue matches the given ID.
var ErrNotFound = errors.New("venue not found")

// Repository handles venue persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a venue repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new venue.
func (r *Repository) Create(ctx context.Context, v *models.Venue) error {
	const q = `INSERT INTO venues (id, name, address, capacity)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, v.Name, v.Address, v.Capacity).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a venue by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	const q = `SELECT id, name, address, capacity, created_at, updated_at FROM venues WHERE id = $1`
	var v models.Venue
	err := r.pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.Name, &v.Address, &v.Capacity, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns all venues ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Venue, error) {
	const q = `SELECT id, name, address, capacity, created_at, updated_at FROM venues ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Venue
	for rows.Next() {
		var v models.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.Capacity, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Update edits a venue's fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, address *string, capacity *int) error {
	const q = `UPDATE venues SET
		name = COALESCE($1, name),
		address = COALESCE($2, address),
		capacity = COALESCE($3, capacity),
		updated_at = NOW()
		WHERE id = $4`
	ct, err := r.pool.Exec(ctx, q, name, address, capacity, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a venue. Events and templates referencing it keep existing
// with the reference nulled out.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
