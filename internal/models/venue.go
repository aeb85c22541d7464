package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a location events can reference. Event and template venue
// references are lookup-only: deleting a venue nulls them out.
type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
