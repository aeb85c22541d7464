package models

import (
	"time"

	"github.com/google/uuid"
)

// Event statuses.
const (
	EventStatusScheduled = "scheduled"
	EventStatusCancelled = "cancelled"
)

// Event is one calendar event. Events created by the generation engine carry
// SourceTemplateID for idempotency and traceability only; once created they
// are ordinary events, editable and deletable independently of their template.
type Event struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	EventType        string     `json:"event_type"`
	VenueID          *uuid.UUID `json:"venue_id,omitempty"`
	StartsAt         time.Time  `json:"starts_at"`
	Status           string     `json:"status"`
	SourceTemplateID *uuid.UUID `json:"source_template_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
