package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/encorelive/backend/pkg/response"
)

// UpdateRequest is the body for PATCH /admin/events/:id. Applies equally to
// generated and manually created events; generation runs never overwrite
// these edits.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	EventType   *string `json:"event_type"`
	Status      *string `json:"status"`
	VenueID     *string `json:"venue_id"`
	StartsAt    *string `json:"starts_at"` // RFC3339
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo  *Repository
	cache *Cache // optional
}

// NewHandler creates an event handler. cache may be nil.
func NewHandler(repo *Repository, cache *Cache) *Handler {
	return &Handler{repo: repo, cache: cache}
}

// List handles GET /events, the public calendar. Unfiltered requests are
// served from the Redis cache when possible.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	eventType := c.Query("type")
	var venueID *uuid.UUID
	if v := c.Query("venue_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid venue_id")
			return
		}
		venueID = &id
	}

	unfiltered := venueID == nil && eventType == ""
	if unfiltered && h.cache != nil {
		if list, ok := h.cache.GetUpcoming(ctx); ok {
			response.OK(c, list)
			return
		}
	}

	list, err := h.repo.ListUpcoming(ctx, time.Now(), venueID, eventType)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	if unfiltered && h.cache != nil {
		h.cache.SetUpcoming(ctx, list)
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ev, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, ev)
}

// ListByTemplate handles GET /admin/templates/:id/events.
func (h *Handler) ListByTemplate(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	list, err := h.repo.ListByTemplate(c.Request.Context(), templateID)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /admin/events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var venueID *uuid.UUID
	if req.VenueID != nil {
		v, err := uuid.Parse(*req.VenueID)
		if err != nil {
			response.BadRequest(c, "invalid venue_id")
			return
		}
		venueID = &v
	}
	var startsAt *time.Time
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at, expected RFC3339")
			return
		}
		startsAt = &t
	}

	err = h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.EventType, req.Status, venueID, startsAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to update event")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context())
	}
	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /admin/events/:id. Deleting a generated event frees
// its date slot: a later generation run will materialize it again while the
// template stays active.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to delete event")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context())
	}
	response.NoContent(c)
}
