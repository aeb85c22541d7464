package templates

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/encorelive/backend/internal/generator"
	"github.com/encorelive/backend/internal/models"
	"github.com/encorelive/backend/internal/recurrence"
	"github.com/encorelive/backend/pkg/response"
)

const dateLayout = models.DateLayout

// CreateRequest is the body for POST /admin/templates.
type CreateRequest struct {
	Title              string  `json:"title" binding:"required"`
	Description        string  `json:"description"`
	EventType          string  `json:"event_type"`
	VenueID            *string `json:"venue_id"`
	RecurrenceType     string  `json:"recurrence_type" binding:"required"`
	DayOfWeek          *int    `json:"day_of_week"`
	WeekOfMonth        *int    `json:"week_of_month"`
	DayOfMonth         *int    `json:"day_of_month"`
	EventTime          string  `json:"event_time" binding:"required"`
	StartDate          string  `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate            *string `json:"end_date"`
	GenerateWeeksAhead int     `json:"generate_weeks_ahead"`
	IsActive           *bool   `json:"is_active"`
}

// UpdateRequest is the body for PATCH /admin/templates/:id. Metadata fields
// are patched individually; the recurrence rule is replaced as a whole
// whenever recurrence_type is present, so a template can never end up with a
// stale mix of addressing fields.
type UpdateRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	EventType          *string `json:"event_type"`
	VenueID            *string `json:"venue_id"`
	RecurrenceType     *string `json:"recurrence_type"`
	DayOfWeek          *int    `json:"day_of_week"`
	WeekOfMonth        *int    `json:"week_of_month"`
	DayOfMonth         *int    `json:"day_of_month"`
	EventTime          *string `json:"event_time"`
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	GenerateWeeksAhead *int    `json:"generate_weeks_ahead"`
}

// Handler handles recurring-template HTTP endpoints.
type Handler struct {
	repo   *Repository
	engine *generator.Engine
	cache  generator.ListingInvalidator // optional
}

// NewHandler creates a template handler. cache may be nil.
func NewHandler(repo *Repository, engine *generator.Engine, cache generator.ListingInvalidator) *Handler {
	return &Handler{repo: repo, engine: engine, cache: cache}
}

// Create handles POST /admin/templates.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tpl := models.RecurringTemplate{
		Title:              req.Title,
		Description:        req.Description,
		EventType:          req.EventType,
		RecurrenceType:     models.RecurrenceType(req.RecurrenceType),
		DayOfWeek:          req.DayOfWeek,
		WeekOfMonth:        req.WeekOfMonth,
		DayOfMonth:         req.DayOfMonth,
		EventTime:          req.EventTime,
		GenerateWeeksAhead: req.GenerateWeeksAhead,
		IsActive:           true,
	}
	if tpl.GenerateWeeksAhead == 0 {
		tpl.GenerateWeeksAhead = 8
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if req.VenueID != nil {
		venueID, err := uuid.Parse(*req.VenueID)
		if err != nil {
			response.BadRequest(c, "invalid venue_id")
			return
		}
		tpl.VenueID = &venueID
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	tpl.StartDate = startDate
	if req.EndDate != nil {
		endDate, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		tpl.EndDate = &endDate
	}

	if err := generator.ValidateTemplate(tpl); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Create(c.Request.Context(), &tpl); err != nil {
		response.Internal(c, "failed to create template")
		return
	}
	response.Created(c, tpl)
}

// List handles GET /admin/templates. Query ?active=1 returns only templates
// the engine would generate for.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), c.Query("active") == "1")
	if err != nil {
		response.Internal(c, "failed to list templates")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /admin/templates/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	tpl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		response.Internal(c, "failed to load template")
		return
	}
	response.OK(c, tpl)
}

// Update handles PATCH /admin/templates/:id. Edits take effect on future
// generation runs only.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tpl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		response.Internal(c, "failed to load template")
		return
	}

	if req.Title != nil {
		tpl.Title = *req.Title
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.EventType != nil {
		tpl.EventType = *req.EventType
	}
	if req.VenueID != nil {
		if *req.VenueID == "" {
			tpl.VenueID = nil
		} else {
			venueID, err := uuid.Parse(*req.VenueID)
			if err != nil {
				response.BadRequest(c, "invalid venue_id")
				return
			}
			tpl.VenueID = &venueID
		}
	}
	if req.EventTime != nil {
		tpl.EventTime = *req.EventTime
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			response.BadRequest(c, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		tpl.StartDate = startDate
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			tpl.EndDate = nil
		} else {
			endDate, err := time.Parse(dateLayout, *req.EndDate)
			if err != nil {
				response.BadRequest(c, "invalid end_date, expected YYYY-MM-DD")
				return
			}
			tpl.EndDate = &endDate
		}
	}
	if req.GenerateWeeksAhead != nil {
		tpl.GenerateWeeksAhead = *req.GenerateWeeksAhead
	}

	if req.RecurrenceType != nil {
		tpl.RecurrenceType = models.RecurrenceType(*req.RecurrenceType)
		tpl.DayOfWeek = req.DayOfWeek
		tpl.WeekOfMonth = req.WeekOfMonth
		tpl.DayOfMonth = req.DayOfMonth
	} else if req.DayOfWeek != nil || req.WeekOfMonth != nil || req.DayOfMonth != nil {
		response.BadRequest(c, "recurrence_type is required when changing the recurrence rule")
		return
	}

	if err := generator.ValidateTemplate(*tpl); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), tpl); err != nil {
		response.Internal(c, "failed to update template")
		return
	}
	response.OK(c, tpl)
}

// SetActive handles PATCH /admin/templates/:id/active.
func (h *Handler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: is_active is required")
		return
	}
	if err := h.repo.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		response.Internal(c, "failed to toggle template")
		return
	}
	response.OK(c, gin.H{"id": id, "is_active": *req.IsActive})
}

// Delete handles DELETE /admin/templates/:id. Previously generated events
// are kept.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		response.Internal(c, "failed to delete template")
		return
	}
	response.NoContent(c)
}

// Generate handles POST /admin/templates/:id/generate, the manual
// "generate now" trigger. The run summary is returned for display; races
// with the periodic job surface only as skipped_existing.
func (h *Handler) Generate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	tpl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		response.Internal(c, "failed to load template")
		return
	}

	summary, err := h.engine.Generate(c.Request.Context(), *tpl)
	if err != nil {
		var verr *recurrence.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(c, verr.Error())
			return
		}
		response.Internal(c, "generation failed")
		return
	}
	if summary.Created > 0 && h.cache != nil {
		h.cache.Invalidate(c.Request.Context())
	}
	response.OK(c, summary)
}
