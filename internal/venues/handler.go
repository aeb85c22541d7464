package venues

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/encorelive/backend/internal/models"
	"github.com/encorelive/backend/pkg/response"
)

// CreateRequest is the body for POST /admin/venues.
type CreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

// UpdateRequest is the body for PATCH /admin/venues/:id.
type UpdateRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Capacity *int    `json:"capacity"`
}

// Handler handles venue HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a venue handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /admin/venues.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v := models.Venue{Name: req.Name, Address: req.Address, Capacity: req.Capacity}
	if err := h.repo.Create(c.Request.Context(), &v); err != nil {
		response.Internal(c, "failed to create venue")
		return
	}
	response.Created(c, v)
}

// List handles GET /venues.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list venues")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /venues/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "venue not found")
			return
		}
		response.Internal(c, "failed to load venue")
		return
	}
	response.OK(c, v)
}

// Update handles PATCH /admin/venues/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Name, req.Address, req.Capacity); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "venue not found")
			return
		}
		response.Internal(c, "failed to update venue")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load venue")
		return
	}
	response.OK(c, v)
}

// Delete handles DELETE /admin/venues/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "venue not found")
			return
		}
		response.Internal(c, "failed to delete venue")
		return
	}
	response.NoContent(c)
}
