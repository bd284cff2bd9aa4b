package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

type AssignmentHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewAssignmentHandler(svc *service.Service, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{svc: svc, logger: logger}
}

// createAssignmentRequest leaves publisher_id unvalidated here so a
// missing publisher surfaces as the service's validation message.
type createAssignmentRequest struct {
	PublisherID uuid.UUID `json:"publisher_id"`
	LinkDays    *int      `json:"link_days"`
}

// Create handles POST /v1/territories/:id/assignments
//
// Settings are read per request and handed to the service, so a change to
// territory_link_days applies to the next assignment.
func (h *AssignmentHandler) Create(c *gin.Context) {
	territoryID, ok := pathID(c, "territory")
	if !ok {
		return
	}
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	settings, err := h.svc.GetSettings(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	a, err := h.svc.CreateAssignment(ctx, service.CreateAssignmentInput{
		TerritoryID: territoryID,
		PublisherID: req.PublisherID,
		LinkDays:    req.LinkDays,
	}, settings)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListForTerritory handles GET /v1/territories/:id/assignments
func (h *AssignmentHandler) ListForTerritory(c *gin.Context) {
	territoryID, ok := pathID(c, "territory")
	if !ok {
		return
	}
	h.list(c, models.AssignmentFilter{TerritoryID: &territoryID})
}

// List handles GET /v1/assignments?territory_id=&publisher_id=&open=
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	var ok bool
	if filter.TerritoryID, ok = queryID(c, "territory_id"); !ok {
		return
	}
	if filter.PublisherID, ok = queryID(c, "publisher_id"); !ok {
		return
	}
	if raw := c.Query("open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'open' parameter"})
			return
		}
		filter.OpenOnly = open
	}
	h.list(c, filter)
}

func (h *AssignmentHandler) list(c *gin.Context, filter models.AssignmentFilter) {
	rows, err := h.svc.ListAssignments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Return handles POST /v1/assignments/:id/return
func (h *AssignmentHandler) Return(c *gin.Context) {
	id, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	a, err := h.svc.ReturnAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Expire handles POST /v1/assignments/:id/expire
func (h *AssignmentHandler) Expire(c *gin.Context) {
	id, ok := pathID(c, "assignment")
	if !ok {
		return
	}
	a, err := h.svc.ExpireAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
