package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

type ZoneHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewZoneHandler(svc *service.Service, logger *zap.Logger) *ZoneHandler {
	return &ZoneHandler{svc: svc, logger: logger}
}

type zoneRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/zones
func (h *ZoneHandler) Create(c *gin.Context) {
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	z, err := h.svc.CreateZone(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, z)
}

// List handles GET /v1/zones
func (h *ZoneHandler) List(c *gin.Context) {
	zones, err := h.svc.ListZones(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// Get handles GET /v1/zones/:id
func (h *ZoneHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "zone")
	if !ok {
		return
	}
	z, err := h.svc.GetZone(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// Rename handles PATCH /v1/zones/:id
func (h *ZoneHandler) Rename(c *gin.Context) {
	id, ok := pathID(c, "zone")
	if !ok {
		return
	}
	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	z, err := h.svc.RenameZone(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// Delete handles DELETE /v1/zones/:id
func (h *ZoneHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "zone")
	if !ok {
		return
	}
	if err := h.svc.DeleteZone(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
