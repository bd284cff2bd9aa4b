package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/models"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

type TerritoryHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewTerritoryHandler(svc *service.Service, logger *zap.Logger) *TerritoryHandler {
	return &TerritoryHandler{svc: svc, logger: logger}
}

// territoryRequest is the body of POST and PUT. Update replaces every
// field, so omitted optional fields are cleared.
type territoryRequest struct {
	Name        string     `json:"name" binding:"required"`
	ZoneID      *uuid.UUID `json:"zone_id"`
	MapURL      *string    `json:"map_url"`
	DangerLevel string     `json:"danger_level"`
	Warnings    *string    `json:"warnings"`
}

func (r territoryRequest) input() service.TerritoryInput {
	return service.TerritoryInput{
		Name:        r.Name,
		ZoneID:      r.ZoneID,
		MapURL:      r.MapURL,
		DangerLevel: models.DangerLevel(r.DangerLevel),
		Warnings:    r.Warnings,
	}
}

// Create handles POST /v1/territories
func (h *TerritoryHandler) Create(c *gin.Context) {
	var req territoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.CreateTerritory(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// List handles GET /v1/territories?zone_id=
func (h *TerritoryHandler) List(c *gin.Context) {
	zoneID, ok := queryID(c, "zone_id")
	if !ok {
		return
	}
	territories, err := h.svc.ListTerritories(c.Request.Context(), models.TerritoryFilter{ZoneID: zoneID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, territories)
}

// Get handles GET /v1/territories/:id
func (h *TerritoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "territory")
	if !ok {
		return
	}
	t, err := h.svc.GetTerritory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Update handles PUT /v1/territories/:id
func (h *TerritoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "territory")
	if !ok {
		return
	}
	var req territoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.UpdateTerritory(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /v1/territories/:id
func (h *TerritoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "territory")
	if !ok {
		return
	}
	if err := h.svc.DeleteTerritory(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
