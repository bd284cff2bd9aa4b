package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewSettingsHandler(svc *service.Service, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger}
}

type settingsRequest struct {
	TerritoryLinkDays int `json:"territory_link_days"`
}

// Get handles GET /v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	st, err := h.svc.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Update handles PUT /v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.svc.UpdateSettings(c.Request.Context(), req.TerritoryLinkDays)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
