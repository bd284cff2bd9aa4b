package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

type PublisherHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewPublisherHandler(svc *service.Service, logger *zap.Logger) *PublisherHandler {
	return &PublisherHandler{svc: svc, logger: logger}
}

type publisherRequest struct {
	Name  string   `json:"name" binding:"required"`
	Roles []string `json:"roles"`
}

// Create handles POST /v1/publishers
func (h *PublisherHandler) Create(c *gin.Context) {
	var req publisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.CreatePublisher(c.Request.Context(), req.Name, req.Roles)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/publishers
func (h *PublisherHandler) List(c *gin.Context) {
	pubs, err := h.svc.ListPublishers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pubs)
}

// Get handles GET /v1/publishers/:id
func (h *PublisherHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "publisher")
	if !ok {
		return
	}
	p, err := h.svc.GetPublisher(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PUT /v1/publishers/:id
func (h *PublisherHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "publisher")
	if !ok {
		return
	}
	var req publisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdatePublisher(c.Request.Context(), id, req.Name, req.Roles)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /v1/publishers/:id
func (h *PublisherHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "publisher")
	if !ok {
		return
	}
	if err := h.svc.DeletePublisher(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
