package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/access"
	"go.uber.org/zap"
)

// PublicHandler serves tokenized links. No authentication: the token is
// the credential.
type PublicHandler struct {
	resolver *access.Resolver
	logger   *zap.Logger
}

func NewPublicHandler(resolver *access.Resolver, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{resolver: resolver, logger: logger}
}

// Resolve handles GET <public prefix>/:token
func (h *PublicHandler) Resolve(c *gin.Context) {
	view, err := h.resolver.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, view)
}
