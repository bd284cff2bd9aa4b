package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/reconcile"
	"go.uber.org/zap"
)

// JobHandler exposes the reconciliation jobs to external schedulers. The
// request body is ignored. Responses use the envelope
// {"success": bool, "data" | "error": ...}.
type JobHandler struct {
	runner *reconcile.Runner
	logger *zap.Logger
}

func NewJobHandler(runner *reconcile.Runner, logger *zap.Logger) *JobHandler {
	return &JobHandler{runner: runner, logger: logger}
}

// Run returns a handler bound to one job name.
func (h *JobHandler) Run(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.runner.Run(c.Request.Context(), name)
		if err != nil {
			// The runner already logged the failure.
			c.JSON(statusFor(err), gin.H{"success": false, "error": apperr.Message(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	}
}
