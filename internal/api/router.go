package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/territorydesk/internal/access"
	"github.com/lalith-99/territorydesk/internal/auth"
	"github.com/lalith-99/territorydesk/internal/middleware"
	"github.com/lalith-99/territorydesk/internal/reconcile"
	"github.com/lalith-99/territorydesk/internal/service"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Service      *service.Service
	Resolver     *access.Resolver
	Runner       *reconcile.Runner
	Logger       *zap.Logger
	JWTSecret    string
	PublicPrefix string
	HealthChecks map[string]HealthCheck
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the HTTP engine. Route groups:
//
//	/v1/health, /metrics, <PublicPrefix>/:token   public
//	/v1/...                                       admin or service_role
//	/functions/v1/...                             service_role only
func NewRouter(d Deps) *gin.Engine {
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	srv.GET("/v1/health", NewHealthHandler(d.HealthChecks, d.Logger).Health)
	if d.Metrics != nil {
		srv.GET("/metrics", gin.WrapH(d.Metrics))
	}

	prefix := d.PublicPrefix
	if prefix == "" {
		prefix = "/p"
	}
	srv.GET(prefix+"/:token", NewPublicHandler(d.Resolver, d.Logger).Resolve)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole(auth.RoleAdmin, auth.RoleService))

	zones := NewZoneHandler(d.Service, d.Logger)
	v1.POST("/zones", zones.Create)
	v1.GET("/zones", zones.List)
	v1.GET("/zones/:id", zones.Get)
	v1.PATCH("/zones/:id", zones.Rename)
	v1.DELETE("/zones/:id", zones.Delete)

	territories := NewTerritoryHandler(d.Service, d.Logger)
	assignments := NewAssignmentHandler(d.Service, d.Logger)
	v1.POST("/territories", territories.Create)
	v1.GET("/territories", territories.List)
	v1.GET("/territories/:id", territories.Get)
	v1.PUT("/territories/:id", territories.Update)
	v1.DELETE("/territories/:id", territories.Delete)
	v1.POST("/territories/:id/assignments", assignments.Create)
	v1.GET("/territories/:id/assignments", assignments.ListForTerritory)

	v1.GET("/assignments", assignments.List)
	v1.POST("/assignments/:id/return", assignments.Return)
	v1.POST("/assignments/:id/expire", assignments.Expire)

	publishers := NewPublisherHandler(d.Service, d.Logger)
	v1.POST("/publishers", publishers.Create)
	v1.GET("/publishers", publishers.List)
	v1.GET("/publishers/:id", publishers.Get)
	v1.PUT("/publishers/:id", publishers.Update)
	v1.DELETE("/publishers/:id", publishers.Delete)

	settings := NewSettingsHandler(d.Service, d.Logger)
	v1.GET("/settings", settings.Get)
	v1.PUT("/settings", settings.Update)

	fn := srv.Group("/functions/v1")
	fn.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole(auth.RoleService))
	jobs := NewJobHandler(d.Runner, d.Logger)
	for _, name := range d.Runner.Names() {
		fn.POST("/"+name, jobs.Run(name))
	}

	return srv
}
