package routes

import (
	"ciphersql/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router needs.
type Handlers struct {
	Assignments *handlers.AssignmentHandler
	Queries     *handlers.QueryHandler
	Schemas     *handlers.SchemaHandler
	Health      *handlers.HealthHandler
}

func RegisterRoutes(router *gin.Engine, h Handlers) {
	api := router.Group("/api/assignments")

	NewAssignmentRoutes(h.Assignments).RegisterRoutes(api)
	NewQueryRoutes(h.Queries).RegisterRoutes(api)
	NewSchemaRoutes(h.Schemas).RegisterRoutes(api)

	router.GET("/", h.Health.Root)
	router.GET("/healthz", h.Health.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
