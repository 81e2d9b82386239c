package routes

import (
	"ciphersql/internal/handlers"

	"github.com/gin-gonic/gin"
)

type AssignmentRoutes struct {
	handler *handlers.AssignmentHandler
}

func NewAssignmentRoutes(handler *handlers.AssignmentHandler) *AssignmentRoutes {
	return &AssignmentRoutes{handler: handler}
}

func (r *AssignmentRoutes) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", r.handler.ListAssignments)
	router.GET("/:id", r.handler.GetAssignment)
}
