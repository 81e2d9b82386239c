package routes

import (
	"ciphersql/internal/handlers"

	"github.com/gin-gonic/gin"
)

type QueryRoutes struct {
	handler *handlers.QueryHandler
}

func NewQueryRoutes(handler *handlers.QueryHandler) *QueryRoutes {
	return &QueryRoutes{handler: handler}
}

func (r *QueryRoutes) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/run", r.handler.RunQuery)
	router.POST("/hint", r.handler.GetHint)
}
