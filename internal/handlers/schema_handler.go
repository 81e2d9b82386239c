package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ciphersql/internal/responses"
	"ciphersql/internal/services"

	"github.com/gin-gonic/gin"
)

// SchemaDescriber is satisfied by *services.SchemaService.
type SchemaDescriber interface {
	Describe(ctx context.Context, assignmentID string) (*services.SchemaView, error)
}

type SchemaHandler struct {
	schemaService SchemaDescriber
}

func NewSchemaHandler(schemaService SchemaDescriber) *SchemaHandler {
	return &SchemaHandler{
		schemaService: schemaService,
	}
}

// VisualizeSchema handles GET /api/assignments/:id/schema
func (h *SchemaHandler) VisualizeSchema(c *gin.Context) {
	assignmentID := c.Param("id")

	view, err := h.schemaService.Describe(c.Request.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			responses.Fail(c, http.StatusNotFound, "Assignment not found")
			return
		}
		slog.Error("describing schema failed", "assignment", assignmentID, "error", err)
		responses.Fail(c, http.StatusInternalServerError, "Failed to visualize schema")
		return
	}

	responses.Success(c, http.StatusOK, view)
}
