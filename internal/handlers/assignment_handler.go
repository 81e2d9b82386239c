package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ciphersql/internal/models"
	"ciphersql/internal/repositories"
	"ciphersql/internal/responses"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AssignmentReader is satisfied by *repositories.AssignmentRepository.
type AssignmentReader interface {
	List() ([]models.Assignment, error)
	GetByID(id uuid.UUID) (*models.Assignment, error)
}

type AssignmentHandler struct {
	assignments AssignmentReader
}

func NewAssignmentHandler(assignments AssignmentReader) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
	}
}

// ListAssignments handles GET /api/assignments
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.assignments.List()
	if err != nil {
		slog.Error("listing assignments failed", "error", err)
		responses.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	// The schema name and the expected output stay server-side in listings
	summaries := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		summaries = append(summaries, a.Summary())
	}

	responses.Success(c, http.StatusOK, summaries)
}

// GetAssignment handles GET /api/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Fail(c, http.StatusNotFound, "Assignment not found")
		return
	}

	assignment, err := h.assignments.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			responses.Fail(c, http.StatusNotFound, "Assignment not found")
			return
		}
		slog.Error("loading assignment failed", "id", id, "error", err)
		responses.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	responses.Success(c, http.StatusOK, assignment)
}
