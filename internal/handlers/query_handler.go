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

// SandboxRunner is satisfied by *services.QueryService.
type SandboxRunner interface {
	Run(ctx context.Context, req services.RunRequest) (*services.RunResult, error)
}

type QueryHandler struct {
	queryService SandboxRunner
	hints        services.HintAdvisor
}

func NewQueryHandler(queryService SandboxRunner, hints services.HintAdvisor) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		hints:        hints,
	}
}

// RunQuery handles POST /api/assignments/run
func (h *QueryHandler) RunQuery(c *gin.Context) {
	var req services.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.RunFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.queryService.Run(c.Request.Context(), req)
	if err != nil {
		status, message := runError(err)
		if status == http.StatusInternalServerError {
			slog.Error("sandbox run failed", "assignment", req.AssignmentID, "error", err)
		}
		responses.RunFail(c, status, message)
		return
	}

	responses.Success(c, http.StatusOK, result)
}

// runError maps service errors to a status code and the message shown in the editor.
func runError(err error) (int, string) {
	var qerr *services.QueryError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "Query is empty"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Action forbidden: Read-only sandbox."
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Assignment not found"
	case errors.As(err, &qerr):
		return http.StatusBadRequest, qerr.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// GetHint handles POST /api/assignments/hint. It always answers 200 with a hint.
func (h *QueryHandler) GetHint(c *gin.Context) {
	var req services.HintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("hint request body could not be parsed", "error", err)
	}

	hint := h.hints.Hint(c.Request.Context(), req)
	responses.Success(c, http.StatusOK, gin.H{"hint": hint})
}
