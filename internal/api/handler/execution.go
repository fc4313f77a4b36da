package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/testpilot/internal/api/request"
	"github.com/edvin/testpilot/internal/api/response"
	"github.com/edvin/testpilot/internal/core"
)

type Execution struct {
	svc *core.ExecutionService
}

func NewExecution(svc *core.ExecutionService) *Execution {
	return &Execution{svc: svc}
}

// Get serves one execution record, including the progressive results of
// a still-running execution.
func (h *Execution) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "executionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	exec, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, core.ErrExecutionNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, exec)
}

func (h *Execution) ListByPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := request.RequireID(chi.URLParam(r, "planID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := request.ParsePagination(r)

	executions, hasMore, err := h.svc.ListByPlan(r.Context(), planID, p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nextCursor := ""
	if hasMore && len(executions) > 0 {
		nextCursor = executions[len(executions)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, executions, nextCursor, hasMore)
}
