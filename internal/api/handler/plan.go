package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/testpilot/internal/api/request"
	"github.com/edvin/testpilot/internal/api/response"
	"github.com/edvin/testpilot/internal/core"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/runner"
)

// PlanRunner executes a plan. Satisfied by runner.Orchestrator.
type PlanRunner interface {
	Run(ctx context.Context, planID string, opts runner.RunOptions) (*model.Execution, error)
}

type Plan struct {
	runner PlanRunner
}

func NewPlan(planRunner PlanRunner) *Plan {
	return &Plan{runner: planRunner}
}

// Run triggers a manual plan execution and returns the completed
// execution record. A missing plan is a 404 with no record created.
func (h *Plan) Run(w http.ResponseWriter, r *http.Request) {
	planID, err := request.RequireID(chi.URLParam(r, "planID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RunPlan
	if r.ContentLength > 0 {
		if err := request.Decode(r, &req); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	headless := true
	if req.Headless != nil {
		headless = *req.Headless
	}
	opts := runner.RunOptions{
		Trigger:     model.TriggerManual,
		TriggeredBy: req.TriggeredBy,
		Engine:      req.Engine,
		Headless:    headless,
		Environment: req.Environment,
	}

	exec, err := h.runner.Run(r.Context(), planID, opts)
	if errors.Is(err, core.ErrPlanNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, exec)
}
