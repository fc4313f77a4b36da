package handler

import (
	"context"
	"net/http"

	"github.com/edvin/testpilot/internal/api/request"
	"github.com/edvin/testpilot/internal/api/response"
	"github.com/edvin/testpilot/internal/model"
)

// AdhocSequenceRunner executes an unsaved step sequence. Satisfied by
// runner.AdhocRunner.
type AdhocSequenceRunner interface {
	Run(ctx context.Context, url string, steps []model.Step, elements map[string]string, engine string, headless bool) (model.TestResult, error)
}

type Adhoc struct {
	runner AdhocSequenceRunner
}

func NewAdhoc(adhocRunner AdhocSequenceRunner) *Adhoc {
	return &Adhoc{runner: adhocRunner}
}

// Run executes the sequence synchronously and returns the per-step
// results. Nothing is persisted.
func (h *Adhoc) Run(w http.ResponseWriter, r *http.Request) {
	var req request.AdhocRun
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	headless := true
	if req.Headless != nil {
		headless = *req.Headless
	}

	result, err := h.runner.Run(r.Context(), req.URL, req.Steps, req.Elements, req.Engine, headless)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}
