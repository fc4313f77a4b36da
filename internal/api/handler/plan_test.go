package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/testpilot/internal/core"
	"github.com/edvin/testpilot/internal/model"
)

func TestPlanRun_NotFound(t *testing.T) {
	h := NewPlan(&fakePlanRunner{err: core.ErrPlanNotFound})
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/plans/missing/run", nil), "planID", "missing")

	h.Run(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanRun_ReturnsExecution(t *testing.T) {
	planRunner := &fakePlanRunner{exec: &model.Execution{ID: "exec-1", PlanID: "plan-1", Status: model.StatusPassed}}
	h := NewPlan(planRunner)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/plans/plan-1/run", nil), "planID", "plan-1")

	h.Run(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var exec model.Execution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exec))
	assert.Equal(t, model.StatusPassed, exec.Status)

	// Manual trigger with headless default.
	require.Len(t, planRunner.opts, 1)
	assert.Equal(t, model.TriggerManual, planRunner.opts[0].Trigger)
	assert.True(t, planRunner.opts[0].Headless)
}

func TestPlanRun_BrowserOverrides(t *testing.T) {
	planRunner := &fakePlanRunner{exec: &model.Execution{ID: "exec-1", Status: model.StatusPassed}}
	h := NewPlan(planRunner)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/plans/plan-1/run", map[string]any{
		"engine":       "firefox",
		"headless":     false,
		"triggered_by": "user-7",
	}), "planID", "plan-1")

	h.Run(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, planRunner.opts, 1)
	assert.Equal(t, "firefox", planRunner.opts[0].Engine)
	assert.False(t, planRunner.opts[0].Headless)
	assert.Equal(t, "user-7", planRunner.opts[0].TriggeredBy)
}

func TestPlanRun_RejectsUnknownEngine(t *testing.T) {
	h := NewPlan(&fakePlanRunner{})
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/plans/plan-1/run", map[string]any{
		"engine": "netscape",
	}), "planID", "plan-1")

	h.Run(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
