package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edvin/testpilot/internal/api/request"
	"github.com/edvin/testpilot/internal/api/response"
	"github.com/edvin/testpilot/internal/core"
	"github.com/edvin/testpilot/internal/model"
)

// Registrar is the armed-timer side of the schedule lifecycle.
// Satisfied by scheduler.Registry.
type Registrar interface {
	Arm(sched *model.Schedule) error
	Disarm(scheduleID string)
	Rearm(sched *model.Schedule) error
}

type Schedule struct {
	svc      *core.ScheduleService
	registry Registrar
}

func NewSchedule(svc *core.ScheduleService, registry Registrar) *Schedule {
	return &Schedule{svc: svc, registry: registry}
}

func (h *Schedule) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	schedules, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nextCursor := ""
	if hasMore && len(schedules) > 0 {
		nextCursor = schedules[len(schedules)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, schedules, nextCursor, hasMore)
}

func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

// Create persists and arms a new schedule. The frequency is validated
// during decode, before anything is stored.
func (h *Schedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.RetryPolicy == "" {
		req.RetryPolicy = model.RetryPolicyNone
	}

	now := time.Now()
	sched := &model.Schedule{
		ID:          uuid.NewString(),
		PlanID:      req.PlanID,
		Frequency:   req.Frequency,
		NextRunAt:   req.NextRunAt,
		IsActive:    true,
		RetryPolicy: req.RetryPolicy,
		RetryCount:  req.RetryCount,
		Environment: req.Environment,
		BrowserSet:  req.BrowserSet,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.registry.Arm(sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, sched)
}

// Update rewrites the schedule and rearms it; an update that flips
// is_active to false only disarms.
func (h *Schedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, core.ErrScheduleNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Frequency != "" {
		sched.Frequency = req.Frequency
	}
	if req.NextRunAt != nil {
		sched.NextRunAt = *req.NextRunAt
	}
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}
	if req.RetryPolicy != "" {
		sched.RetryPolicy = req.RetryPolicy
	}
	if req.RetryCount != nil {
		sched.RetryCount = *req.RetryCount
	}
	if req.Environment != nil {
		sched.Environment = req.Environment
	}
	if req.BrowserSet != nil {
		sched.BrowserSet = req.BrowserSet
	}

	if err := h.svc.Update(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.registry.Rearm(sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

// Delete deactivates and disarms. Idempotent: deleting an unknown or
// already-inactive schedule succeeds.
func (h *Schedule) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.registry.Disarm(id)

	w.WriteHeader(http.StatusNoContent)
}
