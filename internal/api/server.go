package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/api/handler"
	mw "github.com/edvin/testpilot/internal/api/middleware"
	"github.com/edvin/testpilot/internal/core"
	"github.com/edvin/testpilot/internal/recorder"
	"github.com/edvin/testpilot/internal/runner"
	"github.com/edvin/testpilot/internal/scheduler"
)

type Server struct {
	router       chi.Router
	logger       zerolog.Logger
	services     *core.Services
	pool         *pgxpool.Pool
	orchestrator *runner.Orchestrator
	registry     *scheduler.Registry
	recordings   *recorder.Controller
	adhoc        *runner.AdhocRunner
}

func NewServer(logger zerolog.Logger, db *pgxpool.Pool, services *core.Services, orchestrator *runner.Orchestrator, registry *scheduler.Registry, recordings *recorder.Controller, adhoc *runner.AdhocRunner) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger,
		services:     services,
		pool:         db,
		orchestrator: orchestrator,
		registry:     registry,
		recordings:   recordings,
		adhoc:        adhoc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Plans and executions
		plan := handler.NewPlan(s.orchestrator)
		r.Post("/plans/{planID}/run", plan.Run)

		execution := handler.NewExecution(s.services.Execution)
		r.Get("/plans/{planID}/executions", execution.ListByPlan)
		r.Get("/executions/{executionID}", execution.Get)

		// Schedules
		schedule := handler.NewSchedule(s.services.Schedule, s.registry)
		r.Get("/schedules", schedule.List)
		r.Post("/schedules", schedule.Create)
		r.Get("/schedules/{scheduleID}", schedule.Get)
		r.Put("/schedules/{scheduleID}", schedule.Update)
		r.Delete("/schedules/{scheduleID}", schedule.Delete)

		// Recording sessions
		recording := handler.NewRecording(s.recordings)
		r.Post("/recordings", recording.Start)
		r.Get("/recordings/{recordingID}/actions", recording.Actions)
		r.Delete("/recordings/{recordingID}", recording.Stop)
		r.Get("/recordings/{recordingID}/ws", recording.Ingest)

		// Ad-hoc runs
		adhoc := handler.NewAdhoc(s.adhoc)
		r.Post("/runs/adhoc", adhoc.Run)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
