package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/metrics"
	"github.com/edvin/testpilot/internal/model"
)

// PlanStore resolves plan definitions and their ordered member tests.
type PlanStore interface {
	GetByID(ctx context.Context, id string) (*model.Plan, error)
	ListTests(ctx context.Context, planID string) ([]model.Test, error)
}

// ExecutionStore persists execution records, progressively while a run
// is in flight and once more with the terminal status.
type ExecutionStore interface {
	Create(ctx context.Context, exec *model.Execution) error
	MarkRunning(ctx context.Context, id string) error
	UpdateResults(ctx context.Context, id string, results []model.TestResult) error
	Complete(ctx context.Context, id, status string, completedAt time.Time, results []model.TestResult) error
}

// Notifier receives terminal execution records for downstream report
// generation. Fire-and-forget.
type Notifier interface {
	ExecutionCompleted(exec *model.Execution)
}

// RunOptions carries the trigger context and environment/browser
// overrides for one plan execution.
type RunOptions struct {
	ScheduleID  *string
	Trigger     string
	TriggeredBy string
	Engine      string
	Headless    bool
	Environment *string
}

// Orchestrator runs a plan's member tests sequentially, aggregates the
// plan-level verdict, and persists progressive state. Multiple plan
// executions run concurrently, each owning its own session handle.
type Orchestrator struct {
	plans    PlanStore
	execs    ExecutionStore
	pool     *browser.Pool
	ui       *TestRunner
	api      *APIRunner
	notifier Notifier
	logger   zerolog.Logger
}

func NewOrchestrator(plans PlanStore, execs ExecutionStore, pool *browser.Pool, ui *TestRunner, api *APIRunner, notifier Notifier, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		plans:    plans,
		execs:    execs,
		pool:     pool,
		ui:       ui,
		api:      api,
		notifier: notifier,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes the plan and returns the execution record. A missing
// plan fails fast with no record created. Persistence failures along
// the way are logged; the best-effort in-memory record is still
// returned so the outcome is never lost.
func (o *Orchestrator) Run(ctx context.Context, planID string, opts RunOptions) (*model.Execution, error) {
	plan, err := o.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if opts.Trigger == "" {
		opts.Trigger = model.TriggerManual
	}
	if opts.Engine == "" {
		opts.Engine = "chromium"
		opts.Headless = true
	}

	exec := &model.Execution{
		ID:          uuid.NewString(),
		PlanID:      plan.ID,
		ScheduleID:  opts.ScheduleID,
		Status:      model.StatusPending,
		Trigger:     opts.Trigger,
		TriggeredBy: opts.TriggeredBy,
		StartedAt:   time.Now(),
		Results:     []model.TestResult{},
	}

	logger := o.logger.With().Str("execution_id", exec.ID).Str("plan_id", plan.ID).Logger()

	// The record exists before any member test runs so partial
	// progress is always observable.
	if err := o.execs.Create(ctx, exec); err != nil {
		logger.Error().Err(err).Msg("failed to create execution record")
	}
	exec.Status = model.StatusRunning
	if err := o.execs.MarkRunning(ctx, exec.ID); err != nil {
		logger.Error().Err(err).Msg("failed to mark execution running")
	}

	tests, err := o.plans.ListTests(ctx, plan.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve plan tests")
		o.complete(ctx, exec, model.StatusError, logger)
		return exec, nil
	}
	if len(tests) == 0 {
		logger.Warn().Msg("plan has no member tests, resolving as passed")
	}

	var handle *browser.Handle
	defer func() {
		// Cleanup runs on every exit path; the pool decides between
		// reuse and eviction.
		if handle != nil {
			o.pool.Release(handle)
		}
	}()

	for _, test := range tests {
		var result model.TestResult

		switch test.Type {
		case model.TestTypeAPI:
			result = o.api.Run(ctx, &test)

		case model.TestTypeUI:
			if handle == nil {
				h, err := o.pool.Acquire(ctx, opts.Engine, opts.Headless)
				if err != nil {
					logger.Error().Err(err).Str("test_id", test.ID).Msg("session acquisition failed")
					result = model.TestResult{
						TestID:   test.ID,
						TestName: test.Name,
						Type:     model.TestTypeUI,
						Status:   model.StatusError,
						Error:    err.Error(),
					}
					exec.Results = append(exec.Results, result)
					o.persistProgress(ctx, exec, logger)
					continue
				}
				handle = h
			}
			result = o.ui.Run(ctx, &test, handle, exec.ID)

		default:
			result = model.TestResult{
				TestID:   test.ID,
				TestName: test.Name,
				Type:     test.Type,
				Status:   model.StatusError,
				Error:    "unknown test type " + test.Type,
			}
		}

		exec.Results = append(exec.Results, result)
		o.persistProgress(ctx, exec, logger)
	}

	status := AggregateStatus(exec.Results)
	o.complete(ctx, exec, status, logger)
	return exec, nil
}

// AggregateStatus computes the plan-level verdict: passed iff every
// test succeeded, failed iff every test failed or errored, partial for
// any mix. An empty result set resolves to passed.
func AggregateStatus(results []model.TestResult) string {
	if len(results) == 0 {
		return model.StatusPassed
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	switch succeeded {
	case len(results):
		return model.StatusPassed
	case 0:
		return model.StatusFailed
	}
	return model.StatusPartial
}

// persistProgress writes the in-flight result list. Incremental
// visibility only: failure is logged, never aborts subsequent tests.
func (o *Orchestrator) persistProgress(ctx context.Context, exec *model.Execution, logger zerolog.Logger) {
	if err := o.execs.UpdateResults(ctx, exec.ID, exec.Results); err != nil {
		logger.Error().Err(err).Msg("failed to persist execution progress")
	}
}

func (o *Orchestrator) complete(ctx context.Context, exec *model.Execution, status string, logger zerolog.Logger) {
	now := time.Now()
	exec.Status = status
	exec.CompletedAt = &now

	if err := o.execs.Complete(ctx, exec.ID, status, now, exec.Results); err != nil {
		logger.Error().Err(err).Msg("failed to persist terminal execution record")
	}

	metrics.ExecutionsTotal.WithLabelValues(status, exec.Trigger).Inc()
	metrics.ExecutionDuration.Observe(now.Sub(exec.StartedAt).Seconds())
	logger.Info().
		Str("status", status).
		Int("tests", len(exec.Results)).
		Dur("duration", now.Sub(exec.StartedAt)).
		Msg("plan execution completed")

	if o.notifier != nil {
		go o.notifier.ExecutionCompleted(exec)
	}
}
