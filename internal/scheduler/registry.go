package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/edvin/testpilot/internal/config"
	"github.com/edvin/testpilot/internal/metrics"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/runner"
)

// ScheduleStore is the slice of the schedule service the registry needs.
type ScheduleStore interface {
	ListActive(ctx context.Context) ([]model.Schedule, error)
	DeactivateIfActive(ctx context.Context, id string) (bool, error)
}

// PlanRunner starts a plan execution. Satisfied by runner.Orchestrator.
type PlanRunner interface {
	Run(ctx context.Context, planID string, opts runner.RunOptions) (*model.Execution, error)
}

type entry struct {
	cronID cron.EntryID
	timer  *time.Timer
	once   bool
}

// Registry owns the armed-timer set: one cron entry or one-shot timer
// per active schedule. All state is in-process; at boot LoadAll replays
// the durable store. Multi-process deployments need a single writer,
// the registry does not coordinate across nodes.
type Registry struct {
	store       ScheduleStore
	runner      PlanRunner
	browserSets map[string]config.BrowserSet
	cron        *cron.Cron
	logger      zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	retryBackoff time.Duration
}

func NewRegistry(store ScheduleStore, planRunner PlanRunner, browserSets map[string]config.BrowserSet, logger zerolog.Logger) *Registry {
	return &Registry{
		store:        store,
		runner:       planRunner,
		browserSets:  browserSets,
		cron:         cron.New(),
		logger:       logger.With().Str("component", "schedule-registry").Logger(),
		entries:      map[string]*entry{},
		retryBackoff: 30 * time.Second,
	}
}

// Start begins dispatching cron entries. One-shot timers fire whether
// or not Start has been called.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop disarms everything and stops the cron runner. In-flight
// executions are not interrupted.
func (r *Registry) Stop() {
	r.mu.Lock()
	for id, e := range r.entries {
		r.remove(id, e)
	}
	r.mu.Unlock()
	r.cron.Stop()
}

// LoadAll arms every active schedule from the store. A once-schedule
// whose fire time has already elapsed is deactivated without arming.
// Per-schedule arming failures are logged and skipped, never fatal.
func (r *Registry) LoadAll(ctx context.Context) error {
	schedules, err := r.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active schedules: %w", err)
	}

	now := time.Now()
	armed := 0
	for i := range schedules {
		sched := schedules[i]
		if sched.Frequency == FrequencyOnce && sched.NextRunAt.Before(now) {
			if _, err := r.store.DeactivateIfActive(ctx, sched.ID); err != nil {
				r.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("failed to deactivate elapsed once-schedule")
			} else {
				r.logger.Info().Str("schedule_id", sched.ID).Msg("once-schedule already elapsed, deactivated without arming")
			}
			continue
		}
		if err := r.Arm(&sched); err != nil {
			r.logger.Error().Err(err).Str("schedule_id", sched.ID).Str("frequency", sched.Frequency).Msg("failed to arm schedule")
			continue
		}
		armed++
	}

	r.logger.Info().Int("armed", armed).Int("total", len(schedules)).Msg("schedule registry loaded")
	return nil
}

// Arm registers the schedule's trigger. Arming an inactive schedule is
// a no-op; arming an already-armed schedule replaces its trigger.
func (r *Registry) Arm(sched *model.Schedule) error {
	if !sched.IsActive {
		return nil
	}

	cp := *sched

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[cp.ID]; ok {
		r.remove(cp.ID, existing)
	}

	if cp.Frequency == FrequencyOnce {
		delay := time.Until(cp.NextRunAt)
		if delay < 0 {
			delay = 0
		}
		r.entries[cp.ID] = &entry{
			once:  true,
			timer: time.AfterFunc(delay, func() { r.fireOnce(cp) }),
		}
		return nil
	}

	spec, err := CronSpec(cp.Frequency, cp.NextRunAt)
	if err != nil {
		return err
	}
	id, err := r.cron.AddFunc(spec, func() { r.execute(cp) })
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidFrequency, cp.Frequency, err)
	}
	r.entries[cp.ID] = &entry{cronID: id}
	return nil
}

// Disarm removes the schedule's trigger. Idempotent, and safe to call
// concurrently with a fire.
func (r *Registry) Disarm(scheduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[scheduleID]; ok {
		r.remove(scheduleID, e)
	}
}

// Rearm replaces the schedule's trigger with its current definition.
// An inactive schedule is only disarmed.
func (r *Registry) Rearm(sched *model.Schedule) error {
	r.Disarm(sched.ID)
	return r.Arm(sched)
}

// Armed reports whether the schedule currently has a trigger.
func (r *Registry) Armed(scheduleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[scheduleID]
	return ok
}

// remove must be called with the mutex held.
func (r *Registry) remove(scheduleID string, e *entry) {
	if e.once {
		e.timer.Stop()
	} else {
		r.cron.Remove(e.cronID)
	}
	delete(r.entries, scheduleID)
}

// fireOnce handles a once-schedule firing. The store-side check-and-set
// decides the race against a concurrent disarm or duplicate fire: only
// the caller that flips is_active runs the plan.
func (r *Registry) fireOnce(sched model.Schedule) {
	ctx := context.Background()

	won, err := r.store.DeactivateIfActive(ctx, sched.ID)
	r.Disarm(sched.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("once-schedule deactivation failed, skipping fire")
		return
	}
	if !won {
		r.logger.Debug().Str("schedule_id", sched.ID).Msg("once-schedule already deactivated, not firing")
		return
	}

	r.execute(sched)
}

// execute runs the plan for one fire and applies the schedule's retry
// policy to failed or errored scheduled executions.
func (r *Registry) execute(sched model.Schedule) {
	ctx := context.Background()
	logger := r.logger.With().Str("schedule_id", sched.ID).Str("plan_id", sched.PlanID).Logger()

	metrics.ScheduleFires.Inc()

	engine, headless := r.resolveBrowserSet(sched.BrowserSet)
	opts := runner.RunOptions{
		ScheduleID:  &sched.ID,
		Trigger:     model.TriggerScheduled,
		TriggeredBy: "scheduler",
		Engine:      engine,
		Headless:    headless,
		Environment: sched.Environment,
	}

	exec, err := r.runner.Run(ctx, sched.PlanID, opts)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled run failed to start")
		return
	}
	if exec.Status != model.StatusFailed && exec.Status != model.StatusError {
		return
	}

	retries := sched.Retries()
	if retries == 0 {
		return
	}

	backoff := retry.WithMaxRetries(uint64(retries-1), retry.NewConstant(r.retryBackoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		logger.Info().Int("attempt", attempt).Msg("re-running failed scheduled execution")
		exec, err := r.runner.Run(ctx, sched.PlanID, opts)
		if err != nil {
			return retry.RetryableError(err)
		}
		if exec.Status == model.StatusFailed || exec.Status == model.StatusError {
			return retry.RetryableError(fmt.Errorf("execution %s ended %s", exec.ID, exec.Status))
		}
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Int("attempts", attempt).Msg("retry budget exhausted")
	}
}

func (r *Registry) resolveBrowserSet(name *string) (string, bool) {
	if name != nil {
		if set, ok := r.browserSets[*name]; ok {
			return set.Engine, set.Headless
		}
		r.logger.Warn().Str("browser_set", *name).Msg("unknown browser set, using default")
	}
	return "chromium", true
}
