package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/testpilot/internal/config"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/runner"
)

type fakeScheduleStore struct {
	mu        sync.Mutex
	active    map[string]bool
	schedules []model.Schedule
}

func newFakeScheduleStore(activeIDs ...string) *fakeScheduleStore {
	active := map[string]bool{}
	for _, id := range activeIDs {
		active[id] = true
	}
	return &fakeScheduleStore{active: active}
}

func (s *fakeScheduleStore) ListActive(ctx context.Context) ([]model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules, nil
}

func (s *fakeScheduleStore) DeactivateIfActive(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] {
		s.active[id] = false
		return true, nil
	}
	return false, nil
}

func (s *fakeScheduleStore) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id]
}

type fakePlanRunner struct {
	mu       sync.Mutex
	runs     []runner.RunOptions
	statuses []string // consumed per run; last value repeats
}

func (r *fakePlanRunner) Run(ctx context.Context, planID string, opts runner.RunOptions) (*model.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, opts)

	status := model.StatusPassed
	if len(r.statuses) > 0 {
		status = r.statuses[0]
		if len(r.statuses) > 1 {
			r.statuses = r.statuses[1:]
		}
	}
	return &model.Execution{ID: "exec-1", PlanID: planID, Status: status}, nil
}

func (r *fakePlanRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func newTestRegistry(store ScheduleStore, planRunner PlanRunner) *Registry {
	r := NewRegistry(store, planRunner, nil, zerolog.Nop())
	r.retryBackoff = time.Millisecond
	return r
}

func onceSchedule(id string, at time.Time) *model.Schedule {
	return &model.Schedule{
		ID:          id,
		PlanID:      "plan-1",
		Frequency:   FrequencyOnce,
		NextRunAt:   at,
		IsActive:    true,
		RetryPolicy: model.RetryPolicyNone,
	}
}

func TestCronSpec_DailyDerivesTimeOfDay(t *testing.T) {
	for _, at := range []time.Time{
		time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 7, 45, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC),
	} {
		spec, err := CronSpec("daily", at)
		require.NoError(t, err)

		sched, err := cron.ParseStandard(spec)
		require.NoError(t, err)
		next := sched.Next(at.Add(time.Second))
		assert.Equal(t, at.Hour(), next.Hour(), "hour for %s", at)
		assert.Equal(t, at.Minute(), next.Minute(), "minute for %s", at)
	}
}

func TestCronSpec_Weekly(t *testing.T) {
	// 2026-08-23 is a Sunday.
	spec, err := CronSpec("weekly", time.Date(2026, 8, 23, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "30 9 * * 0", spec)
}

func TestCronSpec_Monthly(t *testing.T) {
	spec, err := CronSpec("monthly", time.Date(2026, 8, 23, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "30 9 23 * *", spec)
}

func TestCronSpec_EveryInterval(t *testing.T) {
	spec, err := CronSpec("every_15_minutes", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "@every 15m", spec)

	spec, err = CronSpec("every_6_hours", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "@every 6h", spec)

	spec, err = CronSpec("every_2_days", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "@every 48h", spec)
}

func TestCronSpec_CronPassthrough(t *testing.T) {
	spec, err := CronSpec("cron:*/5 * * * *", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", spec)

	_, err = CronSpec("cron:not a cron line", time.Time{})
	require.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestValidateFrequency(t *testing.T) {
	assert.NoError(t, ValidateFrequency("daily"))
	assert.NoError(t, ValidateFrequency("once"))
	assert.NoError(t, ValidateFrequency("every_10_minutes"))
	assert.ErrorIs(t, ValidateFrequency("fortnightly"), ErrInvalidFrequency)
	assert.ErrorIs(t, ValidateFrequency("every_0_minutes"), ErrInvalidFrequency)
}

func TestRegistry_OnceFiresExactlyOnce(t *testing.T) {
	store := newFakeScheduleStore("sched-1")
	planRunner := &fakePlanRunner{}
	r := newTestRegistry(store, planRunner)
	sched := onceSchedule("sched-1", time.Now())

	// Duplicate fires racing an explicit disarm: the store-side
	// check-and-set admits exactly one execution.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.fireOnce(*sched)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Disarm("sched-1")
	}()
	wg.Wait()

	assert.Equal(t, 1, planRunner.runCount())
	assert.False(t, store.isActive("sched-1"))
	assert.False(t, r.Armed("sched-1"))
}

func TestRegistry_OnceTimerFires(t *testing.T) {
	store := newFakeScheduleStore("sched-1")
	planRunner := &fakePlanRunner{}
	r := newTestRegistry(store, planRunner)

	require.NoError(t, r.Arm(onceSchedule("sched-1", time.Now().Add(5*time.Millisecond))))
	require.Eventually(t, func() bool { return planRunner.runCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, store.isActive("sched-1"))
	assert.False(t, r.Armed("sched-1"))

	opts := planRunner.runs[0]
	assert.Equal(t, model.TriggerScheduled, opts.Trigger)
	require.NotNil(t, opts.ScheduleID)
	assert.Equal(t, "sched-1", *opts.ScheduleID)
}

func TestRegistry_DisarmedOnceNeverFires(t *testing.T) {
	store := newFakeScheduleStore("sched-1")
	planRunner := &fakePlanRunner{}
	r := newTestRegistry(store, planRunner)

	require.NoError(t, r.Arm(onceSchedule("sched-1", time.Now().Add(time.Hour))))
	assert.True(t, r.Armed("sched-1"))
	r.Disarm("sched-1")
	r.Disarm("sched-1") // idempotent
	assert.False(t, r.Armed("sched-1"))
	assert.Equal(t, 0, planRunner.runCount())
}

func TestRegistry_ArmInvalidFrequency(t *testing.T) {
	r := newTestRegistry(newFakeScheduleStore(), &fakePlanRunner{})

	sched := &model.Schedule{ID: "sched-1", PlanID: "plan-1", Frequency: "sometimes", IsActive: true}
	err := r.Arm(sched)
	require.ErrorIs(t, err, ErrInvalidFrequency)
	assert.False(t, r.Armed("sched-1"))
}

func TestRegistry_ArmInactiveIsNoop(t *testing.T) {
	r := newTestRegistry(newFakeScheduleStore(), &fakePlanRunner{})

	sched := &model.Schedule{ID: "sched-1", PlanID: "plan-1", Frequency: "daily", IsActive: false}
	require.NoError(t, r.Arm(sched))
	assert.False(t, r.Armed("sched-1"))
}

func TestRegistry_RearmInactiveOnlyDisarms(t *testing.T) {
	r := newTestRegistry(newFakeScheduleStore(), &fakePlanRunner{})

	sched := &model.Schedule{ID: "sched-1", PlanID: "plan-1", Frequency: "daily", NextRunAt: time.Now(), IsActive: true}
	require.NoError(t, r.Arm(sched))
	assert.True(t, r.Armed("sched-1"))

	sched.IsActive = false
	require.NoError(t, r.Rearm(sched))
	assert.False(t, r.Armed("sched-1"))
}

func TestRegistry_RetryPolicy_RetryN(t *testing.T) {
	planRunner := &fakePlanRunner{statuses: []string{model.StatusFailed, model.StatusFailed, model.StatusFailed}}
	r := newTestRegistry(newFakeScheduleStore(), planRunner)

	r.execute(model.Schedule{
		ID: "sched-1", PlanID: "plan-1", Frequency: "daily",
		IsActive: true, RetryPolicy: model.RetryPolicyN, RetryCount: 2,
	})

	// Initial run plus two re-runs.
	assert.Equal(t, 3, planRunner.runCount())
}

func TestRegistry_RetryPolicy_RetryOnceStopsOnSuccess(t *testing.T) {
	planRunner := &fakePlanRunner{statuses: []string{model.StatusFailed, model.StatusPassed}}
	r := newTestRegistry(newFakeScheduleStore(), planRunner)

	r.execute(model.Schedule{
		ID: "sched-1", PlanID: "plan-1", Frequency: "daily",
		IsActive: true, RetryPolicy: model.RetryPolicyOnce,
	})

	assert.Equal(t, 2, planRunner.runCount())
}

func TestRegistry_NoRetryForManualPolicyNone(t *testing.T) {
	planRunner := &fakePlanRunner{statuses: []string{model.StatusFailed}}
	r := newTestRegistry(newFakeScheduleStore(), planRunner)

	r.execute(model.Schedule{
		ID: "sched-1", PlanID: "plan-1", Frequency: "daily",
		IsActive: true, RetryPolicy: model.RetryPolicyNone,
	})

	assert.Equal(t, 1, planRunner.runCount())
}

func TestRegistry_LoadAll(t *testing.T) {
	store := newFakeScheduleStore("sched-daily", "sched-elapsed", "sched-bad")
	store.schedules = []model.Schedule{
		{ID: "sched-daily", PlanID: "plan-1", Frequency: "daily", NextRunAt: time.Now(), IsActive: true},
		*onceSchedule("sched-elapsed", time.Now().Add(-time.Hour)),
		{ID: "sched-bad", PlanID: "plan-1", Frequency: "whenever", IsActive: true},
	}
	planRunner := &fakePlanRunner{}
	r := newTestRegistry(store, planRunner)

	require.NoError(t, r.LoadAll(context.Background()))

	assert.True(t, r.Armed("sched-daily"))
	// Elapsed once-schedules are deactivated without arming or firing.
	assert.False(t, r.Armed("sched-elapsed"))
	assert.False(t, store.isActive("sched-elapsed"))
	assert.Equal(t, 0, planRunner.runCount())
	// A malformed frequency disables only that one schedule.
	assert.False(t, r.Armed("sched-bad"))
}

func TestRegistry_BrowserSetOverride(t *testing.T) {
	planRunner := &fakePlanRunner{}
	r := NewRegistry(newFakeScheduleStore(), planRunner, map[string]config.BrowserSet{
		"firefox-headed": {Engine: "firefox", Headless: false},
	}, zerolog.Nop())

	set := "firefox-headed"
	r.execute(model.Schedule{
		ID: "sched-1", PlanID: "plan-1", Frequency: "daily",
		IsActive: true, BrowserSet: &set,
	})

	require.Equal(t, 1, planRunner.runCount())
	assert.Equal(t, "firefox", planRunner.runs[0].Engine)
	assert.False(t, planRunner.runs[0].Headless)
}
