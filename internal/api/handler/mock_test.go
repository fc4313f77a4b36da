package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/recorder"
	"github.com/edvin/testpilot/internal/runner"
)

// handlerMockDB implements core.DB for handler tests.
type handlerMockDB struct {
	mock.Mock
}

func (m *handlerMockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *handlerMockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *handlerMockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// handlerMockRow implements pgx.Row.
type handlerMockRow struct {
	scanFunc func(dest ...any) error
}

func (m *handlerMockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// fakeRegistrar records arm/disarm calls.
type fakeRegistrar struct {
	mu       sync.Mutex
	armed    []string
	disarmed []string
	rearmed  []string
	armErr   error
}

func (f *fakeRegistrar) Arm(sched *model.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.armErr != nil {
		return f.armErr
	}
	f.armed = append(f.armed, sched.ID)
	return nil
}

func (f *fakeRegistrar) Disarm(scheduleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disarmed = append(f.disarmed, scheduleID)
}

func (f *fakeRegistrar) Rearm(sched *model.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rearmed = append(f.rearmed, sched.ID)
	return nil
}

// fakePlanRunner returns a canned execution record.
type fakePlanRunner struct {
	exec *model.Execution
	err  error
	opts []runner.RunOptions
}

func (f *fakePlanRunner) Run(ctx context.Context, planID string, opts runner.RunOptions) (*model.Execution, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.exec, nil
}

// fakeRecordingController is an in-memory RecordingController.
type fakeRecordingController struct {
	mu       sync.Mutex
	actions  map[string][]model.RecordedAction
	startErr error
	nextID   string
}

func newFakeRecordingController() *fakeRecordingController {
	return &fakeRecordingController{actions: map[string][]model.RecordedAction{}, nextID: "rec-1"}
}

func (f *fakeRecordingController) Start(ctx context.Context, url, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.actions[f.nextID] = []model.RecordedAction{}
	return f.nextID, nil
}

func (f *fakeRecordingController) Poll(sessionID string) ([]model.RecordedAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions, ok := f.actions[sessionID]
	if !ok {
		return nil, recorder.ErrSessionNotFound
	}
	return actions, nil
}

func (f *fakeRecordingController) Stop(sessionID string) ([]model.RecordedAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions, ok := f.actions[sessionID]
	if !ok {
		return nil, recorder.ErrSessionNotFound
	}
	delete(f.actions, sessionID)
	return actions, nil
}

func (f *fakeRecordingController) AppendAction(sessionID string, action model.RecordedAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.actions[sessionID]; !ok {
		return recorder.ErrSessionNotFound
	}
	f.actions[sessionID] = append(f.actions[sessionID], action)
	return nil
}

var errUnknownElement = errors.New(`step 0 references unknown element "el-1"`)

// fakeAdhocRunner records the last run request.
type fakeAdhocRunner struct {
	result model.TestResult
	err    error
	url    string
	steps  []model.Step
}

func (f *fakeAdhocRunner) Run(ctx context.Context, url string, steps []model.Step, elements map[string]string, engine string, headless bool) (model.TestResult, error) {
	f.url = url
	f.steps = steps
	if f.err != nil {
		return model.TestResult{}, f.err
	}
	return f.result, nil
}
