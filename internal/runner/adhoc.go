package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/healing"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/screenshot"
)

// AdhocRunner executes an unsaved UI step sequence against a pooled
// session. Results are returned to the caller and never persisted, so
// self-healing runs without the locator side channel.
type AdhocRunner struct {
	pool   *browser.Pool
	tests  *TestRunner
	logger zerolog.Logger
}

func NewAdhocRunner(pool *browser.Pool, healer healing.Resolver, shots screenshot.Store, logger zerolog.Logger) *AdhocRunner {
	steps := NewStepExecutor(healer, nil, shots, logger)
	return &AdhocRunner{
		pool:   pool,
		tests:  NewTestRunner(steps, logger),
		logger: logger.With().Str("component", "adhoc-runner").Logger(),
	}
}

// Run executes the sequence. Steps referencing a named element have
// their locator resolved from the provided elements map.
func (r *AdhocRunner) Run(ctx context.Context, url string, steps []model.Step, elements map[string]string, engine string, headless bool) (model.TestResult, error) {
	if engine == "" {
		engine = "chromium"
		headless = true
	}

	resolved := make([]model.Step, len(steps))
	copy(resolved, steps)
	for i, step := range resolved {
		if step.Locator == "" && step.ElementID != "" {
			locator, ok := elements[step.ElementID]
			if !ok {
				return model.TestResult{}, fmt.Errorf("step %d references unknown element %q", i, step.ElementID)
			}
			resolved[i].Locator = locator
		}
	}

	handle, err := r.pool.Acquire(ctx, engine, headless)
	if err != nil {
		return model.TestResult{}, fmt.Errorf("acquire session: %w", err)
	}
	defer r.pool.Release(handle)

	test := &model.Test{
		ID:       "adhoc-" + uuid.NewString(),
		Name:     "adhoc sequence",
		Type:     model.TestTypeUI,
		StartURL: url,
		Steps:    resolved,
	}

	return r.tests.Run(ctx, test, handle, test.ID), nil
}
