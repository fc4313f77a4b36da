package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/model"
)

// TestRunner executes one UI test's ordered steps against a held
// session handle, stopping at the first failing step.
type TestRunner struct {
	steps  *StepExecutor
	logger zerolog.Logger
}

func NewTestRunner(steps *StepExecutor, logger zerolog.Logger) *TestRunner {
	return &TestRunner{
		steps:  steps,
		logger: logger.With().Str("component", "test-runner").Logger(),
	}
}

// Run executes the test on the given handle. An implicit initial
// navigation runs first when the test declares a URL; its failure
// aborts the whole test before any declared step. Steps after the
// first failure are omitted from the result; absence is the skip
// signal.
func (r *TestRunner) Run(ctx context.Context, test *model.Test, handle *browser.Handle, executionID string) model.TestResult {
	result := model.TestResult{
		TestID:   test.ID,
		TestName: test.Name,
		Type:     model.TestTypeUI,
		Status:   model.StatusPassed,
		Success:  true,
	}
	start := time.Now()
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	page := handle.Page

	if test.StartURL != "" {
		navResult := model.StepResult{
			Action: "navigate",
			Value:  test.StartURL,
			Status: model.StatusPassed,
			Detail: fmt.Sprintf("navigate to %s", test.StartURL),
		}
		if err := page.Navigate(ctx, test.StartURL); err != nil {
			navResult.Status = model.StatusFailed
			navResult.Error = err.Error()
			navResult.Screenshot = r.steps.Capture(ctx, page, StepMeta{TestID: test.ID, StepIndex: -1, ExecutionID: executionID})
			result.Steps = append(result.Steps, navResult)
			result.Success = false
			result.Status = model.StatusFailed
			result.Error = fmt.Sprintf("navigation to %s failed: %s", test.StartURL, err)
			result.Screenshot = navResult.Screenshot
			return result
		}
		result.Steps = append(result.Steps, navResult)
	}

	for i, step := range test.Steps {
		stepResult := r.steps.Execute(ctx, page, step, StepMeta{
			TestID:      test.ID,
			StepIndex:   i,
			ExecutionID: executionID,
		})
		result.Steps = append(result.Steps, stepResult)
		if stepResult.Screenshot != "" {
			result.Screenshot = stepResult.Screenshot
		}

		if stepResult.Status == model.StatusFailed {
			result.Success = false
			result.Status = model.StatusFailed
			result.Error = stepResult.Error
			r.logger.Debug().
				Str("test_id", test.ID).
				Int("step", i).
				Str("error", stepResult.Error).
				Msg("test stopped at failing step")
			break
		}
	}

	return result
}
