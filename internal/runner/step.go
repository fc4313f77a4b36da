package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/healing"
	"github.com/edvin/testpilot/internal/metrics"
	"github.com/edvin/testpilot/internal/model"
	"github.com/edvin/testpilot/internal/screenshot"
)

// LocatorStore persists locators repaired by self-healing so the next
// run uses the fix directly. Writes are a side channel: failures are
// swallowed and never affect the step's own outcome.
type LocatorStore interface {
	UpdateStepLocator(ctx context.Context, testID string, stepIndex int, locator string) error
	UpdateElementLocator(ctx context.Context, elementID, locator string) error
}

// StepMeta identifies where a step lives, for healing persistence and
// screenshot naming.
type StepMeta struct {
	TestID      string
	StepIndex   int
	ExecutionID string
}

// StepExecutor runs one atomic action against a held session page.
type StepExecutor struct {
	healer   healing.Resolver
	locators LocatorStore
	shots    screenshot.Store
	logger   zerolog.Logger
}

func NewStepExecutor(healer healing.Resolver, locators LocatorStore, shots screenshot.Store, logger zerolog.Logger) *StepExecutor {
	if healer == nil {
		healer = healing.NoopResolver{}
	}
	return &StepExecutor{
		healer:   healer,
		locators: locators,
		shots:    shots,
		logger:   logger.With().Str("component", "step-executor").Logger(),
	}
}

// Execute runs the step and returns its structured outcome. Every
// failing step captures a screenshot best-effort.
func (e *StepExecutor) Execute(ctx context.Context, page browser.Page, step model.Step, meta StepMeta) model.StepResult {
	result := model.StepResult{
		Action:  step.Action,
		Locator: step.Locator,
		Value:   step.Value,
		Status:  model.StatusPassed,
	}

	kind, err := ParseAction(step.Action)
	if err != nil {
		result.Status = model.StatusFailed
		result.Error = fmt.Sprintf("Unsupported action: %s", step.Action)
		result.Screenshot = e.Capture(ctx, page, meta)
		return result
	}

	detail, err := e.perform(ctx, page, kind, step.Locator, step.Value)
	result.Detail = detail

	if err != nil && kind.interacts() {
		if healed, locator := e.heal(ctx, page, kind, step, meta, err); healed {
			result.Healed = true
			result.RootCause = err.Error()
			result.Locator = locator
			result.Detail = fmt.Sprintf("locator healed: %s -> %s", step.Locator, locator)
			metrics.StepsHealed.Inc()
			return result
		}
	}

	if err != nil {
		result.Status = model.StatusFailed
		result.Error = err.Error()
		result.Screenshot = e.Capture(ctx, page, meta)
	}
	return result
}

// perform dispatches one action. The returned detail string is
// human-readable context for the report.
func (e *StepExecutor) perform(ctx context.Context, page browser.Page, kind ActionKind, locator, value string) (string, error) {
	switch kind {
	case ActionClick:
		return "", page.Click(ctx, locator)

	case ActionHover:
		return "", page.Hover(ctx, locator)

	case ActionInput:
		return "", page.Fill(ctx, locator, value)

	case ActionSelect:
		return "", page.SelectOption(ctx, locator, value)

	case ActionScroll:
		return "", page.Scroll(ctx, locator)

	case ActionWait:
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds < 0 {
			return "", fmt.Errorf("invalid wait duration %q", value)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(seconds) * time.Second):
		}
		return fmt.Sprintf("waited %ds", seconds), nil

	case ActionAssert:
		count, err := page.Count(ctx, locator)
		if err != nil {
			return "", fmt.Errorf("count elements for %q: %w", locator, err)
		}
		if count == 0 {
			return "", fmt.Errorf("element %q not found", locator)
		}
		return fmt.Sprintf("found %d element(s)", count), nil

	case ActionAssertTextContains:
		// Zero elements is a failing measurement, not an execution
		// error.
		count, err := page.Count(ctx, locator)
		if err != nil {
			return "", fmt.Errorf("count elements for %q: %w", locator, err)
		}
		if count == 0 {
			return "", fmt.Errorf("element %q not found for text assertion", locator)
		}
		text, err := page.Text(ctx, locator)
		if err != nil {
			return "", fmt.Errorf("read text of %q: %w", locator, err)
		}
		if !strings.Contains(text, value) {
			return "", fmt.Errorf("text of %q does not contain %q (got %q)", locator, value, truncate(text, 200))
		}
		return fmt.Sprintf("text contains %q", value), nil

	case ActionAssertElementCount:
		count, err := page.Count(ctx, locator)
		if err != nil {
			return "", fmt.Errorf("count elements for %q: %w", locator, err)
		}
		ok, detail, err := evalCountExpr(value, count)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("element count assertion on %q failed: %s", locator, detail)
		}
		return detail, nil
	}

	return "", fmt.Errorf("unsupported action kind %d", kind)
}

// heal asks the resolver for a replacement locator and retries the same
// action once against it. On success the fix is persisted to the test
// definition (and the shared element, when the step references one);
// persistence failures are logged and swallowed.
func (e *StepExecutor) heal(ctx context.Context, page browser.Page, kind ActionKind, step model.Step, meta StepMeta, cause error) (bool, string) {
	snapshot, err := page.Content(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("page snapshot for healing failed")
		snapshot = ""
	}

	candidate, err := e.healer.Propose(ctx, step.Locator, snapshot, cause.Error())
	if err != nil {
		e.logger.Warn().Err(err).Str("locator", step.Locator).Msg("healing resolver failed")
		return false, ""
	}
	if candidate == "" || candidate == step.Locator {
		return false, ""
	}

	if _, err := e.perform(ctx, page, kind, candidate, step.Value); err != nil {
		e.logger.Debug().Err(err).Str("candidate", candidate).Msg("healed locator retry failed")
		return false, ""
	}

	e.logger.Info().
		Str("test_id", meta.TestID).
		Int("step", meta.StepIndex).
		Str("old", step.Locator).
		Str("new", candidate).
		Msg("step recovered via locator self-healing")

	if e.locators != nil {
		if err := e.locators.UpdateStepLocator(ctx, meta.TestID, meta.StepIndex, candidate); err != nil {
			e.logger.Warn().Err(err).Str("test_id", meta.TestID).Msg("failed to persist healed step locator")
		}
		if step.ElementID != "" {
			if err := e.locators.UpdateElementLocator(ctx, step.ElementID, candidate); err != nil {
				e.logger.Warn().Err(err).Str("element_id", step.ElementID).Msg("failed to persist healed element locator")
			}
		}
	}

	return true, candidate
}

// Capture takes a best-effort screenshot. Failure to screenshot is
// swallowed, never escalated.
func (e *StepExecutor) Capture(ctx context.Context, page browser.Page, meta StepMeta) string {
	if e.shots == nil {
		return ""
	}
	data, err := page.Screenshot(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("screenshot failed")
		return ""
	}
	name := fmt.Sprintf("%s-step-%d", meta.TestID, meta.StepIndex)
	ref, err := e.shots.Save(ctx, meta.ExecutionID, name, data)
	if err != nil {
		e.logger.Debug().Err(err).Msg("screenshot upload failed")
		return ""
	}
	return ref
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
