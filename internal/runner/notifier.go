package runner

import (
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/model"
)

// LogNotifier is the default reporting sink: it logs terminal
// execution records for downstream collection.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) ExecutionCompleted(exec *model.Execution) {
	n.logger.Info().
		Str("execution_id", exec.ID).
		Str("plan_id", exec.PlanID).
		Str("status", exec.Status).
		Str("trigger", exec.Trigger).
		Int("tests", len(exec.Results)).
		Msg("execution record available for reporting")
}
