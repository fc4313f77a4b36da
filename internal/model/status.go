package model

// Execution status constants.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Trigger source constants.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Schedule retry policy constants.
const (
	RetryPolicyNone = "none"
	RetryPolicyOnce = "retry-once"
	RetryPolicyN    = "retry-n"
)

// IsTerminalStatus reports whether an execution status is terminal.
// A terminal status is never mutated again.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusPassed, StatusFailed, StatusPartial, StatusError:
		return true
	}
	return false
}
