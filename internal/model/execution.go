package model

import "time"

// Execution is the persisted outcome of one run of a plan. Results are
// written progressively while the run is in flight; once the status is
// terminal the record is never mutated again.
type Execution struct {
	ID          string       `json:"id"`
	PlanID      string       `json:"plan_id"`
	ScheduleID  *string      `json:"schedule_id,omitempty"`
	Status      string       `json:"status"`
	Trigger     string       `json:"trigger"`
	TriggeredBy string       `json:"triggered_by,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Results     []TestResult `json:"results"`
}

// TestResult is the outcome of one member test within an execution.
type TestResult struct {
	TestID     string       `json:"test_id"`
	TestName   string       `json:"test_name"`
	Type       string       `json:"type"`
	Success    bool         `json:"success"`
	Status     string       `json:"status"`
	Steps      []StepResult `json:"steps,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	// Screenshot references the last capture taken for a UI test.
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StepResult is the outcome of one step. A step that never ran is
// absent from the result list rather than recorded as skipped.
type StepResult struct {
	Action     string `json:"action"`
	Locator    string `json:"locator,omitempty"`
	Value      string `json:"value,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Healed     bool   `json:"healed,omitempty"`
	// RootCause carries the original failure text when healing kicked in.
	RootCause string `json:"root_cause,omitempty"`
}
