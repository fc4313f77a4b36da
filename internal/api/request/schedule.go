package request

import "time"

// CreateSchedule is the body of POST /schedules. The frequency string
// round-trips through validation before the schedule is persisted or
// armed.
type CreateSchedule struct {
	PlanID      string    `json:"plan_id" validate:"required"`
	Frequency   string    `json:"frequency" validate:"required,frequency"`
	NextRunAt   time.Time `json:"next_run_at" validate:"required"`
	RetryPolicy string    `json:"retry_policy" validate:"omitempty,oneof=none retry-once retry-n"`
	RetryCount  int       `json:"retry_count" validate:"gte=0"`
	Environment *string   `json:"environment"`
	BrowserSet  *string   `json:"browser_set"`
}

// UpdateSchedule is the body of PUT /schedules/{scheduleID}. Zero-value
// fields keep the stored value.
type UpdateSchedule struct {
	Frequency   string     `json:"frequency" validate:"omitempty,frequency"`
	NextRunAt   *time.Time `json:"next_run_at"`
	IsActive    *bool      `json:"is_active"`
	RetryPolicy string     `json:"retry_policy" validate:"omitempty,oneof=none retry-once retry-n"`
	RetryCount  *int       `json:"retry_count"`
	Environment *string    `json:"environment"`
	BrowserSet  *string    `json:"browser_set"`
}
