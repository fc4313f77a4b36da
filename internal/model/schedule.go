package model

import "time"

// Schedule binds a recurrence rule to one plan.
//
// Frequency is one of: "daily", "weekly", "monthly", "once",
// "cron:<expr>" (standard 5-field expression), or
// "every_<N>_minutes" / "every_<N>_hours" / "every_<N>_days".
// For the fixed-time frequencies the wall-clock components are derived
// from NextRunAt.
type Schedule struct {
	ID          string    `json:"id"`
	PlanID      string    `json:"plan_id"`
	Frequency   string    `json:"frequency"`
	NextRunAt   time.Time `json:"next_run_at"`
	IsActive    bool      `json:"is_active"`
	RetryPolicy string    `json:"retry_policy"`
	// RetryCount is the retry budget when RetryPolicy is "retry-n".
	RetryCount  int       `json:"retry_count"`
	Environment *string   `json:"environment,omitempty"`
	BrowserSet  *string   `json:"browser_set,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Retries returns the number of re-runs a scheduled failure is allowed.
func (s *Schedule) Retries() int {
	switch s.RetryPolicy {
	case RetryPolicyOnce:
		return 1
	case RetryPolicyN:
		if s.RetryCount > 0 {
			return s.RetryCount
		}
		return 0
	}
	return 0
}
