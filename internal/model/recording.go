package model

import "time"

// RecordedAction is one user action observed during a recording session.
type RecordedAction struct {
	Action    string    `json:"action"`
	Locator   string    `json:"locator,omitempty"`
	Value     string    `json:"value,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
