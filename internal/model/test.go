package model

import (
	"encoding/json"
	"time"
)

// Test type constants.
const (
	TestTypeUI  = "ui"
	TestTypeAPI = "api"
)

type Test struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartURL  string    `json:"start_url,omitempty"`
	Steps     []Step    `json:"steps,omitempty"`
	APISpec   *APISpec  `json:"api_spec,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Step is one atomic UI action within a test definition.
type Step struct {
	Action  string `json:"action"`
	Locator string `json:"locator,omitempty"`
	// Value carries the input text for input/select, the duration in
	// seconds for wait, the substring for assertTextContains, and the
	// comparison expression for assertElementCount.
	Value string `json:"value,omitempty"`
	// ElementID links the step's locator to a shared element record,
	// so self-healing fixes propagate to every test using it.
	ElementID string `json:"element_id,omitempty"`
}

// APISpec describes an HTTP request plus response assertions for an
// API-type test.
type APISpec struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       json.RawMessage   `json:"body,omitempty"`
	Assertions []APIAssertion    `json:"assertions,omitempty"`
}

// APIAssertion is a check against the HTTP response: expected status
// code and/or a substring the body must contain.
type APIAssertion struct {
	StatusCode   int    `json:"status_code,omitempty"`
	BodyContains string `json:"body_contains,omitempty"`
}
