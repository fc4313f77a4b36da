package request

import "github.com/edvin/testpilot/internal/model"

// RunPlan is the optional body of POST /plans/{planID}/run.
type RunPlan struct {
	TriggeredBy string  `json:"triggered_by"`
	Engine      string  `json:"engine" validate:"omitempty,oneof=chromium firefox webkit"`
	Headless    *bool   `json:"headless"`
	Environment *string `json:"environment"`
}

// AdhocRun is the body of POST /runs/adhoc: an unsaved step sequence
// executed once, with optional named-element locator bindings.
type AdhocRun struct {
	URL      string            `json:"url" validate:"required,url"`
	Steps    []model.Step      `json:"steps" validate:"required,min=1"`
	Elements map[string]string `json:"elements"`
	Engine   string            `json:"engine" validate:"omitempty,oneof=chromium firefox webkit"`
	Headless *bool             `json:"headless"`
}

// StartRecording is the body of POST /recordings.
type StartRecording struct {
	URL    string `json:"url" validate:"required,url"`
	UserID string `json:"user_id" validate:"required"`
}
