package model

import "time"

// Element is a shared named locator. Steps may reference an element so
// a self-healed locator propagates to every test that uses it.
type Element struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Locator   string    `json:"locator"`
	UpdatedAt time.Time `json:"updated_at"`
}
