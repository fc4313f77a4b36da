package browser

import (
	"time"
)

// Handle is one open automation session: a page plus bookkeeping. The
// pool hands a Handle to exactly one caller at a time.
type Handle struct {
	ID       string
	Page     Page
	Engine   string
	Headless bool

	busy       bool
	lastUsedAt time.Time
}

// LastUsedAt reports when the handle was last released.
func (h *Handle) LastUsedAt() time.Time {
	return h.lastUsedAt
}

// Busy reports whether the handle is currently held by a caller.
func (h *Handle) Busy() bool {
	return h.busy
}
