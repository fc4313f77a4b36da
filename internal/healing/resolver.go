// Package healing proposes replacement locators for UI elements the
// automation layer can no longer find.
package healing

import "context"

// Resolver proposes a replacement locator for one that failed. An
// empty candidate means the resolver has nothing to offer; the step
// then fails normally.
type Resolver interface {
	Propose(ctx context.Context, locator, pageSnapshot, errorText string) (string, error)
}

// NoopResolver never proposes anything. Used when healing is disabled.
type NoopResolver struct{}

func (NoopResolver) Propose(ctx context.Context, locator, pageSnapshot, errorText string) (string, error) {
	return "", nil
}
