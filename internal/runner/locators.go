package runner

import (
	"context"

	"github.com/edvin/testpilot/internal/core"
)

// StoreLocators adapts the store services to the LocatorStore side
// channel used by self-healing.
type StoreLocators struct {
	Tests    *core.TestService
	Elements *core.ElementService
}

func (s *StoreLocators) UpdateStepLocator(ctx context.Context, testID string, stepIndex int, locator string) error {
	return s.Tests.UpdateStepLocator(ctx, testID, stepIndex, locator)
}

func (s *StoreLocators) UpdateElementLocator(ctx context.Context, elementID, locator string) error {
	return s.Elements.UpdateLocator(ctx, elementID, locator)
}
