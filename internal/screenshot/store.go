// Package screenshot persists step screenshots and returns opaque
// references recorded on step results. Saving is always best-effort:
// callers swallow errors rather than fail the step.
package screenshot

import "context"

type Store interface {
	// Save writes one PNG capture and returns a reference usable by
	// the reporting layer.
	Save(ctx context.Context, executionID, name string, data []byte) (string, error)
}
