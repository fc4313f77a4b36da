package browser

import "context"

// Driver launches browser automation sessions. The concrete protocol
// (CDP, WebDriver, a vendor API) lives behind this boundary.
type Driver interface {
	Launch(ctx context.Context, engine string, headless bool) (Page, error)
}

// Page is one live browser page plus its isolated context. A Page is
// exclusively owned by whichever caller currently holds its Handle.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, locator string) error
	Fill(ctx context.Context, locator, value string) error
	SelectOption(ctx context.Context, locator, value string) error
	Hover(ctx context.Context, locator string) error
	// Scroll scrolls the element into view, or the window when the
	// locator is empty.
	Scroll(ctx context.Context, locator string) error
	Count(ctx context.Context, locator string) (int, error)
	Text(ctx context.Context, locator string) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// Content returns an HTML snapshot of the current page, used as
	// healing-resolver input and for the recording capture hook.
	Content(ctx context.Context) (string, error)
	// Evaluate runs a script in the page, used to install the
	// recording capture hook.
	Evaluate(ctx context.Context, script string) error
	// OnClose registers a callback fired when the page disconnects or
	// is closed outside our own teardown path.
	OnClose(fn func())
	Connected() bool
	Close(ctx context.Context) error
}
