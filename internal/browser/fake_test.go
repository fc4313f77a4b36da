package browser

import (
	"context"
	"errors"
	"sync"
)

// fakePage is an in-memory Page for pool tests.
type fakePage struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	onClose   func()
}

func newFakePage() *fakePage {
	return &fakePage{connected: true}
}

func (p *fakePage) disconnect() {
	p.mu.Lock()
	p.connected = false
	fn := p.onClose
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error           { return nil }
func (p *fakePage) Click(ctx context.Context, locator string) error          { return nil }
func (p *fakePage) Fill(ctx context.Context, locator, value string) error    { return nil }
func (p *fakePage) SelectOption(ctx context.Context, loc, val string) error  { return nil }
func (p *fakePage) Hover(ctx context.Context, locator string) error          { return nil }
func (p *fakePage) Scroll(ctx context.Context, locator string) error         { return nil }
func (p *fakePage) Count(ctx context.Context, locator string) (int, error)   { return 0, nil }
func (p *fakePage) Text(ctx context.Context, locator string) (string, error) { return "", nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)           { return []byte("png"), nil }
func (p *fakePage) Content(ctx context.Context) (string, error)              { return "<html></html>", nil }
func (p *fakePage) Evaluate(ctx context.Context, script string) error        { return nil }

func (p *fakePage) OnClose(fn func()) {
	p.mu.Lock()
	p.onClose = fn
	p.mu.Unlock()
}

func (p *fakePage) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.connected = false
	return nil
}

// fakeDriver launches fakePages and remembers them in launch order.
type fakeDriver struct {
	mu        sync.Mutex
	pages     []*fakePage
	launchErr error
}

func (d *fakeDriver) Launch(ctx context.Context, engine string, headless bool) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	p := newFakePage()
	d.pages = append(d.pages, p)
	return p, nil
}

func (d *fakeDriver) launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

var errLaunchFailed = errors.New("browser launch failed")
