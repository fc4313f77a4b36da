package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// webElementKey is the W3C WebDriver element identifier key.
const webElementKey = "element-6066-11e4-a52e-4f735466cecf"

// WebDriver launches sessions against a remote W3C WebDriver endpoint
// (chromedriver, geckodriver, or a Selenium grid).
type WebDriver struct {
	baseURL string
	client  *http.Client
}

func NewWebDriver(baseURL string) *WebDriver {
	return &WebDriver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *WebDriver) Launch(ctx context.Context, engine string, headless bool) (Page, error) {
	caps := capabilities(engine, headless)

	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := d.do(ctx, http.MethodPost, "/session", map[string]any{
		"capabilities": map[string]any{"alwaysMatch": caps},
	}, &resp); err != nil {
		return nil, fmt.Errorf("create webdriver session: %w", err)
	}
	if resp.Value.SessionID == "" {
		return nil, fmt.Errorf("create webdriver session: empty session id")
	}

	p := &webPage{
		driver:    d,
		sessionID: resp.Value.SessionID,
		done:      make(chan struct{}),
	}
	go p.watch()
	return p, nil
}

func capabilities(engine string, headless bool) map[string]any {
	switch engine {
	case "firefox":
		args := []string{}
		if headless {
			args = append(args, "-headless")
		}
		return map[string]any{
			"browserName":        "firefox",
			"moz:firefoxOptions": map[string]any{"args": args},
		}
	case "webkit":
		// Safari/WebKitGTK drivers have no headless switch.
		return map[string]any{"browserName": "safari"}
	default:
		args := []string{"--no-sandbox", "--disable-dev-shm-usage"}
		if headless {
			args = append(args, "--headless=new")
		}
		return map[string]any{
			"browserName":        "chrome",
			"goog:chromeOptions": map[string]any{"args": args},
		}
	}
}

func (d *WebDriver) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal webdriver request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build webdriver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read webdriver response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wdErr struct {
			Value struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			} `json:"value"`
		}
		if json.Unmarshal(data, &wdErr) == nil && wdErr.Value.Error != "" {
			return fmt.Errorf("%s: %s", wdErr.Value.Error, wdErr.Value.Message)
		}
		return fmt.Errorf("webdriver status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode webdriver response: %w", err)
		}
	}
	return nil
}

// webPage is one WebDriver session. Exclusively owned by the Handle
// holder, so no locking beyond the disconnect bookkeeping.
type webPage struct {
	driver    *WebDriver
	sessionID string

	closed  atomic.Bool
	done    chan struct{}
	mu      sync.Mutex
	onClose func()
}

func (p *webPage) path(suffix string) string {
	return "/session/" + p.sessionID + suffix
}

// watch polls the session until it stops answering, then flags the
// page disconnected and fires the close callback. This is the external
// close detection used by recording sessions.
func (p *webPage) watch() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := p.driver.do(ctx, http.MethodGet, p.path("/url"), nil, nil)
			cancel()
			if err != nil && p.closed.CompareAndSwap(false, true) {
				p.mu.Lock()
				fn := p.onClose
				p.mu.Unlock()
				if fn != nil {
					fn()
				}
				return
			}
		}
	}
}

func (p *webPage) Navigate(ctx context.Context, url string) error {
	return p.driver.do(ctx, http.MethodPost, p.path("/url"), map[string]string{"url": url}, nil)
}

func (p *webPage) findElement(ctx context.Context, locator string) (string, error) {
	var resp struct {
		Value map[string]string `json:"value"`
	}
	err := p.driver.do(ctx, http.MethodPost, p.path("/element"), map[string]string{
		"using": "css selector",
		"value": locator,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("locate %q: %w", locator, err)
	}
	return resp.Value[webElementKey], nil
}

func (p *webPage) Click(ctx context.Context, locator string) error {
	id, err := p.findElement(ctx, locator)
	if err != nil {
		return err
	}
	return p.driver.do(ctx, http.MethodPost, p.path("/element/"+id+"/click"), map[string]any{}, nil)
}

func (p *webPage) Fill(ctx context.Context, locator, value string) error {
	id, err := p.findElement(ctx, locator)
	if err != nil {
		return err
	}
	if err := p.driver.do(ctx, http.MethodPost, p.path("/element/"+id+"/clear"), map[string]any{}, nil); err != nil {
		return err
	}
	return p.driver.do(ctx, http.MethodPost, p.path("/element/"+id+"/value"), map[string]string{"text": value}, nil)
}

func (p *webPage) SelectOption(ctx context.Context, locator, value string) error {
	return p.execute(ctx,
		`const el = document.querySelector(arguments[0]);
		 if (!el) throw new Error('no such element: ' + arguments[0]);
		 el.value = arguments[1];
		 el.dispatchEvent(new Event('change', {bubbles: true}));`,
		locator, value)
}

func (p *webPage) Hover(ctx context.Context, locator string) error {
	return p.execute(ctx,
		`const el = document.querySelector(arguments[0]);
		 if (!el) throw new Error('no such element: ' + arguments[0]);
		 el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));`,
		locator)
}

func (p *webPage) Scroll(ctx context.Context, locator string) error {
	if locator == "" {
		return p.execute(ctx, `window.scrollBy(0, window.innerHeight);`)
	}
	return p.execute(ctx,
		`const el = document.querySelector(arguments[0]);
		 if (!el) throw new Error('no such element: ' + arguments[0]);
		 el.scrollIntoView({block: 'center'});`,
		locator)
}

func (p *webPage) Count(ctx context.Context, locator string) (int, error) {
	var resp struct {
		Value []map[string]string `json:"value"`
	}
	err := p.driver.do(ctx, http.MethodPost, p.path("/elements"), map[string]string{
		"using": "css selector",
		"value": locator,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", locator, err)
	}
	return len(resp.Value), nil
}

func (p *webPage) Text(ctx context.Context, locator string) (string, error) {
	id, err := p.findElement(ctx, locator)
	if err != nil {
		return "", err
	}
	var resp struct {
		Value string `json:"value"`
	}
	if err := p.driver.do(ctx, http.MethodGet, p.path("/element/"+id+"/text"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (p *webPage) Screenshot(ctx context.Context) ([]byte, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := p.driver.do(ctx, http.MethodGet, p.path("/screenshot"), nil, &resp); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.Value)
}

func (p *webPage) Content(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := p.driver.do(ctx, http.MethodGet, p.path("/source"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (p *webPage) Evaluate(ctx context.Context, script string) error {
	return p.execute(ctx, script)
}

func (p *webPage) execute(ctx context.Context, script string, args ...any) error {
	if args == nil {
		args = []any{}
	}
	return p.driver.do(ctx, http.MethodPost, p.path("/execute/sync"), map[string]any{
		"script": script,
		"args":   args,
	}, nil)
}

func (p *webPage) OnClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = fn
}

func (p *webPage) Connected() bool {
	return !p.closed.Load()
}

func (p *webPage) Close(ctx context.Context) error {
	if p.closed.CompareAndSwap(false, true) {
		close(p.done)
	}
	return p.driver.do(ctx, http.MethodDelete, p.path(""), nil, nil)
}
