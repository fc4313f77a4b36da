package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/model"
)

// ErrSessionNotFound is returned for unknown or already-stopped
// recording sessions.
var ErrSessionNotFound = errors.New("recording session not found")

// captureHook is injected into the recorded page. It observes clicks,
// input commits and select changes and posts them to the recording
// websocket, where the controller appends them to the session.
const captureHook = `(() => {
  if (window.__tpRecorder) return;
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/v1/recordings/%s/ws');
  const selector = (el) => {
    if (el.id) return '#' + el.id;
    if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
    let path = el.tagName.toLowerCase();
    if (el.className && typeof el.className === 'string') path += '.' + el.className.trim().split(/\s+/).join('.');
    return path;
  };
  const send = (action, el, value) => {
    if (ws.readyState !== WebSocket.OPEN) return;
    ws.send(JSON.stringify({action, locator: el ? selector(el) : '', value: value || '', url: location.href, timestamp: new Date().toISOString()}));
  };
  document.addEventListener('click', (e) => send('click', e.target), true);
  document.addEventListener('change', (e) => {
    const el = e.target;
    send(el.tagName === 'SELECT' ? 'select' : 'input', el, el.value);
  }, true);
  window.__tpRecorder = ws;
})();`

type session struct {
	id     string
	userID string
	url    string
	handle *browser.Handle

	mu               sync.Mutex
	actions          []model.RecordedAction
	closedExternally bool
}

func (s *session) append(action model.RecordedAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
}

func (s *session) snapshot() []model.RecordedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RecordedAction, len(s.actions))
	copy(out, s.actions)
	return out
}

// Controller owns live recording sessions. Stop is the single teardown
// path: an externally-closed page only flags the session, its entry
// stays until an explicit Stop (or the pool sweep reclaims the page).
type Controller struct {
	pool   *browser.Pool
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewController(pool *browser.Pool, logger zerolog.Logger) *Controller {
	return &Controller{
		pool:     pool,
		logger:   logger.With().Str("component", "recording-controller").Logger(),
		sessions: map[string]*session{},
	}
}

// Start acquires a dedicated non-headless session, navigates to the
// target URL and installs the in-page capture hook. Recording requires
// visible interaction, so headless handles are never used.
func (c *Controller) Start(ctx context.Context, url, userID string) (string, error) {
	handle, err := c.pool.Acquire(ctx, "chromium", false)
	if err != nil {
		return "", fmt.Errorf("acquire recording session: %w", err)
	}

	if err := handle.Page.Navigate(ctx, url); err != nil {
		c.pool.Release(handle)
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}

	sess := &session{
		id:     uuid.NewString(),
		userID: userID,
		url:    url,
		handle: handle,
	}

	if err := handle.Page.Evaluate(ctx, fmt.Sprintf(captureHook, sess.id)); err != nil {
		// Actions can still arrive over the websocket from an
		// externally-injected hook, so this is not fatal.
		c.logger.Warn().Err(err).Str("recording_id", sess.id).Msg("failed to install capture hook")
	}

	handle.Page.OnClose(func() {
		sess.mu.Lock()
		sess.closedExternally = true
		sess.mu.Unlock()
		c.logger.Info().Str("recording_id", sess.id).Msg("recorded page closed externally")
	})

	c.mu.Lock()
	c.sessions[sess.id] = sess
	c.mu.Unlock()

	c.logger.Info().Str("recording_id", sess.id).Str("user_id", userID).Str("url", url).Msg("recording started")
	return sess.id, nil
}

// Poll returns the actions accumulated so far without consuming them.
func (c *Controller) Poll(sessionID string) ([]model.RecordedAction, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.snapshot(), nil
}

// AppendAction records one captured action. Fed by the recording
// websocket.
func (c *Controller) AppendAction(sessionID string, action model.RecordedAction) error {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now()
	}
	sess.append(action)
	return nil
}

// Stop tears the session down and returns the full action list with a
// synthetic terminal marker appended. Safe after an external page
// close; a second Stop returns ErrSessionNotFound.
func (c *Controller) Stop(sessionID string) ([]model.RecordedAction, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.append(model.RecordedAction{
		Action:    "recording_stopped",
		URL:       sess.url,
		Timestamp: time.Now(),
	})

	// Release is best-effort: a disconnected page is evicted by the
	// pool, anything else goes back for reuse.
	c.pool.Release(sess.handle)

	c.logger.Info().
		Str("recording_id", sess.id).
		Int("actions", len(sess.actions)).
		Bool("closed_externally", sess.closedExternally).
		Msg("recording stopped")
	return sess.snapshot(), nil
}

// ClosedExternally reports whether the recorded page was closed outside
// the controller's own teardown path.
func (c *Controller) ClosedExternally(sessionID string) (bool, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return false, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closedExternally, nil
}
