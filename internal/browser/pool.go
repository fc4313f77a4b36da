package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/testpilot/internal/metrics"
)

// Pool owns every live automation session. All registry access is
// mutex-guarded; handles themselves are exclusively owned by whichever
// caller currently holds them.
type Pool struct {
	driver        Driver
	logger        zerolog.Logger
	maxSessions   int
	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Handle
}

type PoolOptions struct {
	MaxSessions   int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

func NewPool(driver Driver, logger zerolog.Logger, opts PoolOptions) *Pool {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 5
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Pool{
		driver:        driver,
		logger:        logger.With().Str("component", "session-pool").Logger(),
		maxSessions:   opts.MaxSessions,
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		sessions:      make(map[string]*Handle),
	}
}

// Acquire returns an exclusively-owned handle matching the engine and
// headless mode, reusing an idle one when possible. Past the session
// cap it still launches an overflow handle rather than deadlock, with
// a warning.
func (p *Pool) Acquire(ctx context.Context, engine string, headless bool) (*Handle, error) {
	p.mu.Lock()

	for _, h := range p.sessions {
		if h.busy || h.Engine != engine || h.Headless != headless {
			continue
		}
		if !h.Page.Connected() {
			// Disconnected handles are never handed out again.
			delete(p.sessions, h.ID)
			metrics.SessionsEvicted.Inc()
			go p.closePage(h)
			continue
		}
		h.busy = true
		p.mu.Unlock()
		return h, nil
	}

	if len(p.sessions) >= p.maxSessions {
		p.logger.Warn().
			Int("max_sessions", p.maxSessions).
			Str("engine", engine).
			Msg("session cap reached, launching overflow session")
	}
	p.mu.Unlock()

	page, err := p.driver.Launch(ctx, engine, headless)
	if err != nil {
		return nil, fmt.Errorf("launch %s session: %w", engine, err)
	}

	h := &Handle{
		ID:         uuid.NewString(),
		Page:       page,
		Engine:     engine,
		Headless:   headless,
		busy:       true,
		lastUsedAt: time.Now(),
	}

	p.mu.Lock()
	p.sessions[h.ID] = h
	active := len(p.sessions)
	p.mu.Unlock()

	metrics.SessionsLaunched.Inc()
	metrics.SessionsActive.Set(float64(active))
	p.logger.Debug().Str("session_id", h.ID).Str("engine", engine).Bool("headless", headless).Msg("launched session")
	return h, nil
}

// Release marks the handle idle for reuse, or evicts it when the
// underlying page has disconnected.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	if _, ok := p.sessions[h.ID]; !ok {
		p.mu.Unlock()
		return
	}
	if !h.Page.Connected() {
		delete(p.sessions, h.ID)
		p.mu.Unlock()
		metrics.SessionsEvicted.Inc()
		p.closePage(h)
		return
	}
	h.busy = false
	h.lastUsedAt = time.Now()
	p.mu.Unlock()
}

// Evict removes the handle from the registry and closes its page.
// Cleanup is unconditional: the bookkeeping entry goes away even if
// the close call fails.
func (p *Pool) Evict(h *Handle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	delete(p.sessions, h.ID)
	active := len(p.sessions)
	p.mu.Unlock()

	metrics.SessionsEvicted.Inc()
	metrics.SessionsActive.Set(float64(active))
	p.closePage(h)
}

// Sweep closes and evicts every idle handle that has outlived the idle
// timeout. It is the backstop for leaked sessions.
func (p *Pool) Sweep() {
	cutoff := time.Now().Add(-p.idleTimeout)

	p.mu.Lock()
	var stale []*Handle
	for id, h := range p.sessions {
		if !h.busy && (h.lastUsedAt.Before(cutoff) || !h.Page.Connected()) {
			delete(p.sessions, id)
			stale = append(stale, h)
		}
	}
	active := len(p.sessions)
	p.mu.Unlock()

	metrics.SessionsActive.Set(float64(active))
	for _, h := range stale {
		metrics.SessionsEvicted.Inc()
		p.logger.Debug().Str("session_id", h.ID).Msg("evicting idle session")
		p.closePage(h)
	}
}

// Run sweeps on a fixed interval until the context is cancelled, then
// closes every remaining session.
func (p *Pool) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.CloseAll()
			return ctx.Err()
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// CloseAll evicts every session, busy or not. Shutdown path only.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	handles := make([]*Handle, 0, len(p.sessions))
	for _, h := range p.sessions {
		handles = append(handles, h)
	}
	p.sessions = make(map[string]*Handle)
	p.mu.Unlock()

	metrics.SessionsActive.Set(0)
	for _, h := range handles {
		p.closePage(h)
	}
}

// Size reports the number of registered sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *Pool) closePage(h *Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Page.Close(ctx); err != nil {
		p.logger.Warn().Err(err).Str("session_id", h.ID).Msg("failed to close session page")
	}
}
