package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/model"
)

var errElementNotFound = errors.New("element not found")

// fakePage simulates a page whose elements live in the locators set.
// Interactions against unknown locators fail like a real locate miss.
type fakePage struct {
	mu        sync.Mutex
	locators  map[string]bool
	texts     map[string]string
	counts    map[string]int
	navErr    error
	shotErr   error
	connected bool
	visited   []string
	clicked   []string
	filled    map[string]string
}

func newFakeTestPage(locators ...string) *fakePage {
	set := make(map[string]bool, len(locators))
	for _, l := range locators {
		set[l] = true
	}
	return &fakePage{
		locators:  set,
		texts:     map[string]string{},
		counts:    map[string]int{},
		connected: true,
		filled:    map[string]string{},
	}
}

func (p *fakePage) require(locator string) error {
	if !p.locators[locator] {
		return fmt.Errorf("%w: %s", errElementNotFound, locator)
	}
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return p.navErr
	}
	p.visited = append(p.visited, url)
	return nil
}

func (p *fakePage) Click(ctx context.Context, locator string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require(locator); err != nil {
		return err
	}
	p.clicked = append(p.clicked, locator)
	return nil
}

func (p *fakePage) Fill(ctx context.Context, locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require(locator); err != nil {
		return err
	}
	p.filled[locator] = value
	return nil
}

func (p *fakePage) SelectOption(ctx context.Context, locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.require(locator)
}

func (p *fakePage) Hover(ctx context.Context, locator string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.require(locator)
}

func (p *fakePage) Scroll(ctx context.Context, locator string) error { return nil }

func (p *fakePage) Count(ctx context.Context, locator string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.counts[locator]; ok {
		return n, nil
	}
	if p.locators[locator] {
		return 1, nil
	}
	return 0, nil
}

func (p *fakePage) Text(ctx context.Context, locator string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require(locator); err != nil {
		return "", err
	}
	return p.texts[locator], nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("png"), nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) { return "<html></html>", nil }

func (p *fakePage) Evaluate(ctx context.Context, script string) error { return nil }

func (p *fakePage) OnClose(fn func()) {}

func (p *fakePage) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// fakePageDriver hands out preset pages in order, then empty ones.
type fakePageDriver struct {
	mu    sync.Mutex
	pages []*fakePage
}

func (d *fakePageDriver) Launch(ctx context.Context, engine string, headless bool) (browser.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pages) > 0 {
		p := d.pages[0]
		d.pages = d.pages[1:]
		return p, nil
	}
	return newFakeTestPage(), nil
}

// fakeResolver returns a fixed candidate.
type fakeResolver struct {
	candidate string
	err       error
	calls     int
}

func (r *fakeResolver) Propose(ctx context.Context, locator, pageSnapshot, errorText string) (string, error) {
	r.calls++
	return r.candidate, r.err
}

// fakeLocatorStore records healed-locator writes.
type fakeLocatorStore struct {
	mu       sync.Mutex
	steps    map[string]string // "testID/index" -> locator
	elements map[string]string
	err      error
}

func newFakeLocatorStore() *fakeLocatorStore {
	return &fakeLocatorStore{steps: map[string]string{}, elements: map[string]string{}}
}

func (s *fakeLocatorStore) UpdateStepLocator(ctx context.Context, testID string, stepIndex int, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.steps[fmt.Sprintf("%s/%d", testID, stepIndex)] = locator
	return nil
}

func (s *fakeLocatorStore) UpdateElementLocator(ctx context.Context, elementID, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.elements[elementID] = locator
	return nil
}

// fakePlanStore serves one plan and its tests.
type fakePlanStore struct {
	plan     *model.Plan
	tests    []model.Test
	testsErr error
}

func (s *fakePlanStore) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	if s.plan == nil || s.plan.ID != id {
		return nil, errors.New("plan not found")
	}
	return s.plan, nil
}

func (s *fakePlanStore) ListTests(ctx context.Context, planID string) ([]model.Test, error) {
	if s.testsErr != nil {
		return nil, s.testsErr
	}
	return s.tests, nil
}

// fakeExecutionStore keeps records in memory and counts progressive
// writes.
type fakeExecutionStore struct {
	mu          sync.Mutex
	created     []*model.Execution
	updates     int
	completed   map[string]string
	createErr   error
	updateErr   error
	completeErr error
}

func newFakeExecutionStore() *fakeExecutionStore {
	return &fakeExecutionStore{completed: map[string]string{}}
}

func (s *fakeExecutionStore) Create(ctx context.Context, exec *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *exec
	s.created = append(s.created, &cp)
	return nil
}

func (s *fakeExecutionStore) MarkRunning(ctx context.Context, id string) error { return nil }

func (s *fakeExecutionStore) UpdateResults(ctx context.Context, id string, results []model.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates++
	return nil
}

func (s *fakeExecutionStore) Complete(ctx context.Context, id, status string, completedAt time.Time, results []model.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completed[id] = status
	return nil
}
