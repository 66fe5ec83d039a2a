// File: internal/automation/helpers_test.go
package automation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/config"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
	"github.com/xkilldash9x/libpass-cli/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testAutomationConfig returns timings short enough for unit tests while
// keeping the same proportions as the production defaults.
func testAutomationConfig() config.AutomationConfig {
	return config.AutomationConfig{
		StepTimeout:       250 * time.Millisecond,
		PollInterval:      25 * time.Millisecond,
		SearchSettleDelay: 50 * time.Millisecond,
		ReturnSettleDelay: 50 * time.Millisecond,
		NavigationGrace:   100 * time.Millisecond,
	}
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Automation = testAutomationConfig()
	return cfg
}

// -- In-memory state store --

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*schemas.AutomationSession
	// log, when set, receives a record of every mutating call.
	log *eventLog
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*schemas.AutomationSession)}
}

func (m *memStore) CreateSession(_ context.Context, sess *schemas.AutomationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	cp.ClickSelectors = append([]string(nil), sess.ClickSelectors...)
	m.sessions[sess.ID] = &cp
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*schemas.AutomationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *sess
	cp.ClickSelectors = append([]string(nil), sess.ClickSelectors...)
	return &cp, nil
}

func (m *memStore) AdvanceStep(_ context.Context, id string, from int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return false, store.ErrSessionNotFound
	}
	if sess.CurrentStep != from {
		return false, nil
	}
	sess.CurrentStep++
	m.log.add(fmt.Sprintf("advance:%d", sess.CurrentStep))
	return true, nil
}

func (m *memStore) DeactivateSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	sess.Active = false
	m.log.add("deactivate")
	return nil
}

// -- In-memory profile store --

type memProfiles struct {
	mu sync.Mutex
	p  *profile.LibraryProfile
}

func (m *memProfiles) Profile(context.Context) (*profile.LibraryProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p == nil {
		return nil, store.ErrNoProfile
	}
	return m.p, nil
}

func (m *memProfiles) PutProfile(_ context.Context, p *profile.LibraryProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = p
	return nil
}

// -- Event log shared between fakes to assert ordering --

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(ev string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// -- Fake page --

type fakePage struct {
	mu sync.Mutex

	// present lists selectors Exists reports as attached.
	present map[string]bool
	// appearAfter delays a selector's appearance until the given time.
	appearAfter map[string]time.Time
	// clickNavigates emits a load event when the selector is clicked.
	clickNavigates map[string]bool

	clicks []string
	navs   []navRecord
	evals  []string
	fills  []fillRecord

	evalResult bool
	loadCh     chan struct{}

	log *eventLog
}

type navRecord struct {
	url string
	at  time.Time
}

type fillRecord struct {
	selector, value string
}

func newFakePage() *fakePage {
	return &fakePage{
		present:        make(map[string]bool),
		appearAfter:    make(map[string]time.Time),
		clickNavigates: make(map[string]bool),
		evalResult:     true,
		loadCh:         make(chan struct{}, 8),
	}
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navs = append(f.navs, navRecord{url: url, at: time.Now()})
	f.log.add("navigate:" + url)
	return nil
}

func (f *fakePage) Exists(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if at, ok := f.appearAfter[selector]; ok && time.Now().Before(at) {
		return false, nil
	}
	return f.present[selector], nil
}

func (f *fakePage) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, selector)
	f.log.add("click:" + selector)
	navigates := f.clickNavigates[selector]
	f.mu.Unlock()

	if navigates {
		select {
		case f.loadCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakePage) EvaluateBool(_ context.Context, script string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, script)
	f.log.add("evaluate")
	return f.evalResult, nil
}

func (f *fakePage) Fill(_ context.Context, selector, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills = append(f.fills, fillRecord{selector: selector, value: value})
	f.log.add("fill:" + selector)
	return true, nil
}

func (f *fakePage) LoadEvents(context.Context) (<-chan struct{}, func()) {
	return f.loadCh, func() {}
}

func (f *fakePage) clickedSelectors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

func (f *fakePage) navigations() []navRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]navRecord(nil), f.navs...)
}

func (f *fakePage) evaluated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.evals...)
}

func (f *fakePage) setPresent(selector string, present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present[selector] = present
}

// fakeBrowser hands out a fixed sequence of pages.
type fakeBrowser struct {
	mu    sync.Mutex
	pages []*fakePage
	next  int
}

func (b *fakeBrowser) OpenPage(context.Context) (schemas.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next >= len(b.pages) {
		return nil, fmt.Errorf("no more fake pages configured")
	}
	p := b.pages[b.next]
	b.next++
	return p, nil
}
