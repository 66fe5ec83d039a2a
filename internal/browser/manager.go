// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/config"
)

// Manager owns the headless browser process and creates tab sessions on it.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	mu       sync.Mutex
	sessions []*Session
}

// NewManager launches the browser allocator and verifies the browser starts.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}

	opts := m.buildAllocatorOptions()
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	// Run a trivial task against a temporary tab to confirm the browser is alive.
	testCtx, cancelTest := context.WithTimeout(m.allocatorCtx, 30*time.Second)
	testCtx, cancelTab := chromedp.NewContext(testCtx)
	defer cancelTab()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive.")
	return m, nil
}

// buildAllocatorOptions assembles the launch flags for the browser process.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.Browser.IgnoreTLSErrors),
		// Library proxies sometimes gate on navigator.webdriver.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
	)
	if m.cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.Browser.UserAgent))
	}

	// Custom arguments from config, "--name=value" or "--name".
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// NewTab opens a fresh browser tab and returns its session.
func (m *Manager) NewTab(ctx context.Context) (*Session, error) {
	if m.allocatorCtx.Err() != nil {
		return nil, fmt.Errorf("browser manager is shut down: %w", m.allocatorCtx.Err())
	}

	var tabOpts []chromedp.ContextOption
	if m.cfg.Browser.Debug {
		debugLogger := m.logger.Named("cdp").Sugar()
		tabOpts = append(tabOpts, chromedp.WithDebugf(debugLogger.Debugf))
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocatorCtx, tabOpts...)

	// Materialize the tab so load listeners can attach before navigation.
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	s := newSession(tabCtx, tabCancel, m.cfg, m.logger)
	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()
	return s, nil
}

// OpenPage opens a new tab and returns it behind the automation page
// interface.
func (m *Manager) OpenPage(ctx context.Context) (schemas.Page, error) {
	return m.NewTab(ctx)
}

// Close tears down every open tab and the browser process.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = nil
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.allocatorCancel()
	m.logger.Info("Browser shut down.")
}
