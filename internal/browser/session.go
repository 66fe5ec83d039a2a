// internal/browser/session.go
// A Session wraps one browser tab and exposes the small interaction surface
// the automation engine needs: navigation, existence checks, clicks, script
// evaluation, and page-load subscriptions. All methods manage their own
// operation timeouts on top of the caller's context.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/internal/config"
)

// Session is one open browser tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *zap.Logger

	closeOnce sync.Once
}

func newSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) *Session {
	return &Session{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session"),
	}
}

// runActions executes chromedp actions against the tab while honoring the
// caller's context. chromedp.Run only observes the tab context, so the
// combination is done here.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("session closed: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate loads the given URL, waits for the load event, and then applies
// the configured post-load settle wait.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))

	navTimeout := s.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, navTimeout, navCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if wait := s.cfg.Network.PostLoadWait; wait > 0 {
		if err := s.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// NavigateAsync dispatches a navigation without waiting for the load event.
// The step driver uses it for the return-to-article hop, where the load is
// observed through the LoadEvents subscription instead.
func (s *Session) NavigateAsync(ctx context.Context, url string) error {
	script := fmt.Sprintf(`window.location.href = %s; true`, jsonEncode(url))
	_, err := s.EvaluateBool(ctx, script)
	if err != nil {
		return fmt.Errorf("failed to dispatch navigation: %w", err)
	}
	return nil
}

// Exists reports whether an element matching the selector is currently
// attached to the document.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, jsonEncode(selector))
	return s.EvaluateBool(ctx, script)
}

// Click dispatches a DOM click on the first element matching the selector.
// The click is synchronous inside the page, matching the behavior of an
// element.click() call.
func (s *Session) Click(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el) { return false; }
		el.click();
		return true;
	})(%s)`, jsonEncode(selector))

	found, err := s.EvaluateBool(ctx, script)
	if err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	if !found {
		return fmt.Errorf("click target not found: %q", selector)
	}
	return nil
}

// Fill sets an input's value and dispatches bubbling input and change events
// so page frameworks observe the change. It reports whether the element was
// found.
func (s *Session) Fill(ctx context.Context, selector, value string) (bool, error) {
	script := fmt.Sprintf(`(function(sel, val) {
		const el = document.querySelector(sel);
		if (!el) { return false; }
		el.value = val;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})(%s, %s)`, jsonEncode(selector), jsonEncode(value))

	return s.EvaluateBool(ctx, script)
}

// EvaluateBool runs a JS expression in the page and returns its boolean result.
func (s *Session) EvaluateBool(ctx context.Context, script string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var result bool
	err := s.runActions(opCtx, chromedp.Evaluate(script, &result,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}))
	if err != nil {
		return false, fmt.Errorf("script evaluation failed: %w", err)
	}
	return result, nil
}

// HTML returns the page's current outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var html string
	if err := s.runActions(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture page HTML: %w", err)
	}
	return html, nil
}

// Title returns the page's document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var title string
	if err := s.runActions(opCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// Location returns the page's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var loc string
	if err := s.runActions(opCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return loc, nil
}

// LoadEvents subscribes to page load completions for this tab. Events are
// delivered on the returned channel until cancel is called or the tab
// closes. The channel is buffered; a load that fires while the consumer is
// busy is retained, further ones are dropped.
func (s *Session) LoadEvents(ctx context.Context) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 4)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); !ok {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
		default:
			select {
			case ch <- struct{}{}:
			default:
				s.logger.Debug("Dropping page-load event; subscriber is behind.")
			}
		}
	})
	return ch, cancel
}

// Sleep pauses for the given duration, honoring both the operation context
// and the tab lifetime.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Close tears down the tab.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.logger.Debug("Session closed.")
	})
}

// jsonEncode safely embeds a Go string as a JS string literal.
func jsonEncode(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
