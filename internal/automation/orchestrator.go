// File: internal/automation/orchestrator.go
// Description: Handles library-access requests end to end: strategy
// resolution, URL building, session persistence, tab creation, and the
// per-navigation step loop. The request is acknowledged as soon as the tab
// exists; the automation itself runs on a background goroutine.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/access"
	"github.com/xkilldash9x/libpass-cli/internal/config"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
	"github.com/xkilldash9x/libpass-cli/internal/store"
)

// Browser opens new tabs for the orchestrator.
type Browser interface {
	OpenPage(ctx context.Context) (schemas.Page, error)
}

// Orchestrator coordinates one library-access flow per request.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	profiles schemas.ProfileStore
	state    schemas.StateStore
	browser  Browser
	driver   *Driver
	searcher *Searcher

	eg errgroup.Group
}

// New creates an Orchestrator with its dependencies.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	profiles schemas.ProfileStore,
	state schemas.StateStore,
	browser Browser,
) (*Orchestrator, error) {
	if cfg == nil || logger == nil || profiles == nil || state == nil || browser == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		profiles: profiles,
		state:    state,
		browser:  browser,
		driver:   NewDriver(cfg.Automation, state, logger),
		searcher: NewSearcher(cfg.Automation, logger),
	}, nil
}

// LoadProfile returns the stored profile, falling back to the built-in
// default when none has been stored yet.
func (o *Orchestrator) LoadProfile(ctx context.Context) *profile.LibraryProfile {
	p, err := o.profiles.Profile(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoProfile) {
			o.logger.Warn("Failed to load stored profile; using default", zap.Error(err))
		}
		return profile.DefaultProfile()
	}
	return p
}

// Open handles one OPEN_VIA_LIBRARY request. It returns as soon as a tab
// has been created and navigation dispatched; the click/search automation
// continues in the background until exhausted or cancelled. Use Wait to
// block on completion.
func (o *Orchestrator) Open(ctx context.Context, req schemas.OpenRequest) (*schemas.OpenResult, error) {
	p := o.LoadProfile(ctx)
	strat := p.Resolve(req.Domain)

	if strat == nil {
		// No strategy for this site: open the generic proxy wrap, with no
		// automation state and no injected steps.
		fallback := access.FallbackURL(p, req.URL)
		o.logger.Info("No strategy for domain; opening proxy fallback",
			zap.String("domain", req.Domain), zap.String("url", fallback))

		page, err := o.browser.OpenPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open tab: %w", err)
		}
		o.eg.Go(func() error {
			return page.Navigate(ctx, fallback)
		})
		return &schemas.OpenResult{TargetURL: fallback, Fallback: true}, nil
	}

	targetURL := access.BuildLibraryURL(strat, p, req.URL, req.Title)
	if targetURL == "" {
		// Never open a blank destination; degrade to the proxy wrap.
		targetURL = access.FallbackURL(p, req.URL)
		o.logger.Warn("Strategy produced no URL; using proxy fallback",
			zap.String("domain", strat.Domain), zap.String("mode", string(strat.Mode)))
	}

	sess := &schemas.AutomationSession{
		ID:              uuid.NewString(),
		ReturnToURL:     req.URL,
		ClickSelectors:  strat.ClickSelectors,
		CurrentStep:     0,
		ReturnToArticle: strat.ReturnToArticle,
		Active:          true,
	}
	if err := o.state.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	page, err := o.browser.OpenPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	o.logger.Info("Opening via library",
		zap.String("session", sess.ID),
		zap.String("domain", strat.Domain),
		zap.String("mode", string(strat.Mode)),
		zap.String("url", targetURL))

	strategy := *strat
	prof := *p
	o.eg.Go(func() error {
		return o.run(ctx, page, sess, &strategy, &prof, targetURL, req.Title)
	})

	return &schemas.OpenResult{SessionID: sess.ID, TargetURL: targetURL}, nil
}

// Wait blocks until every background automation started by Open has
// finished, returning the first error encountered.
func (o *Orchestrator) Wait() error {
	return o.eg.Wait()
}

// run drives one automation to completion inside a background goroutine.
func (o *Orchestrator) run(
	ctx context.Context,
	page schemas.Page,
	sess *schemas.AutomationSession,
	strat *profile.SiteStrategy,
	p *profile.LibraryProfile,
	targetURL, title string,
) error {
	log := o.logger.With(zap.String("session", sess.ID))

	// Subscribe before navigating so no load event is missed.
	loads, cancelLoads := page.LoadEvents(ctx)
	defer cancelLoads()

	if err := page.Navigate(ctx, targetURL); err != nil {
		log.Error("Initial navigation failed", zap.Error(err))
		return o.deactivate(sess.ID, err)
	}
	drainLoads(loads)

	o.fillCredentials(ctx, page, strat, p, log)

	if strat.Mode == profile.ModeEZProxySearch && strat.SearchSelector != "" {
		if err := o.searcher.Run(ctx, page, strat.SearchSelector, title); err != nil {
			if ctx.Err() != nil {
				return o.deactivate(sess.ID, ctx.Err())
			}
			log.Warn("Search injection failed", zap.Error(err))
		}
	}

	if len(sess.ClickSelectors) == 0 {
		// Nothing to click through; the session is done once the page is open.
		return o.deactivate(sess.ID, nil)
	}

	return o.stepLoop(ctx, page, sess.ID, loads, log)
}

// stepLoop re-runs the driver on every page load until the session goes
// inactive. A step that does not trigger a navigation (a click that merely
// opens a menu, or a skipped selector) proceeds after a short grace window
// instead of waiting forever for a load event that will never come.
func (o *Orchestrator) stepLoop(ctx context.Context, page schemas.Page, sessionID string, loads <-chan struct{}, log *zap.Logger) error {
	for {
		cur, err := o.state.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to reload session: %w", err)
		}
		if !cur.Active {
			log.Debug("Session inactive; releasing load subscription")
			return nil
		}

		result, err := o.driver.RunStep(ctx, page, cur)
		if err != nil {
			if ctx.Err() != nil {
				return o.deactivate(sessionID, ctx.Err())
			}
			log.Error("Automation step failed", zap.Error(err))
			return o.deactivate(sessionID, err)
		}
		log.Debug("Step finished", zap.Int("step", cur.CurrentStep), zap.String("result", result.String()))

		switch result {
		case StepCompleted, StepReturned:
			return nil
		case StepClicked, StepSkipped, StepConflict:
			if err := o.awaitNavigation(ctx, loads); err != nil {
				return o.deactivate(sessionID, err)
			}
		}
	}
}

// awaitNavigation waits for the next page load, bounded by the navigation
// grace window.
func (o *Orchestrator) awaitNavigation(ctx context.Context, loads <-chan struct{}) error {
	grace := o.cfg.Automation.NavigationGrace
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-loads:
		return nil
	case <-timer.C:
		// No navigation resulted; continue on the current page.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fillCredentials is the optional pre-step for strategies that declare
// credential fields: fill barcode and PIN from the profile, then press the
// profile's submit control when one is configured.
func (o *Orchestrator) fillCredentials(ctx context.Context, page schemas.Page, strat *profile.SiteStrategy, p *profile.LibraryProfile, log *zap.Logger) {
	fs := strat.FillSelectors
	if fs == nil {
		return
	}

	filled := false
	if fs.Barcode != "" && p.LibraryCard != "" {
		ok, err := page.Fill(ctx, fs.Barcode, p.LibraryCard)
		if err != nil || !ok {
			log.Warn("Failed to fill barcode field", zap.String("selector", fs.Barcode), zap.Error(err))
		} else {
			filled = true
		}
	}
	if fs.PIN != "" && p.PIN != "" {
		ok, err := page.Fill(ctx, fs.PIN, p.PIN)
		if err != nil || !ok {
			log.Warn("Failed to fill PIN field", zap.String("selector", fs.PIN), zap.Error(err))
		} else {
			filled = true
		}
	}

	if filled && p.SubmitSelector != "" {
		if err := page.Click(ctx, p.SubmitSelector); err != nil {
			log.Warn("Failed to submit credentials", zap.String("selector", p.SubmitSelector), zap.Error(err))
		}
	}
}

// deactivate marks the session inactive, preferring the original error.
func (o *Orchestrator) deactivate(sessionID string, cause error) error {
	// Use a fresh context: the cause may be the operation context's own
	// cancellation, and the inactive flag must still be persisted.
	deadlineCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.state.DeactivateSession(deadlineCtx, sessionID); err != nil && cause == nil {
		return err
	}
	if cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// drainLoads clears any load events already queued, so the step loop only
// reacts to navigations that happen after this point.
func drainLoads(loads <-chan struct{}) {
	for {
		select {
		case <-loads:
		default:
			return
		}
	}
}
