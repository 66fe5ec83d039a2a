// File: internal/automation/driver.go
// The step driver executes exactly one click step (or one timeout) of an
// automation session against the current page. Progression across steps is
// the orchestrator's responsibility; the driver itself is invoked once per
// page load, mirroring a script injected after each navigation.
package automation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/config"
)

// StepResult describes the outcome of one driver invocation.
type StepResult int

const (
	// StepClicked means the current selector was found and clicked; the
	// step counter was advanced first.
	StepClicked StepResult = iota
	// StepSkipped means the selector never appeared within the ceiling; the
	// step counter was advanced anyway to preserve forward progress.
	StepSkipped
	// StepConflict means another invocation advanced the step counter
	// concurrently; nothing was clicked.
	StepConflict
	// StepCompleted means every selector has been consumed and the session
	// was marked inactive.
	StepCompleted
	// StepReturned is StepCompleted plus the delayed navigation back to the
	// original article.
	StepReturned
)

func (r StepResult) String() string {
	switch r {
	case StepClicked:
		return "clicked"
	case StepSkipped:
		return "skipped"
	case StepConflict:
		return "conflict"
	case StepCompleted:
		return "completed"
	case StepReturned:
		return "returned"
	default:
		return "unknown"
	}
}

// Driver runs single automation steps.
type Driver struct {
	cfg   config.AutomationConfig
	state schemas.StateStore
	log   *zap.Logger
}

// NewDriver creates a step driver.
func NewDriver(cfg config.AutomationConfig, state schemas.StateStore, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:   cfg,
		state: state,
		log:   logger.Named("driver"),
	}
}

// RunStep executes one step of the session against the page.
//
// When the selector sequence is exhausted it deactivates the session and,
// for return-to-article sessions, navigates back to the original URL after
// the configured settle delay. Otherwise it polls for the current selector
// until found or until the step ceiling elapses. The step counter is
// advanced with a confirmed compare-and-swap before the click, so a click
// that immediately navigates the page away can never lose the write.
func (d *Driver) RunStep(ctx context.Context, page schemas.Page, sess *schemas.AutomationSession) (StepResult, error) {
	log := d.log.With(zap.String("session", sess.ID), zap.Int("step", sess.CurrentStep))
	log.Debug("Running automation step", zap.Int("total", len(sess.ClickSelectors)))

	if sess.Exhausted() {
		return d.finish(ctx, page, sess, log)
	}

	selector := sess.ClickSelectors[sess.CurrentStep]
	start := time.Now()

	for {
		found, err := page.Exists(ctx, selector)
		if err != nil {
			if ctx.Err() != nil {
				return StepSkipped, ctx.Err()
			}
			// Transient evaluation failures happen mid-navigation; treat
			// this poll as a miss and keep seeking.
			log.Debug("Existence check failed; continuing to poll", zap.Error(err))
		}

		if found {
			swapped, err := d.state.AdvanceStep(ctx, sess.ID, sess.CurrentStep)
			if err != nil {
				return StepSkipped, fmt.Errorf("failed to advance step: %w", err)
			}
			if !swapped {
				log.Debug("Step already advanced elsewhere; not clicking", zap.String("selector", selector))
				return StepConflict, nil
			}

			if err := page.Click(ctx, selector); err != nil {
				// The state is already advanced; a vanished element is not
				// worth failing the whole flow over.
				log.Warn("Click failed after element was seen", zap.String("selector", selector), zap.Error(err))
			} else {
				log.Info("Clicked automation step", zap.String("selector", selector))
			}
			return StepClicked, nil
		}

		if time.Since(start) >= d.cfg.StepTimeout {
			log.Warn("Selector not found within ceiling; skipping step",
				zap.String("selector", selector),
				zap.Duration("ceiling", d.cfg.StepTimeout))
			if _, err := d.state.AdvanceStep(ctx, sess.ID, sess.CurrentStep); err != nil {
				return StepSkipped, fmt.Errorf("failed to skip step: %w", err)
			}
			return StepSkipped, nil
		}

		if err := sleep(ctx, d.cfg.PollInterval); err != nil {
			return StepSkipped, err
		}
	}
}

// finish handles the terminal-complete state: deactivate immediately, then
// optionally schedule the single return navigation after the settle delay.
func (d *Driver) finish(ctx context.Context, page schemas.Page, sess *schemas.AutomationSession, log *zap.Logger) (StepResult, error) {
	log.Info("All automation steps complete")

	if err := d.state.DeactivateSession(ctx, sess.ID); err != nil {
		return StepCompleted, fmt.Errorf("failed to deactivate session: %w", err)
	}

	if !sess.ReturnToArticle || sess.ReturnToURL == "" {
		return StepCompleted, nil
	}

	// Give the library side a moment to register the redemption before
	// leaving the page.
	if err := sleep(ctx, d.cfg.ReturnSettleDelay); err != nil {
		return StepCompleted, err
	}
	if err := page.Navigate(ctx, sess.ReturnToURL); err != nil {
		log.Warn("Return navigation failed", zap.String("url", sess.ReturnToURL), zap.Error(err))
		return StepCompleted, nil
	}
	log.Info("Returned to article", zap.String("url", sess.ReturnToURL))
	return StepReturned, nil
}

// sleep waits for d or until the context ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
