// File: internal/service/components.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/internal/automation"
	"github.com/xkilldash9x/libpass-cli/internal/browser"
	"github.com/xkilldash9x/libpass-cli/internal/config"
	"github.com/xkilldash9x/libpass-cli/internal/store"
)

// Components holds the initialized services required to run library-access
// automations. It centralizes lifecycle management so commands only have to
// build one thing and shut one thing down.
type Components struct {
	Store        *store.Store
	Browser      *browser.Manager
	Orchestrator *automation.Orchestrator
	Handler      *Handler
}

// NewComponents wires the store, browser manager, orchestrator, and message
// handler from configuration. The caller owns the returned components and
// must call Shutdown when done.
func NewComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := store.Open(cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	mgr, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	orch, err := automation.New(cfg, logger, st, st, mgr)
	if err != nil {
		mgr.Close()
		_ = st.Close()
		return nil, err
	}

	return &Components{
		Store:        st,
		Browser:      mgr,
		Orchestrator: orch,
		Handler:      NewHandler(orch, logger),
	}, nil
}

// Shutdown drains in-flight automations, then releases the browser and the
// store. Draining uses its own deadline so shutdown completes even when the
// command context was already cancelled.
func (c *Components) Shutdown(logger *zap.Logger) {
	if c.Orchestrator != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := c.Orchestrator.Wait(); err != nil {
				logger.Warn("Automation finished with errors.", zap.Error(err))
			}
		}()
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			logger.Warn("Timed out waiting for automations to drain.")
		}
	}

	if c.Browser != nil {
		c.Browser.Close()
		logger.Debug("Browser manager shut down.")
	}

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("Error closing state store.", zap.Error(err))
		}
	}
}
