// File: internal/automation/search.go
package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/config"
)

// Searcher is the one-shot variant of the step driver used by search
// strategies: it fills the database's search field with the article title
// and submits the surrounding form, once, after a fixed settle delay.
type Searcher struct {
	cfg config.AutomationConfig
	log *zap.Logger
}

// NewSearcher creates a search injector.
func NewSearcher(cfg config.AutomationConfig, logger *zap.Logger) *Searcher {
	return &Searcher{
		cfg: cfg,
		log: logger.Named("searcher"),
	}
}

// Run fills and submits the search field. Missing arguments make it a
// no-op; a missing input element is logged and swallowed. It never retries.
func (s *Searcher) Run(ctx context.Context, page schemas.Page, searchSelector, term string) error {
	if searchSelector == "" || term == "" {
		return nil
	}

	// Let client-side rendering settle before touching the field.
	if err := sleep(ctx, s.cfg.SearchSettleDelay); err != nil {
		return err
	}

	found, err := page.EvaluateBool(ctx, buildSearchScript(searchSelector, term))
	if err != nil {
		return fmt.Errorf("search injection failed: %w", err)
	}
	if !found {
		s.log.Warn("Search input not found", zap.String("selector", searchSelector))
		return nil
	}

	s.log.Info("Search submitted", zap.String("selector", searchSelector), zap.String("term", term))
	return nil
}

// buildSearchScript produces the page-side script: set the value, dispatch
// bubbling input and change events, then submit the closest form, falling
// back to a generic submit button only when no form encloses the input.
func buildSearchScript(searchSelector, term string) string {
	return fmt.Sprintf(`(function(sel, term) {
		const input = document.querySelector(sel);
		if (!input) { return false; }
		input.value = term;
		input.dispatchEvent(new Event('input', { bubbles: true }));
		input.dispatchEvent(new Event('change', { bubbles: true }));
		const form = input.closest('form');
		if (form) {
			form.dispatchEvent(new Event('submit', { bubbles: true, cancelable: true }));
		} else {
			const btn = document.querySelector('button[type="submit"], input[type="submit"]');
			if (btn) { btn.click(); }
		}
		return true;
	})(%s, %s)`, jsString(searchSelector), jsString(term))
}

// jsString embeds a Go string as a JS string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
