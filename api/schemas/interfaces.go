package schemas

import (
	"context"

	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// -- Persistence Interfaces --

// StateStore persists automation session records. The step counter is
// advanced with a compare-and-swap so a write that races a page navigation
// can never double-advance.
type StateStore interface {
	// CreateSession persists a new session record.
	CreateSession(ctx context.Context, sess *AutomationSession) error
	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*AutomationSession, error)
	// AdvanceStep atomically increments CurrentStep from the given value.
	// It returns false when the stored step no longer matches, meaning
	// another invocation already advanced it.
	AdvanceStep(ctx context.Context, id string, from int) (bool, error)
	// DeactivateSession clears the active flag, the sole cancellation signal
	// a lingering page-load subscriber observes.
	DeactivateSession(ctx context.Context, id string) error
}

// ProfileStore persists the user's library profile.
type ProfileStore interface {
	// Profile returns the stored profile, or ErrNoProfile when none exists.
	Profile(ctx context.Context) (*profile.LibraryProfile, error)
	// PutProfile stores the profile, replacing any previous one.
	PutProfile(ctx context.Context, p *profile.LibraryProfile) error
}

// -- Browser Interfaces --

// Page is the surface the automation engine needs from one browser tab.
// It is implemented by the chromedp-backed browser.Session and by fakes in
// tests.
type Page interface {
	// Navigate loads the given URL and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Exists reports whether an element matching the selector is attached.
	Exists(ctx context.Context, selector string) (bool, error)
	// Click dispatches a click on the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// EvaluateBool runs a JS expression in the page and returns its boolean
	// result.
	EvaluateBool(ctx context.Context, script string) (bool, error)
	// Fill sets an input's value, dispatching input and change events.
	// It reports whether the element was found.
	Fill(ctx context.Context, selector, value string) (bool, error)
	// LoadEvents subscribes to page load completions. The returned cancel
	// function releases the subscription.
	LoadEvents(ctx context.Context) (<-chan struct{}, func())
}
