// File: internal/access/urlbuilder.go
// The access package computes the destination URL for a library access
// request. It is pure: absent configuration degrades to an empty string or
// the generic proxy-wrap fallback, never an error.
package access

import (
	"net/url"
	"strings"

	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// Template tokens recognized in custom-mode strategy URLs.
const (
	tokenArticleURL = "{{articleUrl}}"
	tokenTitle      = "{{title}}"
)

// BuildLibraryURL computes the destination URL for the given strategy.
// A nil strategy yields the generic proxy-wrap fallback. Callers must guard
// against an empty result before opening a tab.
func BuildLibraryURL(strategy *profile.SiteStrategy, p *profile.LibraryProfile, currentURL, title string) string {
	if strategy == nil {
		return FallbackURL(p, currentURL)
	}

	switch strategy.Mode {
	case profile.ModeDirectLogin:
		return strategy.URL

	case profile.ModeEZProxyWrapper:
		if strategy.URL != "" {
			return strategy.URL
		}
		return FallbackURL(p, currentURL)

	case profile.ModeEZProxySearch:
		// The search itself happens later, inside the opened page.
		return strategy.URL

	case profile.ModeCustom:
		if strategy.URL == "" {
			return ""
		}
		out := strings.ReplaceAll(strategy.URL, tokenArticleURL, encodeComponent(currentURL))
		out = strings.ReplaceAll(out, tokenTitle, encodeComponent(title))
		return out

	default:
		return FallbackURL(p, currentURL)
	}
}

// FallbackURL wraps the article URL with the profile's proxy login endpoint.
// This is the shared formula used whenever no usable strategy URL exists.
func FallbackURL(p *profile.LibraryProfile, currentURL string) string {
	return p.ProxyBaseURL + p.LoginPath + encodeComponent(currentURL)
}

// encodeComponent percent-encodes a string the way browsers encode URL
// components: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
