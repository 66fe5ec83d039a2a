// File: internal/detect/detect.go
// The detect package decides whether a page is showing a paywall, using a
// per-domain table of CSS selectors and text patterns. It also extracts the
// article title used as the search term by search strategies.
package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// RuleSet holds the paywall indicators for one news site.
type RuleSet struct {
	Domain       string
	Selectors    []string
	TextPatterns []*regexp.Regexp
}

// Result reports what tripped the detector.
type Result struct {
	Detected bool
	// Rule is the selector or pattern that matched.
	Rule string
	// Kind is "selector" or "text".
	Kind string
}

// defaultRules covers the sites the default profile knows how to unlock.
var defaultRules = []RuleSet{
	{
		Domain: "nytimes.com",
		Selectors: []string{
			`[data-testid="inline-message"]`,
			`.css-mcm29f`,
			`#gateway-content`,
			`[id*="paywall"]`,
			`button[data-testid="login-button"]`,
			`a[href*="/subscription/"]`,
			`.expanded-dock`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)subscribe`),
			regexp.MustCompile(`(?i)log in to keep reading`),
			regexp.MustCompile(`(?i)log in`),
			regexp.MustCompile(`(?i)create.*account`),
		},
	},
	{
		Domain: "washingtonpost.com",
		Selectors: []string{
			`[data-qa="subscribe-promo"]`,
			`.paywall-overlay`,
			`#cx-paywall-snippet`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)subscribe`),
			regexp.MustCompile(`(?i)sign in`),
		},
	},
	{
		Domain: "wsj.com",
		Selectors: []string{
			`[data-layout="Paywall"]`,
			`.snippet-promotion`,
			`.continue-reading`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)continue reading`),
			regexp.MustCompile(`(?i)subscribe`),
		},
	},
	{
		Domain: "theatlantic.com",
		Selectors: []string{
			`[data-testid="paywall"]`,
			`.c-paywall`,
			`.paywall-container`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)subscribe`),
			regexp.MustCompile(`(?i)become a member`),
		},
	},
	{
		Domain: "economist.com",
		Selectors: []string{
			`[data-test-id="access-gate"]`,
			`.subscription-required`,
			`.paywall-prompt`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)subscribe`),
			regexp.MustCompile(`(?i)sign in`),
		},
	},
	{
		Domain: "pressdemocrat.com",
		Selectors: []string{
			`[data-key="soft-metered-inline"]`,
			`.meter-content`,
			`#paywallSub`,
		},
		TextPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)subscribe`),
			regexp.MustCompile(`(?i)subscription`),
		},
	},
}

// Match returns the rule set for a domain, or nil when the site is unknown.
// Domains match by substring containment against the normalized hostname,
// like strategy resolution.
func Match(domain string) *RuleSet {
	normalized := profile.NormalizeDomain(domain)
	for i := range defaultRules {
		if strings.Contains(normalized, defaultRules[i].Domain) {
			return &defaultRules[i]
		}
	}
	return nil
}

// Detect evaluates the rule set against a parsed document. Selectors are
// checked first, then text patterns against the page's text content.
func (r *RuleSet) Detect(doc *goquery.Document) Result {
	for _, sel := range r.Selectors {
		if doc.Find(sel).Length() > 0 {
			return Result{Detected: true, Rule: sel, Kind: "selector"}
		}
	}

	text := doc.Text()
	for _, re := range r.TextPatterns {
		if re.MatchString(text) {
			return Result{Detected: true, Rule: re.String(), Kind: "text"}
		}
	}
	return Result{}
}

// DetectHTML parses raw HTML and runs detection for the given domain.
// An unknown domain is never detected as paywalled.
func DetectHTML(html, domain string) (Result, error) {
	rules := Match(domain)
	if rules == nil {
		return Result{}, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return rules.Detect(doc), nil
}

// Snapshot produces the current HTML of a live page.
type Snapshot func(ctx context.Context) (string, error)

// Watch re-evaluates detection against fresh snapshots until a paywall is
// found or the context ends. It is the polling analog of watching the DOM
// for asynchronously injected paywalls.
func Watch(ctx context.Context, snap Snapshot, domain string, interval time.Duration) (Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		html, err := snap(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			return Result{}, err
		}
		res, err := DetectHTML(html, domain)
		if err != nil {
			return Result{}, err
		}
		if res.Detected {
			return res, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// titleSelectors is the ladder tried in order when extracting an article
// title from a page.
var titleSelectors = []string{
	`h1[itemprop="headline"]`,
	`h1.article-title`,
	`h1.headline`,
	`meta[property="og:title"]`,
	`meta[name="twitter:title"]`,
	`h1`,
}

// ExtractTitle pulls the article title out of a parsed document, falling
// back to the document title when no headline element exists.
func ExtractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if goquery.NodeName(node) == "meta" {
			if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
				return strings.TrimSpace(content)
			}
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ExtractTitleHTML is ExtractTitle over raw HTML.
func ExtractTitleHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractTitle(doc), nil
}
