// File: internal/profile/profile.go
// The profile package models a user's library configuration: which library
// proxy to authenticate through, and one access strategy per news site.
package profile

// StrategyMode identifies the access pattern used to reach a site's content
// through the library.
type StrategyMode string

const (
	// ModeDirectLogin opens a predefined library login page and clicks
	// through its redemption sequence.
	ModeDirectLogin StrategyMode = "direct-login"
	// ModeEZProxyWrapper wraps the article URL with the library's EZproxy
	// authentication endpoint.
	ModeEZProxyWrapper StrategyMode = "ezproxy-wrapper"
	// ModeEZProxySearch opens a library database and searches it for the
	// article title.
	ModeEZProxySearch StrategyMode = "ezproxy-search"
	// ModeCustom uses a user-defined URL template with {{articleUrl}} and
	// {{title}} substitutions.
	ModeCustom StrategyMode = "custom"
)

// FillSelectors names the credential input fields on a library login page.
type FillSelectors struct {
	Barcode string `json:"barcode,omitempty"`
	PIN     string `json:"pin,omitempty"`
}

// SiteStrategy configures library access for one target domain.
//
// Domain is matched by substring containment against the normalized hostname,
// first match wins, so the order of strategies in a profile matters: entries
// with short or ambiguous domain substrings belong after more specific ones.
type SiteStrategy struct {
	Domain          string         `json:"domain"`
	Mode            StrategyMode   `json:"mode"`
	URL             string         `json:"url,omitempty"`
	SearchSelector  string         `json:"searchSelector,omitempty"`
	ClickSelectors  []string       `json:"clickSelectors,omitempty"`
	WaitForSelector string         `json:"waitForSelector,omitempty"`
	FillSelectors   *FillSelectors `json:"fillSelectors,omitempty"`
	ReturnToArticle bool           `json:"returnToArticle,omitempty"`
	Description     string         `json:"description,omitempty"`
}

// LibraryProfile is the user's library configuration. It is authored by the
// user (or imported from JSON) and read-only to the automation engine.
type LibraryProfile struct {
	LibraryName     string         `json:"libraryName"`
	ProxyBaseURL    string         `json:"proxyBaseUrl"`
	LoginPath       string         `json:"loginPath"`
	LibraryCard     string         `json:"libraryCard,omitempty"`
	PIN             string         `json:"pin,omitempty"`
	BarcodeSelector string         `json:"barcodeSelector,omitempty"`
	PINSelector     string         `json:"pinSelector,omitempty"`
	SubmitSelector  string         `json:"submitSelector,omitempty"`
	Strategies      []SiteStrategy `json:"strategies"`
}

// DefaultProfile returns the built-in example profile (Sonoma County
// Library). It is used whenever no profile has been stored yet.
func DefaultProfile() *LibraryProfile {
	return &LibraryProfile{
		LibraryName:  "Sonoma County Library",
		ProxyBaseURL: "https://sonomalibrary.idm.oclc.org",
		LoginPath:    "/login?url=",
		Strategies: []SiteStrategy{
			{
				Domain: "nytimes.com",
				Mode:   ModeDirectLogin,
				URL:    "https://sonomalibrary.org/elibrary/a-z/nyt-remote",
				ClickSelectors: []string{
					"a[href*='nytimes.com/subscription/redeem']",
					"button[type='submit']",
				},
				ReturnToArticle: true,
				Description:     "NYT Remote Access - Get pass and return to article",
			},
			{
				Domain:         "washingtonpost.com",
				Mode:           ModeDirectLogin,
				URL:            "https://www.sonomalibrary.org/washingtonpost",
				ClickSelectors: []string{"a.access-link"},
				Description:    "Washington Post Remote Access",
			},
			{
				Domain:         "wsj.com",
				Mode:           ModeDirectLogin,
				URL:            "https://www.sonomalibrary.org/wsj",
				ClickSelectors: []string{"a.btn-activate"},
				Description:    "WSJ 3-day renewable pass",
			},
			{
				Domain:         "theatlantic.com",
				Mode:           ModeEZProxySearch,
				URL:            "https://sonomalibrary.idm.oclc.org/login?url=https://search.ebscohost.com/login.aspx?direct=true&db=f5h",
				SearchSelector: "input[name='query']",
				Description:    "Atlantic via EBSCO MasterFile Complete",
			},
			{
				Domain:         "economist.com",
				Mode:           ModeEZProxySearch,
				URL:            "https://sonomalibrary.idm.oclc.org/login?url=https://www.pressreader.com",
				SearchSelector: "input[type='search']",
				Description:    "Economist via PressReader",
			},
			{
				Domain:      "pressdemocrat.com",
				Mode:        ModeEZProxyWrapper,
				URL:         "https://sonomalibrary.idm.oclc.org/login?url=https://infoweb.newsbank.com/apps/news/browse-source?p=WORLDNEWS&t=product%3DSonoma",
				Description: "Press Democrat via NewsBank",
			},
		},
	}
}
