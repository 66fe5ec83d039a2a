// File: internal/access/urlbuilder_test.go
package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

func testProfile() *profile.LibraryProfile {
	return &profile.LibraryProfile{
		LibraryName:  "Test Library",
		ProxyBaseURL: "https://lib.edu",
		LoginPath:    "/login?url=",
	}
}

func TestBuildDirectLogin(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.ModeDirectLogin, URL: "https://lib.edu/nyt-remote"}
	got := BuildLibraryURL(s, testProfile(), "https://news.com/a", "")
	assert.Equal(t, "https://lib.edu/nyt-remote", got)
}

func TestBuildDirectLoginWithoutURL(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.ModeDirectLogin}
	assert.Empty(t, BuildLibraryURL(s, testProfile(), "https://news.com/a", ""))
}

func TestBuildEZProxyWrapper(t *testing.T) {
	t.Run("With Explicit URL", func(t *testing.T) {
		s := &profile.SiteStrategy{Mode: profile.ModeEZProxyWrapper, URL: "https://lib.edu/newsbank"}
		got := BuildLibraryURL(s, testProfile(), "https://news.com/a", "")
		assert.Equal(t, "https://lib.edu/newsbank", got)
	})

	t.Run("Wraps Article URL When Unset", func(t *testing.T) {
		s := &profile.SiteStrategy{Mode: profile.ModeEZProxyWrapper}
		got := BuildLibraryURL(s, testProfile(), "https://news.com/a", "")
		assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Fnews.com%2Fa", got)
	})
}

func TestBuildEZProxySearch(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.ModeEZProxySearch, URL: "https://lib.edu/ebsco"}
	got := BuildLibraryURL(s, testProfile(), "https://news.com/a", "Some Title")
	// The title is consumed later by the search injector, not the URL.
	assert.Equal(t, "https://lib.edu/ebsco", got)
}

func TestBuildCustomTemplate(t *testing.T) {
	s := &profile.SiteStrategy{
		Mode: profile.ModeCustom,
		URL:  "https://x/{{articleUrl}}?t={{title}}",
	}
	got := BuildLibraryURL(s, testProfile(), "https://a.com/p?q=1", "Hi There")
	assert.Equal(t, "https://x/https%3A%2F%2Fa.com%2Fp%3Fq%3D1?t=Hi%20There", got)
}

func TestBuildCustomWithoutTemplate(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.ModeCustom}
	assert.Empty(t, BuildLibraryURL(s, testProfile(), "https://a.com", "T"))
}

func TestBuildCustomTokensAbsentFromTemplate(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.ModeCustom, URL: "https://x/static"}
	got := BuildLibraryURL(s, testProfile(), "https://a.com", "T")
	assert.Equal(t, "https://x/static", got)
}

func TestBuildUnknownModeFallsBack(t *testing.T) {
	s := &profile.SiteStrategy{Mode: profile.StrategyMode("mystery")}
	got := BuildLibraryURL(s, testProfile(), "https://news.com/a", "")
	assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Fnews.com%2Fa", got)
}

func TestBuildNilStrategyFallsBack(t *testing.T) {
	got := BuildLibraryURL(nil, testProfile(), "https://news.com/a", "")
	assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Fnews.com%2Fa", got)
}

func TestFallbackURL(t *testing.T) {
	got := FallbackURL(testProfile(), "https://news.com/a b")
	assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Fnews.com%2Fa%20b", got)
}
