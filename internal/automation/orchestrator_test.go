// File: internal/automation/orchestrator_test.go
package automation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

func newOrchestratorFixture(t *testing.T, p *profile.LibraryProfile, pages ...*fakePage) (*Orchestrator, *memStore) {
	t.Helper()
	st := newMemStore()
	st.log = &eventLog{}
	profiles := &memProfiles{p: p}
	browser := &fakeBrowser{pages: pages}

	o, err := New(testConfig(), zap.NewNop(), profiles, st, browser)
	require.NoError(t, err)
	return o, st
}

func clickProfile() *profile.LibraryProfile {
	return &profile.LibraryProfile{
		LibraryName:  "Test Library",
		ProxyBaseURL: "https://lib.edu",
		LoginPath:    "/login?url=",
		Strategies: []profile.SiteStrategy{
			{
				Domain:          "nytimes.com",
				Mode:            profile.ModeDirectLogin,
				URL:             "https://lib.edu/nyt-remote",
				ClickSelectors:  []string{"#redeem", "#confirm"},
				ReturnToArticle: true,
			},
			{
				Domain:         "economist.com",
				Mode:           profile.ModeEZProxySearch,
				URL:            "https://lib.edu/pressreader",
				SearchSelector: "input[type='search']",
			},
		},
	}
}

func TestNewRejectsNilDependencies(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestOpenFallbackWhenNoStrategy(t *testing.T) {
	page := newFakePage()
	o, _ := newOrchestratorFixture(t, clickProfile(), page)

	res, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "unknown.example",
		URL:    "https://unknown.example/story",
	})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	assert.True(t, res.Fallback)
	assert.Empty(t, res.SessionID, "fallback opens no automation session")
	assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Funknown.example%2Fstory", res.TargetURL)

	navs := page.navigations()
	require.Len(t, navs, 1)
	assert.Equal(t, res.TargetURL, navs[0].url)
}

func TestOpenRunsClickSequenceAndReturns(t *testing.T) {
	page := newFakePage()
	page.setPresent("#redeem", true)
	page.setPresent("#confirm", true)
	// The first click navigates to the redeem page; the second does not
	// navigate, exercising the grace-window continuation.
	page.clickNavigates["#redeem"] = true

	o, st := newOrchestratorFixture(t, clickProfile(), page)

	res, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "www.nytimes.com",
		URL:    "https://www.nytimes.com/2026/01/01/story.html",
		Title:  "A Story",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, "https://lib.edu/nyt-remote", res.TargetURL)

	require.NoError(t, o.Wait())

	assert.Equal(t, []string{"#redeem", "#confirm"}, page.clickedSelectors())

	// Initial navigation plus the return-to-article hop.
	navs := page.navigations()
	require.Len(t, navs, 2)
	assert.Equal(t, "https://lib.edu/nyt-remote", navs[0].url)
	assert.Equal(t, "https://www.nytimes.com/2026/01/01/story.html", navs[1].url)

	stored, err := st.GetSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, 2, stored.CurrentStep)
}

func TestOpenSkipsUnreachableStepAndContinues(t *testing.T) {
	page := newFakePage()
	// First selector never appears; second does.
	page.setPresent("#confirm", true)

	o, st := newOrchestratorFixture(t, clickProfile(), page)

	res, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "nytimes.com",
		URL:    "https://nytimes.com/story",
	})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	// Only the reachable selector was clicked; the session still completed.
	assert.Equal(t, []string{"#confirm"}, page.clickedSelectors())
	stored, err := st.GetSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestOpenSearchStrategyInjectsSearch(t *testing.T) {
	page := newFakePage()
	o, st := newOrchestratorFixture(t, clickProfile(), page)

	res, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "www.economist.com",
		URL:    "https://www.economist.com/article",
		Title:  "Trade Winds",
	})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	evals := page.evaluated()
	require.Len(t, evals, 1)
	assert.Contains(t, evals[0], `"input[type='search']"`)
	assert.Contains(t, evals[0], `"Trade Winds"`)

	// No click selectors: the session ends once the search is dispatched.
	stored, err := st.GetSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestOpenEmptyBuiltURLFallsBackToProxyWrap(t *testing.T) {
	p := clickProfile()
	p.Strategies = append(p.Strategies, profile.SiteStrategy{
		Domain: "wsj.com",
		Mode:   profile.ModeCustom, // no template URL configured
	})
	page := newFakePage()
	o, _ := newOrchestratorFixture(t, p, page)

	res, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "wsj.com",
		URL:    "https://wsj.com/a",
	})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	assert.Equal(t, "https://lib.edu/login?url=https%3A%2F%2Fwsj.com%2Fa", res.TargetURL)
}

func TestOpenConcurrentRequestsKeepSeparateSessions(t *testing.T) {
	first := newFakePage()
	first.setPresent("#redeem", true)
	first.setPresent("#confirm", true)
	second := newFakePage()
	second.setPresent("#redeem", true)
	second.setPresent("#confirm", true)

	o, st := newOrchestratorFixture(t, clickProfile(), first, second)
	ctx := context.Background()

	resA, err := o.Open(ctx, schemas.OpenRequest{Domain: "nytimes.com", URL: "https://nytimes.com/a"})
	require.NoError(t, err)
	resB, err := o.Open(ctx, schemas.OpenRequest{Domain: "nytimes.com", URL: "https://nytimes.com/b"})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	require.NotEqual(t, resA.SessionID, resB.SessionID)

	a, err := st.GetSession(ctx, resA.SessionID)
	require.NoError(t, err)
	b, err := st.GetSession(ctx, resB.SessionID)
	require.NoError(t, err)

	// Both automations ran to completion on their own records.
	assert.Equal(t, 2, a.CurrentStep)
	assert.Equal(t, 2, b.CurrentStep)
	assert.False(t, a.Active)
	assert.False(t, b.Active)
	assert.Equal(t, "https://nytimes.com/a", a.ReturnToURL)
	assert.Equal(t, "https://nytimes.com/b", b.ReturnToURL)
}

func TestOpenFillsCredentialsBeforeSteps(t *testing.T) {
	p := clickProfile()
	p.LibraryCard = "29135000123456"
	p.PIN = "0000"
	p.SubmitSelector = "#login-submit"
	p.Strategies[0].FillSelectors = &profile.FillSelectors{
		Barcode: "#barcode",
		PIN:     "#pin",
	}

	page := newFakePage()
	page.setPresent("#redeem", true)
	page.setPresent("#confirm", true)
	page.log = &eventLog{}

	o, _ := newOrchestratorFixture(t, p, page)

	_, err := o.Open(context.Background(), schemas.OpenRequest{
		Domain: "nytimes.com",
		URL:    "https://nytimes.com/story",
	})
	require.NoError(t, err)
	require.NoError(t, o.Wait())

	require.Len(t, page.fills, 2)
	assert.Equal(t, fillRecord{selector: "#barcode", value: "29135000123456"}, page.fills[0])
	assert.Equal(t, fillRecord{selector: "#pin", value: "0000"}, page.fills[1])

	// Credentials are submitted before the click sequence starts.
	events := page.log.snapshot()
	submitIdx := indexOf(events, "click:#login-submit")
	firstStepIdx := indexOf(events, "click:#redeem")
	require.GreaterOrEqual(t, submitIdx, 0)
	require.GreaterOrEqual(t, firstStepIdx, 0)
	assert.Less(t, submitIdx, firstStepIdx)
}

func TestLoadProfileFallsBackToDefault(t *testing.T) {
	o, _ := newOrchestratorFixture(t, nil)
	p := o.LoadProfile(context.Background())
	require.NotNil(t, p)
	assert.True(t, strings.Contains(p.LibraryName, "Sonoma"))
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
