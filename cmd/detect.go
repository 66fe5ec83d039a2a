// File: cmd/detect.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/libpass-cli/internal/browser"
	"github.com/xkilldash9x/libpass-cli/internal/detect"
	"github.com/xkilldash9x/libpass-cli/internal/observability"
)

// newDetectCmd creates the `detect` command: check one or more pages for a
// paywall. URL targets load in the headless browser; file targets are parsed
// as static HTML (and need --domain to pick the rule set).
func newDetectCmd() *cobra.Command {
	var (
		domain       string
		watch        bool
		watchTimeout time.Duration
	)

	detectCmd := &cobra.Command{
		Use:   "detect [url|html-file]...",
		Short: "Checks whether pages are showing a paywall",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// The browser starts lazily: a run over only HTML files never
			// launches one.
			var (
				mgr     *browser.Manager
				mgrOnce sync.Once
				mgrErr  error
			)
			getManager := func() (*browser.Manager, error) {
				mgrOnce.Do(func() {
					mgr, mgrErr = browser.NewManager(ctx, appConfig, logger)
				})
				return mgr, mgrErr
			}
			defer func() {
				if mgr != nil {
					mgr.Close()
				}
			}()

			reports := make([]string, len(args))
			g, gctx := errgroup.WithContext(ctx)
			for i, target := range args {
				g.Go(func() error {
					var (
						report string
						err    error
					)
					if isFile(target) {
						report, err = detectStatic(target, domain)
					} else {
						report, err = detectLive(gctx, getManager, target, watch, watchTimeout, appConfig.Detect.WatchInterval)
					}
					if err != nil {
						return fmt.Errorf("%s: %w", target, err)
					}
					reports[i] = report
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, report := range reports {
				fmt.Fprint(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}

	detectCmd.Flags().StringVar(&domain, "domain", "", "domain whose rules apply to HTML file targets")
	detectCmd.Flags().BoolVar(&watch, "watch", false, "keep watching live pages for late-injected paywalls")
	detectCmd.Flags().DurationVar(&watchTimeout, "watch-timeout", 15*time.Second, "how long to watch before giving up")
	return detectCmd
}

func isFile(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

// detectStatic runs detection over an HTML file on disk.
func detectStatic(path, domain string) (string, error) {
	if domain == "" {
		return "", errors.New("--domain is required for HTML file targets")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	res, err := detect.DetectHTML(string(data), domain)
	if err != nil {
		return "", err
	}
	title, err := detect.ExtractTitleHTML(string(data))
	if err != nil {
		return "", err
	}
	return formatReport(path, res, title), nil
}

// detectLive loads the page in the browser and runs detection over its
// rendered HTML, optionally watching for a late-injected paywall.
func detectLive(
	ctx context.Context,
	getManager func() (*browser.Manager, error),
	target string,
	watch bool,
	watchTimeout, watchInterval time.Duration,
) (string, error) {
	articleURL, host, err := resolveArticle(target, "")
	if err != nil {
		return "", err
	}
	if detect.Match(host) == nil {
		return fmt.Sprintf("%s: no detection rules for this site\n", host), nil
	}

	mgr, err := getManager()
	if err != nil {
		return "", fmt.Errorf("failed to start browser: %w", err)
	}
	tab, err := mgr.NewTab(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()

	if err := tab.Navigate(ctx, articleURL); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		return "", err
	}
	res, err := detect.DetectHTML(html, host)
	if err != nil {
		return "", err
	}

	// Some paywalls are injected well after the load event. With --watch,
	// keep re-checking fresh snapshots before declaring the page clean.
	if !res.Detected && watch {
		watchCtx, cancel := context.WithTimeout(ctx, watchTimeout)
		defer cancel()
		res, err = detect.Watch(watchCtx, tab.HTML, host, watchInterval)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}

	title, err := detect.ExtractTitleHTML(html)
	if err != nil {
		return "", err
	}
	return formatReport(host, res, title), nil
}

func formatReport(target string, res detect.Result, title string) string {
	out := ""
	if res.Detected {
		out = fmt.Sprintf("paywall detected on %s (%s rule %q)\n", target, res.Kind, res.Rule)
	} else {
		out = fmt.Sprintf("no paywall detected on %s\n", target)
	}
	if title != "" {
		out += fmt.Sprintf("title: %s\n", title)
	}
	return out
}
