// File: cmd/open.go
package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/observability"
	"github.com/xkilldash9x/libpass-cli/internal/service"
)

// newOpenCmd creates the `open` command: route one article through the
// library portal and run the site's click/search automation to completion.
func newOpenCmd() *cobra.Command {
	var (
		domain string
		title  string
	)

	openCmd := &cobra.Command{
		Use:   "open [article-url]",
		Short: "Opens an article through the configured library access route",
		Long: `Open resolves the site strategy for the article's domain, builds the
library access URL, and drives the site's login and redemption steps in a
headless browser until the flow finishes or times out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			articleURL, host, err := resolveArticle(args[0], domain)
			if err != nil {
				return err
			}

			components, err := service.NewComponents(ctx, appConfig, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown(logger)

			resp, err := components.Handler.Handle(ctx, schemas.Message{
				Type:   schemas.MsgOpenViaLibrary,
				Domain: host,
				URL:    articleURL,
				Title:  title,
			})
			if err != nil {
				return fmt.Errorf("failed to open article via library: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", resp.URL)
			if resp.Session != "" {
				logger.Info("Automation session started",
					zap.String("session", resp.Session),
					zap.String("domain", host),
				)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No automation strategy for this site; opened the generic proxy route.")
			}

			// Shutdown (deferred) drains the automation before the browser goes
			// away, so by the time the command returns the flow has finished.
			return nil
		},
	}

	openCmd.Flags().StringVar(&domain, "domain", "", "override the domain used for strategy resolution")
	openCmd.Flags().StringVar(&title, "title", "", "article title, used as the search term by search strategies")
	return openCmd
}

// resolveArticle normalizes the article URL and picks the domain used for
// strategy resolution. A bare hostname argument gets an https scheme.
func resolveArticle(raw, domainOverride string) (articleURL, host string, err error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid article URL %q", raw)
	}

	host = parsed.Host
	if domainOverride != "" {
		host = domainOverride
	}
	return parsed.String(), host, nil
}
