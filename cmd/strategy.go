// File: cmd/strategy.go
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/libpass-cli/internal/access"
	"github.com/xkilldash9x/libpass-cli/internal/observability"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
	"github.com/xkilldash9x/libpass-cli/internal/store"
)

// newStrategyCmd creates the `strategy` command: show which strategy a
// domain resolves to, and optionally the access URL it would produce.
func newStrategyCmd() *cobra.Command {
	var (
		articleURL string
		title      string
	)

	strategyCmd := &cobra.Command{
		Use:   "strategy [domain]",
		Short: "Shows the site strategy a domain resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			domain := args[0]

			st, err := store.Open(appConfig.Storage.Path, logger)
			if err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer st.Close()

			p, err := st.Profile(ctx)
			if err != nil {
				if !errors.Is(err, store.ErrNoProfile) {
					return fmt.Errorf("failed to load profile: %w", err)
				}
				p = profile.DefaultProfile()
			}

			strat := p.Resolve(domain)
			if strat == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No strategy for %q; the generic proxy route would be used:\n", domain)
				fmt.Fprintln(cmd.OutOrStdout(), access.FallbackURL(p, articleURL))
				return nil
			}

			out, err := json.MarshalIndent(strat, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode strategy: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if articleURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nAccess URL:\n%s\n", access.BuildLibraryURL(strat, p, articleURL, title))
			}
			return nil
		},
	}

	strategyCmd.Flags().StringVar(&articleURL, "article-url", "", "also print the access URL built for this article")
	strategyCmd.Flags().StringVar(&title, "title", "", "article title substituted into search templates")
	return strategyCmd
}
