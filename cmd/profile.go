// File: cmd/profile.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/internal/observability"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
	"github.com/xkilldash9x/libpass-cli/internal/store"
)

// newProfileCmd creates the `profile` command group for inspecting and
// replacing the stored library profile.
func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manages the library profile (strategies, proxy base, credentials)",
	}
	profileCmd.AddCommand(
		newProfileShowCmd(),
		newProfileImportCmd(),
		newProfileExportCmd(),
	)
	return profileCmd
}

// loadStoredProfile fetches the profile from the store, falling back to the
// built-in default when nothing has been imported yet.
func loadStoredProfile(cmd *cobra.Command, st *store.Store) (*profile.LibraryProfile, error) {
	p, err := st.Profile(cmd.Context())
	if err != nil {
		if !errors.Is(err, store.ErrNoProfile) {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		return profile.DefaultProfile(), nil
	}
	return p, nil
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Prints the active library profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(appConfig.Storage.Path, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer st.Close()

			p, err := loadStoredProfile(cmd, st)
			if err != nil {
				return err
			}
			data, err := profile.Marshal(p)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newProfileImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Imports a library profile from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			p, err := profile.ImportFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to import profile: %w", err)
			}

			st, err := store.Open(appConfig.Storage.Path, logger)
			if err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer st.Close()

			if err := st.PutProfile(cmd.Context(), p); err != nil {
				return fmt.Errorf("failed to store profile: %w", err)
			}

			logger.Info("Profile imported",
				zap.String("library", p.LibraryName),
				zap.Int("strategies", len(p.Strategies)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %q with %d strategies.\n", p.LibraryName, len(p.Strategies))
			return nil
		},
	}
}

func newProfileExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Writes the active library profile to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(appConfig.Storage.Path, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer st.Close()

			p, err := loadStoredProfile(cmd, st)
			if err != nil {
				return err
			}
			if err := profile.ExportFile(p, args[0]); err != nil {
				return fmt.Errorf("failed to export profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported profile %q to %s.\n", p.LibraryName, args[0])
			return nil
		},
	}
}
