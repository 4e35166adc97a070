package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Download the stealth Chromium binary if not already cached",
		Long: `Ensure a usable Chromium binary is present in the cache, downloading,
verifying, and installing it on first run. Prints the executable path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd)
			if err != nil {
				return err
			}
			path, err := m.EnsureBinary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
