package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check for a newer Chromium release and install it",
		Long: `Query the release index for a version newer than the bundled baseline
and install it immediately. Unlike the automatic background check this
runs synchronously and reports failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd)
			if err != nil {
				return err
			}
			version, err := m.CheckForUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Already up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated to %s\n", version)
			return nil
		},
	}
}
