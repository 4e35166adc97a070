package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete all cached Chromium binaries",
		Long: `Remove the binary cache entirely. The next ensure re-downloads the
bundled baseline version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := newManager(cmd)
			if err != nil {
				return err
			}
			if err := m.ClearCache(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.CacheDir)
			return nil
		},
	}
}
