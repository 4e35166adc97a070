package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var infoJSON bool

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the resolved version, platform, and cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd)
			if err != nil {
				return err
			}
			status := m.Info()

			if infoJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:          %s\n", status.Version)
			fmt.Fprintf(out, "Bundled version:  %s\n", status.BundledVersion)
			fmt.Fprintf(out, "Platform:         %s\n", status.Platform)
			fmt.Fprintf(out, "Installed:        %v\n", status.Installed)
			fmt.Fprintf(out, "Executable:       %s\n", status.ExecutablePath)
			fmt.Fprintf(out, "Cache dir:        %s\n", status.CacheDir)
			fmt.Fprintf(out, "Download URL:     %s\n", status.DownloadURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&infoJSON, "json", false, "Output as JSON")
	return cmd
}
