// Package cmd implements the cloakfetch command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloakhq/cloakfetch/internal/binary"
	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:   "cloakfetch",
		Short: "Fetch and manage the stealth Chromium binary",
		Long: `cloakfetch downloads, verifies, and caches the patched Chromium build
used by cloakbrowser, and keeps it up to date in the background.

Binaries live under ~/.cloakbrowser by default; see CLOAKBROWSER_CACHE_DIR
and friends for overrides.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(newEnsureCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newClearCacheCmd())
	rootCmd.AddCommand(newGeoIPCmd())

	return rootCmd.Execute()
}

func newLogger() config.Logger {
	level := config.LevelInfo
	switch {
	case quiet:
		level = config.LevelError
	case verbose:
		level = config.LevelDebug
	}
	return config.NewTextLogger(os.Stderr, level)
}

// newManager loads configuration, detects the platform, and wires up a
// binary manager. Shared by every subcommand.
func newManager(cmd *cobra.Command) (*binary.Manager, *config.Config, error) {
	log := newLogger()
	cfg, err := config.Load(log)
	if err != nil {
		return nil, nil, err
	}
	info, err := platform.NewDetector().Detect(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	m, err := binary.NewManager(cfg, info)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}
