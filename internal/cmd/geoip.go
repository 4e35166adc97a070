package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/geoip"
)

func newGeoIPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geoip",
		Short: "Download the GeoLite2 city database used for proxy geolocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}
			path, err := geoip.NewCache(cfg).EnsureDatabase(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
