// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
)

var (
	configPath string // Path to the configuration directory

	rootCmd = &cobra.Command{
		Use:   "go-settings",
		Short: "go-settings stores application settings with a pluggable cache",
		Long: `go-settings keeps named configuration values in a database
and serves them through a read-through cache that is invalidated on every write.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"directory containing main.toml (default ./etc/)",
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// readConfig loads the configuration from the --config directory.
func readConfig() (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
