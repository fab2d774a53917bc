// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/logger"
)

var (
	configPath string // Path to the configuration directory holding main.toml
	devMode    bool

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "assetdesk",
		Short: "assetdesk is a multi-tenant inventory service",
		Long: `assetdesk is a multi-tenant inventory service.

This binary runs its identity and access control API: local or external
OpenID Connect authentication, platform and tenant roles and the
user directory sync.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory of main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and initialises the global logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}
