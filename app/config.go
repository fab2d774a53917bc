package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assetdesk/assetdesk/internal/config"
)

func init() { //nolint: gochecknoinits
	configDumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "dump as JSON, usable as "+config.EnvConfigJSON)
	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	dumpJSON bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration with secrets redacted",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			cfg, err = config.ReadConfig(configPath)

			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dump := config.DumpConfig
			if dumpJSON {
				dump = config.DumpConfigJSON
			}

			out, err := dump(&cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}
)
