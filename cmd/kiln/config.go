package main

import (
	"time"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [flags]",
	Short: "Print the effective configuration",
	Long: `Print the configuration kiln would build with: the nearest kiln.toml
(or kiln.yaml) merged over the defaults, with command-line overrides
applied. The output is a sorted "key = value" listing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cfg.Print(cmd.OutOrStdout(), time.Now())
	},
}

func init() {
	addConfigFlags(configCmd)
}
