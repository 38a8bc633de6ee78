package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long:  "Print the configuration after merging defaults and the --config file. The output is a valid config file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Write(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
