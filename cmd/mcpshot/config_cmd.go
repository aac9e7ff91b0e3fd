package main

import (
	"github.com/metalagman/mcpshot"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := mcpshot.DefaultConfig()
			if opts.configFile != "" {
				loaded, err := mcpshot.LoadConfig(opts.configFile)
				if err != nil {
					return err
				}

				cfg = loaded
			}

			return cfg.WriteTOML(cmd.OutOrStdout())
		},
	}

	addConfigFlag(cmd, opts)

	return cmd
}
