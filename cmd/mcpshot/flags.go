package main

import (
	"time"

	"github.com/metalagman/mcpshot"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configFile        string
	output            string
	dir               string
	handshakeTimeout  time.Duration
	handshakeDeadline time.Duration
	responseTimeout   time.Duration
	shutdownGrace     time.Duration
	stderrTTY         bool
	debug             bool
	jsonLogs          bool
}

func addConfigFlag(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVar(&opts.configFile, "config", "", "path to a TOML config file")
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	defaults := mcpshot.DefaultConfig()

	addConfigFlag(cmd, opts)
	cmd.Flags().StringVar(&opts.output, "output", defaults.OutputPath, "file the captured screenshot is written to")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "working directory for the server (default: current directory)")
	cmd.Flags().DurationVar(&opts.handshakeTimeout, "handshake-timeout", defaults.HandshakeTimeout, "wait for server_info before assuming the server is ready")
	cmd.Flags().DurationVar(&opts.handshakeDeadline, "handshake-deadline", defaults.HandshakeDeadline, "give up on server_info after this long even if the server keeps talking")
	cmd.Flags().DurationVar(&opts.responseTimeout, "response-timeout", defaults.ResponseTimeout, "wait for each response")
	cmd.Flags().DurationVar(&opts.shutdownGrace, "shutdown-grace", defaults.ShutdownGrace, "wait after asking the server to terminate before killing it")
	cmd.Flags().BoolVar(&opts.stderrTTY, "stderr-tty", false, "attach the server's stderr to a pseudo-terminal")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every message exchanged with the server")
	cmd.Flags().BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON instead of console text")
}

// applyFlagOverrides copies explicitly set flags over cfg. Flags left at
// their defaults do not mask values from the config file.
func applyFlagOverrides(cmd *cobra.Command, opts *runOptions, cfg *mcpshot.Config) {
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.OutputPath = opts.output
	}

	if flags.Changed("dir") {
		cfg.Dir = opts.dir
	}

	if flags.Changed("handshake-timeout") {
		cfg.HandshakeTimeout = opts.handshakeTimeout
	}

	if flags.Changed("handshake-deadline") {
		cfg.HandshakeDeadline = opts.handshakeDeadline
	}

	if flags.Changed("response-timeout") {
		cfg.ResponseTimeout = opts.responseTimeout
	}

	if flags.Changed("shutdown-grace") {
		cfg.ShutdownGrace = opts.shutdownGrace
	}

	if flags.Changed("stderr-tty") {
		cfg.StderrTTY = opts.stderrTTY
	}
}
