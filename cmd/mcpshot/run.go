package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/metalagman/mcpshot"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [-- server command...]",
		Short: "Start the server, list devices and capture a screenshot of the first one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args, opts)
			if err != nil {
				return err
			}

			logger := newLogger(os.Stderr, opts.debug, opts.jsonLogs)

			return runAndEmit(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}

// buildConfig layers defaults, the config file, explicit flags and the
// positional server command, in that order.
func buildConfig(cmd *cobra.Command, args []string, opts *runOptions) (mcpshot.Config, error) {
	cfg := mcpshot.DefaultConfig()

	if opts.configFile != "" {
		loaded, err := mcpshot.LoadConfig(opts.configFile)
		if err != nil {
			return mcpshot.Config{}, err
		}

		cfg = loaded
	}

	applyFlagOverrides(cmd, opts, &cfg)

	if len(args) > 0 {
		cfg.Command = append([]string(nil), args...)
	}

	if err := cfg.Validate(); err != nil {
		return mcpshot.Config{}, err
	}

	return cfg, nil
}

type runSummary struct {
	State    string `json:"state"`
	DeviceID string `json:"device_id,omitempty"`
	Output   string `json:"output,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runAndEmit(ctx context.Context, cfg mcpshot.Config, logger zerolog.Logger, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := mcpshot.NewHarness(cfg, mcpshot.WithLogger(logger))
	if err != nil {
		return err
	}

	res, runErr := h.Run(ctx)

	summary := runSummary{
		State:    res.State.String(),
		DeviceID: res.DeviceID,
		Output:   res.OutputPath,
		Bytes:    res.Bytes,
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("state", summary.State).Msg("run failed")
		summary.Error = runErr.Error()
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if _, err := fmt.Fprintln(stdout, string(data)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return runErr
}
