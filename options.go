package mcpshot

import "github.com/rs/zerolog"

// ProcessOptions defines how the child process is started and observed.
type ProcessOptions struct {
	logger    zerolog.Logger
	dir       string
	env       []string
	stderrTTY bool
}

// ProcessOption configures a child process.
type ProcessOption func(*ProcessOptions)

// WithLogger sets the logger used for lifecycle events and child diagnostics.
func WithLogger(l zerolog.Logger) ProcessOption {
	return func(o *ProcessOptions) {
		o.logger = l
	}
}

// WithDir overrides the working directory. Empty means the current directory.
func WithDir(dir string) ProcessOption {
	return func(o *ProcessOptions) {
		o.dir = dir
	}
}

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) ProcessOption {
	return func(o *ProcessOptions) {
		o.env = append(o.env, env...)
	}
}

// WithStderrTTY attaches the child's stderr to a pseudo-terminal.
func WithStderrTTY(enabled bool) ProcessOption {
	return func(o *ProcessOptions) {
		o.stderrTTY = enabled
	}
}

func resolveProcessOptions(opts []ProcessOption) ProcessOptions {
	out := defaultProcessOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}

	return out
}

func defaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		logger:    zerolog.Nop(),
		stderrTTY: false,
	}
}
