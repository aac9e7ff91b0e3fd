package mcpshot

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultHandshakeTimeout bounds each wait for server_info.
	DefaultHandshakeTimeout = 5 * time.Second
	// DefaultHandshakeDeadline bounds the whole handshake.
	DefaultHandshakeDeadline = 30 * time.Second
	// DefaultResponseTimeout bounds each wait for a response.
	DefaultResponseTimeout = 30 * time.Second
	// DefaultProtocolVersion is announced in the initialize request.
	DefaultProtocolVersion = "2024-11-05"
)

// Config describes the child to run and the conversation to drive.
type Config struct {
	Command          []string
	Dir              string
	OutputPath       string
	ClientName       string
	ClientVersion    string
	ProtocolVersion  string
	ListDevicesTool  string
	ScreenshotTool   string
	HandshakeTimeout time.Duration
	// HandshakeDeadline caps the handshake even while the server keeps
	// sending messages other than server_info.
	HandshakeDeadline time.Duration
	ResponseTimeout   time.Duration
	ShutdownGrace     time.Duration
	DrainJoinWait     time.Duration
	StderrTTY         bool
}

// DefaultConfig returns the configuration for a mobile-mcp server started
// from the current directory.
func DefaultConfig() Config {
	return Config{
		Command:           []string{"node", "mobile-mcp/lib/index.js", "--stdio"},
		OutputPath:        DefaultOutputFileName,
		ClientName:        "mcpshot",
		ClientVersion:     "0.1.0",
		ProtocolVersion:   DefaultProtocolVersion,
		ListDevicesTool:   ToolListDevices,
		ScreenshotTool:    ToolTakeScreenshot,
		HandshakeTimeout:  DefaultHandshakeTimeout,
		HandshakeDeadline: DefaultHandshakeDeadline,
		ResponseTimeout:   DefaultResponseTimeout,
		ShutdownGrace:     DefaultShutdownGrace,
		DrainJoinWait:     DefaultDrainJoinWait,
	}
}

type fileConfig struct {
	Command           []string `toml:"command"`
	Dir               string   `toml:"dir,omitempty"`
	Output            string   `toml:"output"`
	ClientName        string   `toml:"client_name"`
	ClientVersion     string   `toml:"client_version"`
	ProtocolVersion   string   `toml:"protocol_version"`
	ListDevicesTool   string   `toml:"list_devices_tool"`
	ScreenshotTool    string   `toml:"screenshot_tool"`
	HandshakeTimeout  string   `toml:"handshake_timeout"`
	HandshakeDeadline string   `toml:"handshake_deadline"`
	ResponseTimeout   string   `toml:"response_timeout"`
	ShutdownGrace     string   `toml:"shutdown_grace"`
	DrainJoinWait     string   `toml:"drain_join_wait"`
	StderrTTY         bool     `toml:"stderr_tty"`
}

// LoadConfig reads a TOML file and applies the keys it defines on top of
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	var raw fileConfig

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return applyFileConfig(DefaultConfig(), raw, meta)
}

// ParseConfig is LoadConfig for in-memory TOML.
func ParseConfig(data string) (Config, error) {
	var raw fileConfig

	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return applyFileConfig(DefaultConfig(), raw, meta)
}

func applyFileConfig(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return Config{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if meta.IsDefined("command") {
		cfg.Command = raw.Command
	}

	if meta.IsDefined("dir") {
		cfg.Dir = strings.TrimSpace(raw.Dir)
	}

	if meta.IsDefined("output") {
		cfg.OutputPath = strings.TrimSpace(raw.Output)
	}

	if meta.IsDefined("client_name") {
		cfg.ClientName = strings.TrimSpace(raw.ClientName)
	}

	if meta.IsDefined("client_version") {
		cfg.ClientVersion = strings.TrimSpace(raw.ClientVersion)
	}

	if meta.IsDefined("protocol_version") {
		cfg.ProtocolVersion = strings.TrimSpace(raw.ProtocolVersion)
	}

	if meta.IsDefined("list_devices_tool") {
		cfg.ListDevicesTool = strings.TrimSpace(raw.ListDevicesTool)
	}

	if meta.IsDefined("screenshot_tool") {
		cfg.ScreenshotTool = strings.TrimSpace(raw.ScreenshotTool)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"handshake_deadline", raw.HandshakeDeadline, &cfg.HandshakeDeadline},
		{"response_timeout", raw.ResponseTimeout, &cfg.ResponseTimeout},
		{"shutdown_grace", raw.ShutdownGrace, &cfg.ShutdownGrace},
		{"drain_join_wait", raw.DrainJoinWait, &cfg.DrainJoinWait},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}

		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}

		*d.dst = v
	}

	if meta.IsDefined("stderr_tty") {
		cfg.StderrTTY = raw.StderrTTY
	}

	return cfg, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return fmt.Errorf("%w: command is empty", ErrInvalidConfig)
	}

	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}

	if c.ListDevicesTool == "" || c.ScreenshotTool == "" {
		return fmt.Errorf("%w: tool names are required", ErrInvalidConfig)
	}

	bounds := []struct {
		name string
		d    time.Duration
	}{
		{"handshake_timeout", c.HandshakeTimeout},
		{"handshake_deadline", c.HandshakeDeadline},
		{"response_timeout", c.ResponseTimeout},
		{"shutdown_grace", c.ShutdownGrace},
		{"drain_join_wait", c.DrainJoinWait},
	}
	for _, b := range bounds {
		if b.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, b.name)
		}
	}

	if c.HandshakeDeadline < c.HandshakeTimeout {
		return fmt.Errorf("%w: handshake_deadline is shorter than handshake_timeout", ErrInvalidConfig)
	}

	return nil
}

// WriteTOML writes the configuration in the format LoadConfig reads.
func (c Config) WriteTOML(w io.Writer) error {
	out := fileConfig{
		Command:           c.Command,
		Dir:               c.Dir,
		Output:            c.OutputPath,
		ClientName:        c.ClientName,
		ClientVersion:     c.ClientVersion,
		ProtocolVersion:   c.ProtocolVersion,
		ListDevicesTool:   c.ListDevicesTool,
		ScreenshotTool:    c.ScreenshotTool,
		HandshakeTimeout:  c.HandshakeTimeout.String(),
		HandshakeDeadline: c.HandshakeDeadline.String(),
		ResponseTimeout:   c.ResponseTimeout.String(),
		ShutdownGrace:     c.ShutdownGrace.String(),
		DrainJoinWait:     c.DrainJoinWait.String(),
		StderrTTY:         c.StderrTTY,
	}

	if err := toml.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}
