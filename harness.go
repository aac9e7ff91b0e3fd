// Package mcpshot drives a child process that speaks line-delimited
// JSON-RPC over stdio through a fixed capture conversation.
package mcpshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Result summarises a finished run.
type Result struct {
	// State is the last conversation state entered before shutdown. A step
	// that fails does not enter a new state, so an initialize error after a
	// completed handshake reports StateHandshaking.
	State      State
	DeviceID   string
	OutputPath string
	Bytes      int
}

// Harness runs one conversation against one child process.
type Harness struct {
	cfg      Config
	logger   zerolog.Logger
	procOpts []ProcessOption

	proc   *Process
	nextID int64
	state  State
}

// NewHarness validates cfg and prepares a harness. Options are passed to the
// child process; WithLogger also sets the harness logger.
func NewHarness(cfg Config, opts ...ProcessOption) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolved := resolveProcessOptions(opts)

	return &Harness{
		cfg:      cfg,
		logger:   resolved.logger,
		procOpts: opts,
		state:    StateNotStarted,
	}, nil
}

// State returns the current conversation state.
func (h *Harness) State() State {
	return h.state
}

// Run drives the whole conversation: start, handshake, initialize, list
// devices and capture from the first one. The child is always shut down
// before Run returns.
func (h *Harness) Run(ctx context.Context) (res Result, err error) {
	if err := h.Start(ctx); err != nil {
		return Result{State: h.state}, err
	}

	defer func() {
		res.State = h.state
		h.Shutdown()
	}()

	if err := h.Handshake(); err != nil {
		return res, fmt.Errorf("handshake: %w", err)
	}

	if err := h.Initialize(); err != nil {
		return res, fmt.Errorf("initialize: %w", err)
	}

	deviceID, ok, err := h.ListDevices()
	if err != nil {
		return res, fmt.Errorf("list devices: %w", err)
	}

	if !ok {
		return res, nil
	}

	res.DeviceID = deviceID

	n, err := h.CaptureArtifact(deviceID)
	if err != nil {
		return res, fmt.Errorf("capture artifact: %w", err)
	}

	if n > 0 {
		res.OutputPath = h.cfg.OutputPath
		res.Bytes = n
	}

	return res, nil
}

// Start spawns the child.
func (h *Harness) Start(ctx context.Context) error {
	if h.proc != nil {
		return errors.New("harness already started")
	}

	opts := make([]ProcessOption, 0, len(h.procOpts)+2)
	opts = append(opts, WithDir(h.cfg.Dir), WithStderrTTY(h.cfg.StderrTTY))
	opts = append(opts, h.procOpts...)

	proc, err := StartProcess(ctx, h.cfg.Command, opts...)
	if err != nil {
		h.state = StateTerminated

		return err
	}

	h.proc = proc
	h.state = StateSpawned

	return nil
}

// Shutdown stops the child if it was started. Repeated calls are no-ops.
func (h *Harness) Shutdown() {
	if h.proc != nil {
		h.proc.Shutdown(h.cfg.ShutdownGrace, h.cfg.DrainJoinWait)
	}

	h.state = StateTerminated
}

// Handshake waits for server_info. A server that stays silent for the
// handshake timeout is presumed ready, and so is one that is still talking
// when the handshake deadline passes.
func (h *Harness) Handshake() error {
	if h.proc == nil {
		return errors.New("harness not started")
	}

	h.state = StateHandshaking
	deadline := time.Now().Add(h.cfg.HandshakeDeadline)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			h.logger.Warn().Dur("deadline", h.cfg.HandshakeDeadline).Msg("no server_info before handshake deadline, assuming server is ready")

			return nil
		}

		msg, err := h.proc.Receive(min(h.cfg.HandshakeTimeout, remaining))

		switch {
		case errors.Is(err, ErrTimeout):
			h.logger.Info().Msg("no message from server, assuming it is ready")

			return nil
		case errors.Is(err, ErrMalformedMessage):
			h.logger.Warn().Err(err).Msg("ignoring malformed message during handshake")
		case err != nil:
			return err
		case msg.Method == MethodServerInfo:
			h.logger.Info().RawJSON("params", rawOrNull(msg.Params)).Msg("received server_info")

			return nil
		default:
			h.logger.Info().Str("method", msg.Method).Msg("waiting for server_info")
		}
	}
}

// Initialize opens the session. An error response is fatal.
func (h *Harness) Initialize() error {
	params := map[string]any{
		"protocolVersion": h.cfg.ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    h.cfg.ClientName,
			"version": h.cfg.ClientVersion,
		},
	}

	resp, err := h.call(MethodInitialize, params)
	if err != nil {
		return err
	}

	if resp.HasError() {
		return fmt.Errorf("%w: %s", ErrProtocol, resp.RPCError())
	}

	h.logger.Info().RawJSON("result", rawOrNull(resp.Result)).Msg("initialized")
	h.state = StateInitialized

	return nil
}

// ListDevices asks for the device list and returns the first device id.
// Unusable payloads are logged and reported as no devices.
func (h *Harness) ListDevices() (string, bool, error) {
	resp, err := h.callTool(h.cfg.ListDevicesTool, map[string]any{})
	if err != nil {
		return "", false, err
	}

	h.state = StateDevicesListed

	deviceID, err := firstDeviceID(resp)
	if err != nil {
		h.logger.Warn().Err(err).Msg("device list unusable")
		h.state = StateNoDevices

		return "", false, nil
	}

	if deviceID == "" {
		h.logger.Info().Msg("no devices found")
		h.state = StateNoDevices

		return "", false, nil
	}

	h.logger.Info().Str("device", deviceID).Msg("found device")

	return deviceID, true, nil
}

// CaptureArtifact requests a screenshot from deviceID and writes the decoded
// bytes to the output path. It returns the number of bytes written; zero
// means the response carried no usable artifact.
func (h *Harness) CaptureArtifact(deviceID string) (int, error) {
	resp, err := h.callTool(h.cfg.ScreenshotTool, map[string]any{"device": deviceID})
	if err != nil {
		return 0, err
	}

	data, err := artifactBytes(resp)
	if err != nil {
		h.logger.Warn().Err(err).Str("device", deviceID).Msg("capture returned no artifact")

		return 0, nil
	}

	if err := os.WriteFile(h.cfg.OutputPath, data, outputFilePerm); err != nil {
		return 0, fmt.Errorf("write %s: %w", h.cfg.OutputPath, err)
	}

	h.state = StateArtifactCaptured
	h.logger.Info().Str("path", h.cfg.OutputPath).Int("bytes", len(data)).Msg("artifact saved")

	return len(data), nil
}

func firstDeviceID(resp Message) (string, error) {
	if resp.HasError() {
		return "", fmt.Errorf("%w: %s", ErrDataShape, resp.RPCError())
	}

	result, err := ParseToolResult(resp.Result)
	if err != nil {
		return "", err
	}

	text, ok := result.FirstText()
	if !ok {
		return "", fmt.Errorf("%w: no text content", ErrDataShape)
	}

	list, err := ParseDeviceList(text)
	if err != nil {
		return "", err
	}

	first, ok, err := list.First()
	if err != nil || !ok {
		return "", err
	}

	return first.ID, nil
}

func artifactBytes(resp Message) ([]byte, error) {
	if resp.HasError() {
		return nil, fmt.Errorf("%w: %s", ErrDataShape, resp.RPCError())
	}

	result, err := ParseToolResult(resp.Result)
	if err != nil {
		return nil, err
	}

	block, ok := result.FirstData()
	if !ok {
		return nil, fmt.Errorf("%w: no inline data", ErrDataShape)
	}

	return DecodeArtifact(block.Data)
}

func (h *Harness) callTool(name string, input map[string]any) (Message, error) {
	return h.call(MethodToolCall, ToolCallParams{Name: name, Input: input})
}

// call sends one request and returns the next response. Server requests and
// notifications received in between are logged and skipped; the whole wait
// is bounded by the response timeout.
func (h *Harness) call(method string, params any) (Message, error) {
	if h.proc == nil {
		return Message{}, errors.New("harness not started")
	}

	id := h.nextID
	h.nextID++

	req, err := NewRequest(id, method, params)
	if err != nil {
		return Message{}, err
	}

	if err := h.proc.Send(req); err != nil {
		return Message{}, fmt.Errorf("send %s: %w", method, err)
	}

	deadline := time.Now().Add(h.cfg.ResponseTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Message{}, fmt.Errorf("%s: %w after %s", method, ErrTimeout, h.cfg.ResponseTimeout)
		}

		msg, err := h.proc.Receive(remaining)
		if err != nil {
			return Message{}, fmt.Errorf("%s: %w", method, err)
		}

		if !msg.IsResponse() {
			h.logger.Debug().Str("method", msg.Method).Msg("skipping server message")

			continue
		}

		if got, ok := msg.IDValue(); ok && got != id {
			h.logger.Warn().Int64("want", id).Int64("got", got).Msg("response id mismatch")
		}

		return msg, nil
	}
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}

	return raw
}
