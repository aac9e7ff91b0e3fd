package mcpshot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
)

const (
	// DefaultShutdownGrace bounds the wait after a termination request.
	DefaultShutdownGrace = 5 * time.Second
	// DefaultDrainJoinWait bounds the wait for the diagnostics drain on shutdown.
	DefaultDrainJoinWait = 2 * time.Second
)

type lineResult struct {
	line []byte
	err  error
}

// Process is a running child speaking line-delimited JSON-RPC over stdio.
type Process struct {
	cmd    *exec.Cmd
	logger zerolog.Logger

	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	lines     chan lineResult
	done      chan struct{}
	exited    chan struct{}
	drainDone chan struct{}
	waitErr   error

	writeMu      sync.Mutex
	shutdownOnce sync.Once
}

// StartProcess spawns argv with piped standard streams and starts draining
// its stderr in the background.
func StartProcess(ctx context.Context, argv []string, opts ...ProcessOption) (*Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("%w: command is empty", ErrSpawn)
	}

	o := resolveProcessOptions(opts)

	dir := o.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Join(ErrSpawn, fmt.Errorf("get wd: %w", err))
		}

		dir = wd
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(o.env) > 0 {
		cmd.Env = append(os.Environ(), o.env...)
	}

	var childEnds []io.Closer
	closeChildEnds := func() {
		for _, c := range childEnds {
			_ = c.Close()
		}
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, errors.Join(ErrSpawn, fmt.Errorf("stdin pipe: %w", err))
	}
	childEnds = append(childEnds, stdinR)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeChildEnds()
		_ = stdinW.Close()

		return nil, errors.Join(ErrSpawn, fmt.Errorf("stdout pipe: %w", err))
	}
	childEnds = append(childEnds, stdoutW)

	stderrR, stderrW, err := openStderr(o.stderrTTY)
	if err != nil {
		closeChildEnds()
		_ = stdinW.Close()
		_ = stdoutR.Close()

		return nil, errors.Join(ErrSpawn, err)
	}
	childEnds = append(childEnds, stderrW)

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeChildEnds()
		_ = stdinW.Close()
		_ = stdoutR.Close()
		_ = stderrR.Close()

		return nil, errors.Join(ErrSpawn, fmt.Errorf("start %s: %w", argv[0], err))
	}

	closeChildEnds()

	p := &Process{
		cmd:       cmd,
		logger:    o.logger.With().Int("pid", cmd.Process.Pid).Logger(),
		stdin:     stdinW,
		stdout:    stdoutR,
		stderr:    stderrR,
		lines:     make(chan lineResult),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
		drainDone: make(chan struct{}),
	}

	p.logger.Info().Strs("argv", argv).Str("dir", dir).Bool("stderr_tty", o.stderrTTY).Msg("child started")

	go p.wait()
	go p.readLoop()
	go p.drain()

	return p, nil
}

func openStderr(useTTY bool) (io.ReadCloser, *os.File, error) {
	if useTTY {
		ptmx, tty, err := pty.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open pty: %w", err)
		}

		return ptmx, tty, nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	return r, w, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited is closed once the child has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// Running reports whether the child has not exited yet.
func (p *Process) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// ExitCode returns the child's exit code, or -1 while it is running or if
// it was killed by a signal.
func (p *Process) ExitCode() int {
	if p.Running() || p.cmd.ProcessState == nil {
		return -1
	}

	return p.cmd.ProcessState.ExitCode()
}

// Send writes msg as one JSON line. The pipe is unbuffered, so the line is
// visible to the child as soon as Send returns.
func (p *Process) Send(msg Message) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("write stdin: %w", err)
	}

	p.logger.Debug().RawJSON("message", bytes.TrimSuffix(data, []byte{'\n'})).Msg("sent")

	return nil
}

// Receive waits at most timeout for the next line on the child's stdout and
// decodes it. It returns ErrTimeout when nothing arrives in time and
// ErrEndOfStream once stdout is closed.
func (p *Process) Receive(timeout time.Duration) (Message, error) {
	p.logger.Debug().Dur("timeout", timeout).Msg("waiting for message")

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res, ok := <-p.lines:
		if !ok {
			return Message{}, ErrEndOfStream
		}

		if res.err != nil {
			return Message{}, fmt.Errorf("read stdout: %w", res.err)
		}

		msg, err := decodeMessage(res.line)
		if err != nil {
			p.logger.Warn().Bytes("line", res.line).Err(err).Msg("undecodable line")

			return Message{}, err
		}

		p.logger.Debug().RawJSON("message", res.line).Msg("received")

		return msg, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// Shutdown stops the child and releases its streams. It is safe to call more
// than once; only the first call acts. A child that ignores the termination
// request for longer than grace is killed.
func (p *Process) Shutdown(grace, joinWait time.Duration) {
	p.shutdownOnce.Do(func() {
		close(p.done)
		_ = p.stdin.Close()

		if p.Running() {
			p.logger.Info().Msg("terminating child")
			p.terminate(grace)
		}

		select {
		case <-p.drainDone:
		case <-time.After(joinWait):
			p.logger.Warn().Dur("wait", joinWait).Msg("stderr drain did not finish")
		}

		_ = p.stdout.Close()
		_ = p.stderr.Close()

		if !p.Running() {
			p.logger.Info().Int("exit_code", p.ExitCode()).AnErr("wait_err", p.waitErr).Msg("child stopped")
		}
	})
}

func (p *Process) terminate(grace time.Duration) {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn().Err(err).Msg("terminate request failed")
	}

	select {
	case <-p.exited:
		return
	case <-time.After(grace):
	}

	p.logger.Warn().Dur("grace", grace).Msg("child ignored termination, killing")

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error().Err(err).Msg("kill failed")
	}

	select {
	case <-p.exited:
	case <-time.After(grace):
		p.logger.Error().Msg("child not reaped after kill")
	}
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.exited)
}

func (p *Process) readLoop() {
	defer close(p.lines)

	r := bufio.NewReader(p.stdout)
	for {
		line, err := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if !p.deliver(lineResult{line: trimmed}) {
				return
			}
		}

		if err != nil {
			if !isStreamEnd(err) {
				p.deliver(lineResult{err: err})
			}

			return
		}
	}
}

func (p *Process) deliver(res lineResult) bool {
	select {
	case p.lines <- res:
		return true
	case <-p.done:
		return false
	}
}

func (p *Process) drain() {
	defer close(p.drainDone)

	r := bufio.NewReader(p.stderr)
	for {
		line, err := r.ReadString('\n')
		if text := trimLine(line); text != "" {
			p.logger.Info().Str("stream", "stderr").Msg(text)
		}

		if err != nil {
			if !isStreamEnd(err) {
				p.logger.Warn().Err(err).Str("stream", "stderr").Msg("reading child diagnostics failed")
			}

			return
		}
	}
}

func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// isStreamEnd reports errors that mean the other side went away. A pty
// master reports EIO once the child side is closed.
func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EIO)
}
