// Package ptyexec spawns an agent backend in a pseudo-terminal, streams
// its output to the host while preserving colors and animations, and
// implements the idle-timeout, double-interrupt, and force-kill state
// machines that decide when an iteration's execution ends.
package ptyexec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/andywolf/ralph/internal/backend"
)

// TerminationType records why a PTY execution ended.
type TerminationType int

const (
	// Natural means the child process exited on its own.
	Natural TerminationType = iota
	// IdleTimeout means no output was observed for idle_timeout_secs.
	IdleTimeout
	// UserInterrupt means the host sent a double Ctrl+C.
	UserInterrupt
	// ForceKill means the host sent Ctrl+\.
	ForceKill
)

func (t TerminationType) String() string {
	switch t {
	case Natural:
		return "natural"
	case IdleTimeout:
		return "idle_timeout"
	case UserInterrupt:
		return "user_interrupt"
	case ForceKill:
		return "force_kill"
	default:
		return "unknown"
	}
}

// Result is the outcome of one PTY execution.
type Result struct {
	// Output is the accumulated child output with ANSI sequences intact.
	Output string
	// StrippedOutput is Output rendered through a virtual terminal —
	// what the event parser actually reads.
	StrippedOutput string
	Success        bool
	ExitCode       int
	HasExitCode    bool
	Termination    TerminationType
}

// Config controls PTY sizing, mode, and idle detection.
type Config struct {
	// Interactive forwards host stdin to the child when true; false
	// runs in observe mode (output only).
	Interactive bool
	// IdleTimeoutSecs terminates the run if no output is observed for
	// this many seconds. Zero disables the timeout.
	IdleTimeoutSecs int
	Cols            uint16
	Rows            uint16
}

// DefaultConfig returns observe-mode defaults: 80x24, no idle timeout.
func DefaultConfig() Config {
	return Config{Cols: 80, Rows: 24}
}

// ConfigFromEnv fills Cols/Rows from the COLUMNS/LINES environment
// variables, falling back to 80x24 when unset or unparsable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("COLUMNS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Cols = uint16(n)
		}
	}
	if v := os.Getenv("LINES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Rows = uint16(n)
		}
	}
	return cfg
}

const (
	readChunkSize  = 4096
	idlePollPeriod = 10 * time.Millisecond
	gracePeriod    = 5 * time.Second
	killPollPeriod = 100 * time.Millisecond
)

// CtrlCAction is the action the double-Ctrl+C state machine prescribes
// for a keypress.
type CtrlCAction int

const (
	// ForwardAndStartWindow forwards one Ctrl+C byte to the child and
	// (re)starts the one-second double-press window.
	ForwardAndStartWindow CtrlCAction = iota
	// Terminate is returned when a second Ctrl+C lands inside the
	// window opened by the first.
	Terminate
)

// CtrlCState tracks whether a second Ctrl+C within one second of the
// first should terminate the run rather than being forwarded.
type CtrlCState struct {
	firstPress time.Time
	hasFirst   bool
	window     time.Duration
}

// NewCtrlCState returns a fresh state machine with the standard
// one-second double-press window.
func NewCtrlCState() *CtrlCState {
	return &CtrlCState{window: time.Second}
}

// HandleCtrlC advances the state machine for a Ctrl+C observed at now.
func (s *CtrlCState) HandleCtrlC(now time.Time) CtrlCAction {
	if s.hasFirst && now.Sub(s.firstPress) < s.window {
		s.hasFirst = false
		return Terminate
	}
	s.firstPress = now
	s.hasFirst = true
	return ForwardAndStartWindow
}

// Executor runs one invocation of a backend in a pseudo-terminal.
type Executor struct {
	Backend backend.Backend
	Config  Config
}

// New constructs an Executor.
func New(b backend.Backend, cfg Config) *Executor {
	return &Executor{Backend: b, Config: cfg}
}

// Interactive reports whether this Executor forwards host stdin.
func (e *Executor) Interactive() bool {
	return e.Config.Interactive
}

func (e *Executor) spawn(prompt string) (*os.File, *exec.Cmd, error) {
	program, args, stdin := e.Backend.BuildCommand(prompt)

	cmd := exec.Command(program, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: e.Config.Rows, Cols: e.Config.Cols})
	if err != nil {
		return nil, nil, fmt.Errorf("ptyexec: spawn %s: %w", program, err)
	}

	if stdin != "" {
		if _, err := ptmx.Write([]byte(stdin)); err != nil {
			_ = ptmx.Close()
			return nil, nil, fmt.Errorf("ptyexec: write stdin payload: %w", err)
		}
	}

	return ptmx, cmd, nil
}

// RunObserve spawns the backend and streams its output with no input
// forwarding. It returns when the child exits or the idle timeout
// fires.
func (e *Executor) RunObserve(prompt string) (*Result, error) {
	ptmx, cmd, err := e.spawn(prompt)
	if err != nil {
		return nil, err
	}
	defer ptmx.Close()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var output []byte
	buf := make([]byte, readChunkSize)
	lastActivity := time.Now()
	timeout := idleTimeout(e.Config.IdleTimeoutSecs)
	termination := Natural
	var waitErr error
	exited := false

	for {
		select {
		case waitErr = <-waitDone:
			exited = true
		default:
		}
		if exited {
			break
		}

		if timeout > 0 && time.Since(lastActivity) > timeout {
			termination = IdleTimeout
			_ = e.terminateProcess(cmd, true)
			waitErr = <-waitDone
			exited = true
			break
		}

		_ = ptmx.SetReadDeadline(time.Now().Add(idlePollPeriod))
		n, readErr := ptmx.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
			output = append(output, buf[:n]...)
			lastActivity = time.Now()
		}
		if readErr != nil {
			if isTimeout(readErr) {
				continue
			}
			if errors.Is(readErr, io.EOF) {
				break
			}
			break
		}
	}

	if !exited {
		waitErr = <-waitDone
	}
	// Drain any bytes written before the child's fd closed.
	drainRemaining(ptmx, &output)

	return buildResult(output, termination, waitErr), nil
}

// RunInteractive spawns the backend, streams its output, and forwards
// host stdin — classified into Ctrl+C, Ctrl+\, and plain data — to the
// child. It returns on child exit, idle timeout, double Ctrl+C, or
// Ctrl+\.
func (e *Executor) RunInteractive(prompt string) (*Result, error) {
	ptmx, cmd, err := e.spawn(prompt)
	if err != nil {
		return nil, err
	}
	defer ptmx.Close()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	inputEvents := make(chan inputEvent, 256)
	var shouldTerminate atomic.Bool
	go readStdin(inputEvents, &shouldTerminate)

	var output []byte
	buf := make([]byte, readChunkSize)
	lastActivity := time.Now()
	timeout := idleTimeout(e.Config.IdleTimeoutSecs)
	ctrlC := NewCtrlCState()
	termination := Natural
	var waitErr error
	exited := false

loop:
	for {
		select {
		case waitErr = <-waitDone:
			exited = true
			break loop
		default:
		}

		if timeout > 0 && time.Since(lastActivity) > timeout {
			termination = IdleTimeout
			shouldTerminate.Store(true)
			_ = e.terminateProcess(cmd, true)
			break loop
		}

	drainInput:
		for {
			select {
			case ev := <-inputEvents:
				switch ev.kind {
				case inputCtrlC:
					switch ctrlC.HandleCtrlC(time.Now()) {
					case ForwardAndStartWindow:
						_, _ = ptmx.Write([]byte{3})
						lastActivity = time.Now()
					case Terminate:
						termination = UserInterrupt
						shouldTerminate.Store(true)
						_ = e.terminateProcess(cmd, true)
						break loop
					}
				case inputCtrlBackslash:
					termination = ForceKill
					shouldTerminate.Store(true)
					_ = e.terminateProcess(cmd, false)
					break loop
				case inputData:
					_, _ = ptmx.Write(ev.data)
					lastActivity = time.Now()
				}
			default:
				break drainInput
			}
		}

		_ = ptmx.SetReadDeadline(time.Now().Add(idlePollPeriod))
		n, readErr := ptmx.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
			output = append(output, buf[:n]...)
			lastActivity = time.Now()
		}
		if readErr != nil {
			if isTimeout(readErr) {
				continue
			}
			if errors.Is(readErr, io.EOF) {
				break loop
			}
			break loop
		}
	}

	shouldTerminate.Store(true)
	if !exited {
		waitErr = <-waitDone
	}
	drainRemaining(ptmx, &output)

	return buildResult(output, termination, waitErr), nil
}

type inputKind int

const (
	inputCtrlC inputKind = iota
	inputCtrlBackslash
	inputData
)

type inputEvent struct {
	kind inputKind
	data []byte
}

// readStdin owns the single blocking syscall read of host stdin, one
// byte at a time, classifying bytes into Ctrl+C (3), Ctrl+\ (28), and
// plain data. It cannot be woken from its blocking read by
// shouldTerminate — it only observes termination on the next byte or
// EOF boundary, which is an accepted limitation of reading a live
// terminal.
func readStdin(events chan<- inputEvent, shouldTerminate *atomic.Bool) {
	buf := make([]byte, 1)
	for {
		if shouldTerminate.Load() {
			return
		}
		n, err := os.Stdin.Read(buf)
		if n == 1 {
			switch buf[0] {
			case 3:
				events <- inputEvent{kind: inputCtrlC}
			case 28:
				events <- inputEvent{kind: inputCtrlBackslash}
			default:
				events <- inputEvent{kind: inputData, data: []byte{buf[0]}}
			}
		}
		if err != nil {
			return
		}
	}
}

// terminateProcess sends SIGTERM and waits up to five seconds before
// escalating to SIGKILL when graceful is true; otherwise it sends
// SIGKILL immediately.
func (e *Executor) terminateProcess(cmd *exec.Cmd, graceful bool) error {
	if cmd.Process == nil {
		return nil
	}

	if graceful {
		_ = cmd.Process.Signal(syscall.SIGTERM)

		deadline := time.Now().Add(gracePeriod)
		for time.Now().Before(deadline) {
			if processExited(cmd) {
				return nil
			}
			time.Sleep(killPollPeriod)
		}
	}

	return cmd.Process.Signal(syscall.SIGKILL)
}

// processExited reports whether cmd's process has already been reaped.
// Signal(0) fails once the process is gone.
func processExited(cmd *exec.Cmd) bool {
	return cmd.Process.Signal(syscall.Signal(0)) != nil
}

func idleTimeout(secs int) time.Duration {
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// drainRemaining performs a final best-effort read to collect any bytes
// that landed between the last poll and the child's fd closing.
func drainRemaining(ptmx *os.File, output *[]byte) {
	_ = ptmx.SetReadDeadline(time.Now().Add(idlePollPeriod))
	buf := make([]byte, readChunkSize)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
			*output = append(*output, buf[:n]...)
		}
		if err != nil {
			return
		}
	}
}

func buildResult(output []byte, termination TerminationType, waitErr error) *Result {
	res := &Result{
		Output:         string(output),
		StrippedOutput: stripANSI(output),
		Termination:    termination,
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.Success = true
		res.ExitCode = 0
		res.HasExitCode = true
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.HasExitCode = true
		res.Success = exitErr.ExitCode() == 0
	default:
		res.Success = false
	}

	return res
}
