package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/frame"
	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// Status represents the current lifecycle state of the supervised process.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
	StatusTerminated Status = "terminated"
)

// Variant selects how the monitor executable is configured.
type Variant string

const (
	// VariantArgs passes "<polling-delay-ms> <volume-step>" on the command
	// line and reports flat snapshot records.
	VariantArgs Variant = "args"

	// VariantCommand spawns with no arguments; configuration travels in-band
	// as setDelay/setStepVolume commands and records are action envelopes.
	VariantCommand Variant = "command"
)

// stderrBufferSize is the buffer size for capturing subprocess stderr.
const stderrBufferSize = 4096

// noteBufferSize is the capacity of the internal notification channel. It
// only needs to absorb short bursts; the dispatcher drains continuously.
const noteBufferSize = 64

// Config holds configuration for the supervised monitor executable.
type Config struct {
	// Binary is the path to the monitor executable.
	Binary string

	// Variant selects the wire protocol variant. Default: VariantArgs.
	Variant Variant

	// PollDelay is the device polling interval passed to the executable.
	// Default: 250ms. Minimum: 100ms.
	PollDelay time.Duration

	// VolumeStep is the default volume step passed to the executable.
	// Default: 5.
	VolumeStep int

	// GracefulTimeout is how long Stop waits for the child to exit after
	// SIGTERM before escalating to SIGKILL. Default: 3s.
	GracefulTimeout time.Duration

	// MaxFrameSize bounds a single buffered stdout record.
	// Default: frame.DefaultMaxFrameSize.
	MaxFrameSize int
}

// Logger defines the logging interface for the monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Monitor supervises one external audio monitor process.
//
// It is the sole owner of the child process handle and its three streams:
// stdout is framed, decoded and diffed into change events, stderr is surfaced
// verbatim as error events, and the process exit is reported as an exit
// event. Commands are validated and written to the child's stdin.
//
// stdout records, stderr chunks and the exit notification are funneled into
// one dispatch goroutine, so events of all kinds are delivered one at a time
// in arrival order and the change baseline never races ahead of delivery.
//
// There is no restart policy: a crash or normal exit leaves the Monitor
// terminated, and the caller decides whether to Start again (which spawns a
// fresh process with a fresh change baseline).
type Monitor struct {
	cfg    Config
	logger Logger

	mu        sync.RWMutex
	state     Status
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	startTime time.Time
	last      *protocol.DeviceSnapshot // last emitted snapshot, for Stats
	lastExit  *ExitEvent

	// Per-session channels, recreated by each Start.
	notes  chan notification
	exited chan struct{} // closed when the process exit is observed
	done   chan struct{} // closed when the dispatcher has delivered the exit event

	// writeMu serializes stdin writes so command lines never interleave.
	writeMu sync.Mutex

	handlers handlerSet
}

// noteKind discriminates internal notifications on the dispatch channel.
type noteKind int

const (
	noteRecord noteKind = iota
	noteStderr
	noteStreamErr
	noteExit
)

// notification is one unit of work for the dispatch goroutine.
type notification struct {
	kind     noteKind
	line     []byte
	text     string
	err      error
	exitCode int
	signaled bool
}

// New creates a Monitor with the given configuration, applying defaults for
// zero values. The monitor starts idle; call Start to spawn the process.
func New(cfg Config) *Monitor {
	if cfg.Variant == "" {
		cfg.Variant = VariantArgs
	}
	if cfg.PollDelay == 0 {
		cfg.PollDelay = 250 * time.Millisecond
	}
	if cfg.VolumeStep == 0 {
		cfg.VolumeStep = 5
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 3 * time.Second
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = frame.DefaultMaxFrameSize
	}

	return &Monitor{
		cfg:    cfg,
		logger: noopLogger{},
		state:  StatusIdle,
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// Start spawns the monitor executable and begins consuming its streams.
//
// It returns ErrAlreadyRunning if a child is already live, or an ErrSpawn
// wrap if the process cannot be created (the monitor stays idle and Start
// may be retried). Cancelling ctx initiates the same graceful-then-forced
// stop sequence as Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()

	switch m.state {
	case StatusRunning, StatusStopping:
		m.mu.Unlock()
		return ErrAlreadyRunning
	case StatusIdle, StatusTerminated:
	}

	args := m.spawnArgs()
	cmd := exec.Command(m.cfg.Binary, args...)

	// New process group, so stop signals reach the child and any helpers it
	// forks without touching our own process.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		m.state = StatusIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: creating stdin pipe: %w", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.state = StatusIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: creating stdout pipe: %w", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		m.state = StatusIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: creating stderr pipe: %w", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		m.state = StatusIdle
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	m.cmd = cmd
	m.stdin = stdin
	m.state = StatusRunning
	m.startTime = time.Now()
	m.last = nil
	m.lastExit = nil
	m.notes = make(chan notification, noteBufferSize)
	m.exited = make(chan struct{})
	m.done = make(chan struct{})

	notes, exited, done := m.notes, m.exited, m.done
	m.mu.Unlock()

	m.logger.Info("process started",
		"binary", m.cfg.Binary,
		"args", args,
		"pid", cmd.Process.Pid,
	)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go m.pumpStdout(stdout, notes, &pumps)
	go m.pumpStderr(stderr, notes, &pumps)
	go m.awaitExit(cmd, notes, exited, &pumps)
	go m.dispatch(notes, done)

	// Cancelling the start context triggers the graceful stop path.
	go func() {
		select {
		case <-ctx.Done():
			_ = m.Stop()
		case <-done:
		}
	}()

	return nil
}

// spawnArgs builds the command-line arguments for the configured variant.
func (m *Monitor) spawnArgs() []string {
	if m.cfg.Variant == VariantCommand {
		return nil
	}
	return []string{
		strconv.Itoa(int(m.cfg.PollDelay / time.Millisecond)),
		strconv.Itoa(m.cfg.VolumeStep),
	}
}

// pumpStdout frames the stdout stream and forwards each complete record.
func (m *Monitor) pumpStdout(r io.Reader, notes chan<- notification, pumps *sync.WaitGroup) {
	defer pumps.Done()

	err := frame.Scan(r, m.cfg.MaxFrameSize, func(line []byte) {
		if len(line) == 0 {
			return
		}
		notes <- notification{kind: noteRecord, line: line}
	})
	if err != nil {
		notes <- notification{kind: noteStreamErr, err: fmt.Errorf("stdout stream: %w", err)}
	}
}

// pumpStderr forwards raw stderr chunks. Stderr is plain-text diagnostics,
// never parsed as records.
func (m *Monitor) pumpStderr(r io.Reader, notes chan<- notification, pumps *sync.WaitGroup) {
	defer pumps.Done()

	buf := make([]byte, stderrBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			notes <- notification{kind: noteStderr, text: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

// awaitExit waits for both stream pumps to drain, then reaps the child.
// Ordering matters: the exit notification is pushed only after every stdout
// and stderr notification, so the dispatcher delivers the exit event last.
func (m *Monitor) awaitExit(cmd *exec.Cmd, notes chan<- notification, exited chan struct{}, pumps *sync.WaitGroup) {
	pumps.Wait()

	err := cmd.Wait()
	code, signaled := exitStatus(err)

	close(exited)
	notes <- notification{kind: noteExit, exitCode: code, signaled: signaled}
}

// exitStatus extracts the exit code from cmd.Wait's error. Code is -1 when
// unavailable (the child was killed by a signal).
func exitStatus(err error) (code int, signaled bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return -1, true
		}
		return exitErr.ExitCode(), false
	}
	return -1, false
}

// dispatch is the single consumer of the notification channel. It decodes
// records, runs the diff-and-emit cycle, and surfaces stderr and stream
// faults as error events. It returns after delivering the exit event; the
// waiter guarantees exit is the final notification of a session.
func (m *Monitor) dispatch(notes <-chan notification, done chan struct{}) {
	defer close(done)

	var prev *protocol.DeviceSnapshot

	for n := range notes {
		switch n.kind {
		case noteRecord:
			prev = m.handleRecord(prev, n.line)

		case noteStderr:
			m.emitErrorEvent(ErrorEvent{Err: fmt.Errorf("process stderr: %s", n.text)})

		case noteStreamErr:
			m.logger.Error("stream failed", "error", n.err)
			m.emitErrorEvent(ErrorEvent{Err: n.err})

		case noteExit:
			ev := ExitEvent{Code: n.exitCode, Signaled: n.signaled}

			m.mu.Lock()
			m.state = StatusTerminated
			m.cmd = nil
			m.stdin = nil
			m.lastExit = &ev
			m.mu.Unlock()

			if ev.Code != 0 {
				m.logger.Warn("process exited abnormally", "code", ev.Code, "signaled", ev.Signaled)
			} else {
				m.logger.Info("process exited", "code", ev.Code)
			}
			m.emitExitEvent(ev)
			return
		}
	}
}

// handleRecord decodes one stdout record and runs the diff-and-emit cycle.
// It returns the new baseline snapshot, which replaces the previous one only
// after the paired change event has been delivered.
func (m *Monitor) handleRecord(prev *protocol.DeviceSnapshot, line []byte) *protocol.DeviceSnapshot {
	rec, err := protocol.Decode(line)
	if err != nil {
		// One malformed line must never stop the pipeline.
		m.emitErrorEvent(ErrorEvent{Err: err})
		return prev
	}

	switch r := rec.(type) {
	case *protocol.DeviceSnapshot:
		return m.emitChange(prev, *r)

	case *protocol.Envelope:
		m.emitDevicesEvent(DevicesEvent{
			Action:  r.Action.Type,
			Device:  r.Action.Device,
			Devices: r.Devices,
		})
		if r.Action.Device != nil {
			return m.emitChange(prev, *r.Action.Device)
		}
	}
	return prev
}

// emitChange diffs cur against prev, delivers the change event, and only
// then installs cur as the new baseline.
func (m *Monitor) emitChange(prev *protocol.DeviceSnapshot, cur protocol.DeviceSnapshot) *protocol.DeviceSnapshot {
	mask := protocol.Diff(prev, cur)
	m.emitChangeEvent(ChangeEvent{Snapshot: cur, Changed: mask})

	next := cur
	m.mu.Lock()
	m.last = &next
	m.mu.Unlock()
	return &next
}

// Stop initiates the graceful-then-forced termination sequence.
//
// It sends SIGTERM to the child's process group and returns immediately; the
// shutdown coordinator escalates to SIGKILL if the child has not exited
// within the configured graceful timeout. Completion is reported through the
// exit (and possibly forceExit) events.
//
// Returns ErrNotRunning when no process was started and ErrTerminated when
// the child has already exited. Calling Stop while a stop is already in
// flight is a no-op.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	switch m.state {
	case StatusIdle:
		m.mu.Unlock()
		return ErrNotRunning
	case StatusTerminated:
		m.mu.Unlock()
		return ErrTerminated
	case StatusStopping:
		m.mu.Unlock()
		return nil
	case StatusRunning:
	}

	m.state = StatusStopping
	pid := m.cmd.Process.Pid
	exited := m.exited
	m.mu.Unlock()

	m.logger.Info("stopping process", "pid", pid, "graceful_timeout", m.cfg.GracefulTimeout)

	// Graceful phase: SIGTERM to the process group (negative PID, created
	// via Setpgid). ESRCH means the child beat us to it.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("failed to send SIGTERM to process group", "pid", pid, "error", err)
	}

	go m.escalate(pid, exited, m.cfg.GracefulTimeout)

	return nil
}

// Shutdown is the hook the hosting program calls on its own termination
// signal. It initiates Stop if a child is live and waits for the exit event
// to be delivered, or for ctx to expire.
//
// The monitor never installs process-wide signal handlers itself; routing
// host signals here keeps multiple Monitor instances composable.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	state := m.state
	done := m.done
	m.mu.RUnlock()

	switch state {
	case StatusIdle, StatusTerminated:
		return nil
	case StatusRunning:
		if err := m.Stop(); err != nil && !errors.Is(err, ErrTerminated) {
			return err
		}
	case StatusStopping:
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for process exit: %w", ctx.Err())
	}
}

// Status returns the current lifecycle state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsRunning returns true if the child process is currently live.
func (m *Monitor) IsRunning() bool {
	return m.Status() == StatusRunning
}

// PID returns the child process ID, or 0 if not running.
func (m *Monitor) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Uptime returns how long the current child has been running, or 0.
func (m *Monitor) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StatusRunning && m.state != StatusStopping {
		return 0
	}
	return time.Since(m.startTime)
}

// LastSnapshot returns a copy of the most recently emitted device snapshot.
// The second return is false before the first change event of a session.
func (m *Monitor) LastSnapshot() (protocol.DeviceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return protocol.DeviceSnapshot{}, false
	}
	return *m.last, true
}

// Stats describes the monitor for status surfaces (API, logs).
type Stats struct {
	State    Status                   `json:"state"`
	PID      int                      `json:"pid,omitempty"`
	UptimeMs int64                    `json:"uptime_ms,omitempty"`
	Device   *protocol.DeviceSnapshot `json:"device,omitempty"`
	LastExit *ExitEvent               `json:"last_exit,omitempty"`
}

// Stats returns a point-in-time description of the monitor.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{State: m.state}
	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}
	if m.state == StatusRunning || m.state == StatusStopping {
		stats.UptimeMs = time.Since(m.startTime).Milliseconds()
	}
	if m.last != nil {
		snap := *m.last
		stats.Device = &snap
	}
	if m.lastExit != nil {
		exit := *m.lastExit
		stats.LastExit = &exit
	}
	return stats
}
