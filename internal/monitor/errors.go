package monitor

import "errors"

// Domain-specific errors for the monitor lifecycle and command channel.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyRunning is returned by Start when a child process is already
	// live. The second start is rejected, never queued or double-spawned.
	ErrAlreadyRunning = errors.New("monitor: process already running")

	// ErrNotRunning is returned by Stop when no process was ever started.
	ErrNotRunning = errors.New("monitor: no process to stop")

	// ErrTerminated is returned by Stop after the child has already exited.
	ErrTerminated = errors.New("monitor: process already terminated")

	// ErrSpawn is returned by Start when the executable cannot be found or
	// the OS refuses to create the process. The monitor stays idle and a
	// later Start may succeed.
	ErrSpawn = errors.New("monitor: spawning process")

	// ErrChannelUnavailable is returned by command methods when there is no
	// live process to write to. The command is dropped before any write.
	ErrChannelUnavailable = errors.New("monitor: command channel unavailable")
)
