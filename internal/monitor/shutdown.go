package monitor

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

// escalate is the shutdown coordinator: a single deferred hard-kill, armed by
// Stop and cancelled implicitly when the process exit is observed first.
//
// If the graceful deadline passes, it sends SIGKILL to the process group,
// emits the force-exit event, and leaves the final transition to terminated
// to the dispatcher (which fires once the OS confirms the death).
func (m *Monitor) escalate(pid int, exited <-chan struct{}, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-exited:
		// Child exited within the deadline; nothing to escalate.
		m.logger.Info("process stopped gracefully", "pid", pid)
		return
	case <-timer.C:
	}

	m.logger.Warn("graceful shutdown timeout, sending SIGKILL",
		"pid", pid,
		"timeout", timeout,
	)

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Error("failed to kill process group", "pid", pid, "error", err)
	}

	m.emitForceExitEvent(ForceExitEvent{
		Reason: fmt.Sprintf("process did not exit within %v after SIGTERM, sent SIGKILL", timeout),
	})
}
