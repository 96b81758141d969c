package monitor

import (
	"sync"

	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// ChangeEvent is delivered for every successfully decoded device snapshot.
// The snapshot and its change mask travel together: a listener never sees a
// mask without the snapshot it was computed for.
type ChangeEvent struct {
	Snapshot protocol.DeviceSnapshot `json:"snapshot"`
	Changed  protocol.ChangeMask     `json:"changed"`
}

// DevicesEvent is delivered for every variant B envelope: the action that
// occurred plus the full device list as of that event.
type DevicesEvent struct {
	Action  protocol.ActionType       `json:"action"`
	Device  *protocol.DeviceSnapshot  `json:"device,omitempty"`
	Devices []protocol.DeviceSnapshot `json:"devices"`
}

// ErrorEvent is delivered for every recoverable failure: decode errors,
// stderr output from the child, and stream faults. The pipeline continues
// after each one.
type ErrorEvent struct {
	Err error
}

// ExitEvent is delivered exactly once per process instance, when the child's
// exit is observed. Code is the process exit code, or -1 when unavailable
// (termination by signal, reported via Signaled).
type ExitEvent struct {
	Code     int  `json:"code"`
	Signaled bool `json:"signaled"`
}

// ForceExitEvent is delivered when the graceful shutdown deadline passed and
// the child was hard-killed. The matching ExitEvent follows once the OS
// confirms the death.
type ForceExitEvent struct {
	Reason string `json:"reason"`
}

// handlerSet holds the registered listeners per event kind. Registration is
// guarded so listeners can be added while the monitor runs; dispatch happens
// from a single goroutine, so listeners of one kind never run concurrently.
type handlerSet struct {
	mu        sync.RWMutex
	change    []func(ChangeEvent)
	devices   []func(DevicesEvent)
	errs      []func(ErrorEvent)
	exit      []func(ExitEvent)
	forceExit []func(ForceExitEvent)
}

// OnChange registers a listener for change events.
func (m *Monitor) OnChange(fn func(ChangeEvent)) {
	m.handlers.mu.Lock()
	defer m.handlers.mu.Unlock()
	m.handlers.change = append(m.handlers.change, fn)
}

// OnDevices registers a listener for variant B device-list events.
func (m *Monitor) OnDevices(fn func(DevicesEvent)) {
	m.handlers.mu.Lock()
	defer m.handlers.mu.Unlock()
	m.handlers.devices = append(m.handlers.devices, fn)
}

// OnError registers a listener for recoverable error events.
func (m *Monitor) OnError(fn func(ErrorEvent)) {
	m.handlers.mu.Lock()
	defer m.handlers.mu.Unlock()
	m.handlers.errs = append(m.handlers.errs, fn)
}

// OnExit registers a listener for process exit events.
func (m *Monitor) OnExit(fn func(ExitEvent)) {
	m.handlers.mu.Lock()
	defer m.handlers.mu.Unlock()
	m.handlers.exit = append(m.handlers.exit, fn)
}

// OnForceExit registers a listener for forced-termination events.
func (m *Monitor) OnForceExit(fn func(ForceExitEvent)) {
	m.handlers.mu.Lock()
	defer m.handlers.mu.Unlock()
	m.handlers.forceExit = append(m.handlers.forceExit, fn)
}

func (m *Monitor) emitChangeEvent(ev ChangeEvent) {
	m.handlers.mu.RLock()
	fns := m.handlers.change
	m.handlers.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Monitor) emitDevicesEvent(ev DevicesEvent) {
	m.handlers.mu.RLock()
	fns := m.handlers.devices
	m.handlers.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Monitor) emitErrorEvent(ev ErrorEvent) {
	m.handlers.mu.RLock()
	fns := m.handlers.errs
	m.handlers.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Monitor) emitExitEvent(ev ExitEvent) {
	m.handlers.mu.RLock()
	fns := m.handlers.exit
	m.handlers.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Monitor) emitForceExitEvent(ev ForceExitEvent) {
	m.handlers.mu.RLock()
	fns := m.handlers.forceExit
	m.handlers.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
