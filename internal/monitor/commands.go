package monitor

import (
	"fmt"

	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// Command methods validate their arguments, serialize one line, and write it
// to the child's stdin. Validation failures (protocol.ErrValidation) never
// reach the stream; with no live process the command fails with
// ErrChannelUnavailable and nothing is written.
//
// The protocol is fire-and-forget: a nil return means the line was written,
// not that the executable applied it. Confirmation, if any, arrives later as
// a change event.

// UpVolume raises the volume by the executable's default step.
func (m *Monitor) UpVolume() error {
	return m.send(protocol.UpVolume())
}

// UpVolumeBy raises the volume by an explicit step.
func (m *Monitor) UpVolumeBy(step int) error {
	return m.send(protocol.UpVolumeBy(step))
}

// DownVolume lowers the volume by the executable's default step.
func (m *Monitor) DownVolume() error {
	return m.send(protocol.DownVolume())
}

// DownVolumeBy lowers the volume by an explicit step.
func (m *Monitor) DownVolumeBy(step int) error {
	return m.send(protocol.DownVolumeBy(step))
}

// SetVolume sets the absolute volume of the default device (0-100).
func (m *Monitor) SetVolume(level int) error {
	return m.send(protocol.SetVolume(level))
}

// SetDeviceVolume sets the absolute volume of a specific device.
func (m *Monitor) SetDeviceVolume(deviceID string, level int) error {
	return m.send(protocol.SetDeviceVolume(deviceID, level))
}

// Mute mutes the default device.
func (m *Monitor) Mute() error {
	return m.send(protocol.Mute())
}

// Unmute unmutes the default device.
func (m *Monitor) Unmute() error {
	return m.send(protocol.Unmute())
}

// ToggleMute toggles the default device's mute state.
func (m *Monitor) ToggleMute() error {
	return m.send(protocol.ToggleMute())
}

// MuteDevice mutes a specific device.
func (m *Monitor) MuteDevice(deviceID string) error {
	return m.send(protocol.MuteDevice(deviceID))
}

// UnmuteDevice unmutes a specific device.
func (m *Monitor) UnmuteDevice(deviceID string) error {
	return m.send(protocol.UnmuteDevice(deviceID))
}

// ToggleMuteDevice toggles a specific device's mute state.
func (m *Monitor) ToggleMuteDevice(deviceID string) error {
	return m.send(protocol.ToggleMuteDevice(deviceID))
}

// SetPollDelay changes the executable's polling interval (milliseconds, min 100).
func (m *Monitor) SetPollDelay(delayMs int) error {
	return m.send(protocol.SetPollDelay(delayMs))
}

// SetVolumeStep changes the executable's default volume step (1-100).
func (m *Monitor) SetVolumeStep(step int) error {
	return m.send(protocol.SetVolumeStep(step))
}

// send writes a validated command to the child's stdin. The construction
// error is checked first so validation always precedes the channel check.
func (m *Monitor) send(cmd protocol.Command, err error) error {
	if err != nil {
		return err
	}

	m.mu.RLock()
	state := m.state
	stdin := m.stdin
	m.mu.RUnlock()

	if state != StatusRunning || stdin == nil {
		return ErrChannelUnavailable
	}

	// One line per write; the mutex keeps concurrent callers from
	// interleaving bytes mid-line.
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if _, werr := stdin.Write(cmd.Encode()); werr != nil {
		return fmt.Errorf("%w: %w", ErrChannelUnavailable, werr)
	}

	m.logger.Debug("command written", "verb", cmd.Verb())
	return nil
}
