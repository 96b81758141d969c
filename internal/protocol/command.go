package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command verbs recognised by the monitor executable.
const (
	verbUpVolume     = "upVolume"
	verbDownVolume   = "downVolume"
	verbSetVolume    = "setvolume"
	verbSetVolumeID  = "setvolumeid"
	verbMute         = "setmute"
	verbUnmute       = "setunmute"
	verbToggleMute   = "togglemute"
	verbMuteID       = "setmuteid"
	verbUnmuteID     = "setunmuteid"
	verbToggleMuteID = "togglemuteid"
	verbSetDelay     = "setDelay"
	verbSetStep      = "setStepVolume"
)

// Argument bounds.
const (
	minVolume = 0
	maxVolume = 100
	minStep   = 1
	maxStep   = 100
	minDelay  = 100 // milliseconds
)

// Command is a validated outbound instruction for the monitor executable.
//
// A Command only exists after its arguments passed validation; constructing
// one never touches the process. Commands are ephemeral: built, encoded,
// written, discarded.
type Command struct {
	verb string
	args []string
}

// Verb returns the command verb, for logging.
func (c Command) Verb() string {
	return c.verb
}

// Encode serializes the command as one newline-terminated text line, the
// unit of the stdin protocol.
func (c Command) Encode() []byte {
	parts := append([]string{c.verb}, c.args...)
	return []byte(strings.Join(parts, " ") + "\n")
}

// UpVolume raises the volume by the executable's configured default step.
func UpVolume() (Command, error) {
	return Command{verb: verbUpVolume}, nil
}

// UpVolumeBy raises the volume by an explicit step.
func UpVolumeBy(step int) (Command, error) {
	if err := validateStep(step); err != nil {
		return Command{}, err
	}
	return Command{verb: verbUpVolume, args: []string{strconv.Itoa(step)}}, nil
}

// DownVolume lowers the volume by the executable's configured default step.
func DownVolume() (Command, error) {
	return Command{verb: verbDownVolume}, nil
}

// DownVolumeBy lowers the volume by an explicit step.
func DownVolumeBy(step int) (Command, error) {
	if err := validateStep(step); err != nil {
		return Command{}, err
	}
	return Command{verb: verbDownVolume, args: []string{strconv.Itoa(step)}}, nil
}

// SetVolume sets the absolute volume of the default device.
func SetVolume(level int) (Command, error) {
	if err := validateVolume(level); err != nil {
		return Command{}, err
	}
	return Command{verb: verbSetVolume, args: []string{strconv.Itoa(level)}}, nil
}

// SetDeviceVolume sets the absolute volume of a specific device.
func SetDeviceVolume(deviceID string, level int) (Command, error) {
	id, err := validateDeviceID(deviceID)
	if err != nil {
		return Command{}, err
	}
	if err := validateVolume(level); err != nil {
		return Command{}, err
	}
	return Command{verb: verbSetVolumeID, args: []string{id, strconv.Itoa(level)}}, nil
}

// Mute mutes the default device.
func Mute() (Command, error) {
	return Command{verb: verbMute}, nil
}

// Unmute unmutes the default device.
func Unmute() (Command, error) {
	return Command{verb: verbUnmute}, nil
}

// ToggleMute toggles the default device's mute state.
func ToggleMute() (Command, error) {
	return Command{verb: verbToggleMute}, nil
}

// MuteDevice mutes a specific device.
func MuteDevice(deviceID string) (Command, error) {
	id, err := validateDeviceID(deviceID)
	if err != nil {
		return Command{}, err
	}
	return Command{verb: verbMuteID, args: []string{id}}, nil
}

// UnmuteDevice unmutes a specific device.
func UnmuteDevice(deviceID string) (Command, error) {
	id, err := validateDeviceID(deviceID)
	if err != nil {
		return Command{}, err
	}
	return Command{verb: verbUnmuteID, args: []string{id}}, nil
}

// ToggleMuteDevice toggles a specific device's mute state.
func ToggleMuteDevice(deviceID string) (Command, error) {
	id, err := validateDeviceID(deviceID)
	if err != nil {
		return Command{}, err
	}
	return Command{verb: verbToggleMuteID, args: []string{id}}, nil
}

// SetPollDelay changes the executable's polling interval in milliseconds.
func SetPollDelay(delayMs int) (Command, error) {
	if delayMs < minDelay {
		return Command{}, fmt.Errorf("%w: delay %dms below minimum %dms",
			ErrValidation, delayMs, minDelay)
	}
	return Command{verb: verbSetDelay, args: []string{strconv.Itoa(delayMs)}}, nil
}

// SetVolumeStep changes the executable's default volume step.
func SetVolumeStep(step int) (Command, error) {
	if err := validateStep(step); err != nil {
		return Command{}, err
	}
	return Command{verb: verbSetStep, args: []string{strconv.Itoa(step)}}, nil
}

func validateVolume(level int) error {
	if level < minVolume || level > maxVolume {
		return fmt.Errorf("%w: volume %d outside [%d,%d]",
			ErrValidation, level, minVolume, maxVolume)
	}
	return nil
}

func validateStep(step int) error {
	if step < minStep || step > maxStep {
		return fmt.Errorf("%w: step %d outside [%d,%d]",
			ErrValidation, step, minStep, maxStep)
	}
	return nil
}

// validateDeviceID rejects empty and whitespace-only identifiers, returning
// the trimmed id. Embedded spaces are also rejected: the line protocol is
// space-delimited and cannot carry them.
func validateDeviceID(deviceID string) (string, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return "", fmt.Errorf("%w: device id is blank", ErrValidation)
	}
	if strings.ContainsAny(id, " \t") {
		return "", fmt.Errorf("%w: device id %q contains whitespace", ErrValidation, deviceID)
	}
	return id, nil
}
