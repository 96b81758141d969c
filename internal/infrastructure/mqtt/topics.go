package mqtt

import "fmt"

// Topic prefixes for the afaudio MQTT surface.
//
// All topics use the flat scheme: afaudio/{category}/...
const (
	// TopicPrefix is the base for all afaudio topics.
	TopicPrefix = "afaudio"

	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "afaudio/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "afaudio/system"
)

// Topics provides builders for afaudio MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("speakers-1")
//	// Returns: "afaudio/device/speakers-1/state"
type Topics struct{}

// DeviceState returns the topic for a device's current state.
// Published retained so new subscribers see the latest snapshot.
//
// Example: afaudio/device/speakers-1/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevice, deviceID)
}

// DeviceChanged returns the topic for per-device change events.
// Payloads carry the snapshot plus the mask of changed fields.
//
// Example: afaudio/device/speakers-1/changed
func (Topics) DeviceChanged(deviceID string) string {
	return fmt.Sprintf("%s/%s/changed", TopicPrefixDevice, deviceID)
}

// Devices returns the topic for device list events (add, remove, default
// change) reported by the action envelope protocol.
//
// Example: afaudio/devices
func (Topics) Devices() string {
	return fmt.Sprintf("%s/devices", TopicPrefix)
}

// Command returns the topic for inbound control commands.
// Payloads are single command lines, e.g. "setvolume 40".
//
// Example: afaudio/command
func (Topics) Command() string {
	return fmt.Sprintf("%s/command", TopicPrefix)
}

// SystemStatus returns the daemon status topic, also used for the LWT.
//
// Example: afaudio/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemProcess returns the topic for monitor process lifecycle events
// (exit, forced kill).
//
// Example: afaudio/system/process
func (Topics) SystemProcess() string {
	return fmt.Sprintf("%s/process", TopicPrefixSystem)
}

// SystemError returns the topic for pipeline error reports (decode
// failures, stderr output).
//
// Example: afaudio/system/error
func (Topics) SystemError() string {
	return fmt.Sprintf("%s/error", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching all device state topics.
//
// Pattern: afaudio/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDevice)
}

// AllDeviceChanges returns a pattern matching all device change topics.
//
// Pattern: afaudio/device/+/changed
func (Topics) AllDeviceChanges() string {
	return fmt.Sprintf("%s/+/changed", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all afaudio topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: afaudio/#
func (Topics) AllTopics() string {
	return "afaudio/#"
}
