package protocol

// DeviceSnapshot is the state of one audio device at one observed instant.
//
// The core four fields are present in every record. The extended fields are
// reported only by newer builds of the monitor executable and are nil/empty
// when absent. Volume is clamped to [0,100] by the producer; inbound values
// are passed through without re-validation so an out-of-range value is
// observable but never fatal.
type DeviceSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Volume int    `json:"volume"`
	Muted  bool   `json:"muted"`

	// Extended fields (optional per executable build).
	DataFlow   string `json:"dataFlow,omitempty"`   // "Render" or "Capture"
	Default    *bool  `json:"default,omitempty"`    // default-device flag
	Channels   *int   `json:"channels,omitempty"`   // channel count
	BitDepth   *int   `json:"bitDepth,omitempty"`   // bits per sample
	SampleRate *int   `json:"sampleRate,omitempty"` // samples per second
}

// ActionType tags a variant B envelope with what happened.
type ActionType string

// Envelope action types.
const (
	ActionInitial ActionType = "initial" // first full device list after start
	ActionAdd     ActionType = "add"     // a device appeared
	ActionRemove  ActionType = "remove"  // a device disappeared
	ActionDefault ActionType = "default" // the default device changed
	ActionVolume  ActionType = "volume"  // volume or mute state changed
)

// Action describes the event a variant B envelope reports. Device is set for
// actions that concern a single device (add, remove, default, volume).
type Action struct {
	Type   ActionType      `json:"type"`
	Device *DeviceSnapshot `json:"device,omitempty"`
}

// Envelope is a variant B stdout record: an action tag plus the complete
// device list as of that event.
type Envelope struct {
	Action  Action           `json:"action"`
	Devices []DeviceSnapshot `json:"devices"`
}

// Record is a decoded stdout record: either *DeviceSnapshot (variant A) or
// *Envelope (variant B).
type Record interface {
	isRecord()
}

func (*DeviceSnapshot) isRecord() {}
func (*Envelope) isRecord()       {}
