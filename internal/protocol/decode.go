package protocol

import (
	"encoding/json"
	"fmt"
)

// Decode parses one stdout record into a DeviceSnapshot (variant A) or an
// Envelope (variant B, recognised by the presence of an "action" member).
//
// On failure it returns a *DecodeError carrying the raw record and the cause.
// Decode never panics; the caller reports the error and keeps consuming
// records.
func Decode(raw []byte) (Record, error) {
	var probe struct {
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{Raw: string(raw), Err: err}
	}

	if probe.Action != nil {
		return decodeEnvelope(raw)
	}
	return decodeSnapshot(raw)
}

// snapshotFields mirrors DeviceSnapshot with pointer core fields so missing
// members are distinguishable from zero values.
type snapshotFields struct {
	ID     *string  `json:"id"`
	Name   *string  `json:"name"`
	Volume *float64 `json:"volume"`
	Muted  *bool    `json:"muted"`

	DataFlow   string `json:"dataFlow"`
	Default    *bool  `json:"default"`
	Channels   *int   `json:"channels"`
	BitDepth   *int   `json:"bitDepth"`
	SampleRate *int   `json:"sampleRate"`
}

func (f *snapshotFields) toSnapshot() (*DeviceSnapshot, error) {
	switch {
	case f.ID == nil:
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	case f.Name == nil:
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	case f.Volume == nil:
		return nil, fmt.Errorf("%w: volume", ErrMissingField)
	case f.Muted == nil:
		return nil, fmt.Errorf("%w: muted", ErrMissingField)
	}

	return &DeviceSnapshot{
		ID:         *f.ID,
		Name:       *f.Name,
		Volume:     int(*f.Volume),
		Muted:      *f.Muted,
		DataFlow:   f.DataFlow,
		Default:    f.Default,
		Channels:   f.Channels,
		BitDepth:   f.BitDepth,
		SampleRate: f.SampleRate,
	}, nil
}

func decodeSnapshot(raw []byte) (*DeviceSnapshot, error) {
	var fields snapshotFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Raw: string(raw), Err: err}
	}

	snap, err := fields.toSnapshot()
	if err != nil {
		return nil, &DecodeError{Raw: string(raw), Err: err}
	}
	return snap, nil
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	var aux struct {
		Action struct {
			Type   ActionType      `json:"type"`
			Device *snapshotFields `json:"device"`
		} `json:"action"`
		Devices []snapshotFields `json:"devices"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, &DecodeError{Raw: string(raw), Err: err}
	}

	switch aux.Action.Type {
	case ActionInitial, ActionAdd, ActionRemove, ActionDefault, ActionVolume:
	default:
		return nil, &DecodeError{
			Raw: string(raw),
			Err: fmt.Errorf("%w: %q", ErrUnknownAction, aux.Action.Type),
		}
	}

	env := &Envelope{Action: Action{Type: aux.Action.Type}}

	if aux.Action.Device != nil {
		snap, err := aux.Action.Device.toSnapshot()
		if err != nil {
			return nil, &DecodeError{Raw: string(raw), Err: err}
		}
		env.Action.Device = snap
	}

	env.Devices = make([]DeviceSnapshot, 0, len(aux.Devices))
	for i := range aux.Devices {
		snap, err := aux.Devices[i].toSnapshot()
		if err != nil {
			return nil, &DecodeError{Raw: string(raw), Err: err}
		}
		env.Devices = append(env.Devices, *snap)
	}

	return env, nil
}
