package protocol

// ChangeMask records, per DeviceSnapshot field, whether the value differs
// from the previous snapshot. A zero ChangeMask means nothing changed.
//
// Extended fields are masked only when present in the current snapshot;
// fields the executable never reports stay false.
type ChangeMask struct {
	ID     bool `json:"id"`
	Name   bool `json:"name"`
	Volume bool `json:"volume"`
	Muted  bool `json:"muted"`

	DataFlow   bool `json:"dataFlow,omitempty"`
	Default    bool `json:"default,omitempty"`
	Channels   bool `json:"channels,omitempty"`
	BitDepth   bool `json:"bitDepth,omitempty"`
	SampleRate bool `json:"sampleRate,omitempty"`
}

// Any reports whether at least one field changed.
func (m ChangeMask) Any() bool {
	return m != ChangeMask{}
}

// Diff compares cur against prev and returns the per-field change mask.
//
// It is a pure function: the caller owns the baseline and decides when cur
// becomes the new previous snapshot (only after the paired event has been
// delivered, so a mask is never observed without its snapshot).
//
// A nil prev means cur is the first snapshot: every field present in cur is
// marked changed. Comparison is by value equality, never identity.
func Diff(prev *DeviceSnapshot, cur DeviceSnapshot) ChangeMask {
	if prev == nil {
		return ChangeMask{
			ID:         true,
			Name:       true,
			Volume:     true,
			Muted:      true,
			DataFlow:   cur.DataFlow != "",
			Default:    cur.Default != nil,
			Channels:   cur.Channels != nil,
			BitDepth:   cur.BitDepth != nil,
			SampleRate: cur.SampleRate != nil,
		}
	}

	return ChangeMask{
		ID:         cur.ID != prev.ID,
		Name:       cur.Name != prev.Name,
		Volume:     cur.Volume != prev.Volume,
		Muted:      cur.Muted != prev.Muted,
		DataFlow:   cur.DataFlow != "" && cur.DataFlow != prev.DataFlow,
		Default:    cur.Default != nil && !equalBool(prev.Default, cur.Default),
		Channels:   cur.Channels != nil && !equalInt(prev.Channels, cur.Channels),
		BitDepth:   cur.BitDepth != nil && !equalInt(prev.BitDepth, cur.BitDepth),
		SampleRate: cur.SampleRate != nil && !equalInt(prev.SampleRate, cur.SampleRate),
	}
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
