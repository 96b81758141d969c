// Package protocol defines the wire protocol spoken by the external audio
// monitor process.
//
// The process reports device telemetry as one JSON record per stdout line and
// accepts plain-text command lines on stdin. Two protocol variants exist:
//
//   - Variant A: each record is a flat device snapshot
//     {"id":"...","name":"...","volume":50,"muted":false}
//   - Variant B: each record is an envelope carrying an action tag plus the
//     full device list
//     {"action":{"type":"volume","device":{...}},"devices":[...]}
//
// Decoding never panics and never stops the pipeline: malformed records are
// reported as *DecodeError carrying the raw line, and the monitor converts
// them into error events while continuing with the next record.
//
// Diff is the change detector: a pure function from two snapshots to a
// per-field ChangeMask, kept free of hidden state so the baseline handover is
// explicit in the caller.
//
// Command constructors validate their arguments before anything touches the
// child's stdin; an invalid argument fails with ErrValidation and produces no
// Command at all.
package protocol
