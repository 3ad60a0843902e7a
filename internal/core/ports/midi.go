package ports

import "time"

// DeviceState is the connection state of a MIDI input device.
type DeviceState string

const (
	DeviceConnected    DeviceState = "connected"
	DeviceDisconnected DeviceState = "disconnected"
)

// DeviceInfo describes a MIDI input device.
type DeviceInfo struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Manufacturer string      `json:"manufacturer"`
	State        DeviceState `json:"state"`
}

// NoteEvent is a decoded note-on or note-off message from the selected device.
type NoteEvent struct {
	Pitch     uint8
	Velocity  uint8
	Channel   uint8
	Timestamp time.Time
}

// Unsubscribe removes a subscription. Safe to call more than once.
type Unsubscribe func()

// Capture normalizes a raw MIDI input stream into note events. On platforms
// without MIDI support every method degrades to a no-op.
type Capture interface {
	// Initialize reports whether the platform supports MIDI input.
	Initialize() bool
	ListDevices() []DeviceInfo
	// SelectDevice attaches to exactly one device; the empty id detaches.
	// No events from a previously selected device are delivered after the
	// call returns.
	SelectDevice(id string) error
	OnNoteOn(fn func(NoteEvent)) Unsubscribe
	OnNoteOff(fn func(NoteEvent)) Unsubscribe
	OnDeviceChange(fn func([]DeviceInfo)) Unsubscribe
	// Dispose detaches all listeners and clears subscribers. Idempotent.
	Dispose()
}

// BeatClock is the transport clock collaborator: a monotonically increasing
// beat position while playing.
type BeatClock interface {
	BeatNow() float64
	Playing() bool
}

// SoundEngine is the external synth collaborator. Triggers are fire-and-forget
// so the player hears a note immediately whether or not recording is active.
type SoundEngine interface {
	NoteOn(pitch, velocity uint8)
	NoteOff(pitch uint8)
}
