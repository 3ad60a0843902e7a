package domain

import "github.com/google/uuid"

// Clip is a time-bounded container of notes (or an audio reference) placed on
// a track. Positions and lengths are in beats so they scale with tempo.
type Clip struct {
	ID            string  `json:"id"`
	TrackID       string  `json:"trackId"`
	Name          string  `json:"name"`
	StartBeat     float64 `json:"startBeat"`
	DurationBeats float64 `json:"durationBeats"`
	Color         string  `json:"color,omitempty"`
	AudioURL      string  `json:"audioUrl,omitempty"`
	Notes         []Note  `json:"notes"`
}

// NewClip constructs a clip with a generated id.
func NewClip(name string, startBeat, durationBeats float64) (*Clip, error) {
	if startBeat < 0 {
		return nil, ValidationError{Entity: "clip", Field: "startBeat", Reason: "must not be negative"}
	}
	if durationBeats <= 0 {
		return nil, ValidationError{Entity: "clip", Field: "durationBeats", Reason: "must be positive"}
	}
	return &Clip{
		ID:            uuid.NewString(),
		Name:          name,
		StartBeat:     startBeat,
		DurationBeats: durationBeats,
		Notes:         []Note{},
	}, nil
}

// AppendNote attaches a note to the clip. If the note runs past the clip's
// end, the clip is extended to contain it.
func (c *Clip) AppendNote(n Note) {
	n.ClipID = c.ID
	c.Notes = append(c.Notes, n)
	if end := n.StartBeat + n.DurationBeats; end > c.DurationBeats {
		c.DurationBeats = end
	}
}

// Note is a single pitched event inside a clip. StartBeat is relative to the
// clip start, never negative. Pitch and velocity are 7-bit MIDI values.
type Note struct {
	ID            string  `json:"id"`
	ClipID        string  `json:"clipId"`
	Pitch         int     `json:"pitch"`
	StartBeat     float64 `json:"startBeat"`
	DurationBeats float64 `json:"durationBeats"`
	Velocity      int     `json:"velocity"`
}

// NewNote constructs a note, enforcing the 7-bit and beat-range invariants.
func NewNote(pitch int, startBeat, durationBeats float64, velocity int) (*Note, error) {
	if pitch < 0 || pitch > 127 {
		return nil, ValidationError{Entity: "note", Field: "pitch", Reason: "must be in [0,127]"}
	}
	if velocity < 0 || velocity > 127 {
		return nil, ValidationError{Entity: "note", Field: "velocity", Reason: "must be in [0,127]"}
	}
	if startBeat < 0 {
		return nil, ValidationError{Entity: "note", Field: "startBeat", Reason: "must not be negative"}
	}
	if durationBeats <= 0 {
		return nil, ValidationError{Entity: "note", Field: "durationBeats", Reason: "must be positive"}
	}
	return &Note{
		ID:            uuid.NewString(),
		Pitch:         pitch,
		StartBeat:     startBeat,
		DurationBeats: durationBeats,
		Velocity:      velocity,
	}, nil
}
