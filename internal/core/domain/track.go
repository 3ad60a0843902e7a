package domain

import "github.com/google/uuid"

// TrackType discriminates what a track can hold.
type TrackType string

const (
	TrackMIDI       TrackType = "midi"
	TrackAudio      TrackType = "audio"
	TrackInstrument TrackType = "instrument"
)

// Valid reports whether t is one of the known track types.
func (t TrackType) Valid() bool {
	return t == TrackMIDI || t == TrackAudio || t == TrackInstrument
}

// Recordable reports whether a track of this type can receive MIDI notes.
func (t TrackType) Recordable() bool {
	return t == TrackMIDI || t == TrackInstrument
}

// Track is a lane inside a project. Solo is advisory: soloing one track does
// not clear the flag on others.
type Track struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Type      TrackType `json:"type"`
	Color     string    `json:"color"`
	Volume    float64   `json:"volume"`
	Pan       float64   `json:"pan"`
	Muted     bool      `json:"muted"`
	Solo      bool      `json:"solo"`
	Armed     bool      `json:"armed"`
	SortOrder int       `json:"sortOrder"`
	Clips     []Clip    `json:"clips"`
}

// NewTrack constructs a track with a generated id. Volume is clamped to
// [0,1] and pan to [-1,1].
func NewTrack(name string, typ TrackType) (*Track, error) {
	if name == "" {
		return nil, ValidationError{Entity: "track", Field: "name", Reason: "must not be empty"}
	}
	if !typ.Valid() {
		return nil, ValidationError{Entity: "track", Field: "type", Reason: "must be midi, audio or instrument"}
	}
	return &Track{
		ID:     uuid.NewString(),
		Name:   name,
		Type:   typ,
		Volume: 0.8,
		Pan:    0,
		Clips:  []Clip{},
	}, nil
}

// SetVolume clamps and applies a volume in [0,1].
func (t *Track) SetVolume(v float64) {
	t.Volume = clampFloat(v, 0, 1)
}

// SetPan clamps and applies a pan in [-1,1].
func (t *Track) SetPan(p float64) {
	t.Pan = clampFloat(p, -1, 1)
}

// AddClip appends a clip to the track.
func (t *Track) AddClip(c Clip) {
	c.TrackID = t.ID
	t.Clips = append(t.Clips, c)
}

// RemoveClip deletes a clip and its notes, reporting whether it existed.
func (t *Track) RemoveClip(clipID string) bool {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return true
		}
	}
	return false
}

// FindClip returns a pointer into the track's clip slice, or nil.
func (t *Track) FindClip(clipID string) *Clip {
	for i := range t.Clips {
		if t.Clips[i].ID == clipID {
			return &t.Clips[i]
		}
	}
	return nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
