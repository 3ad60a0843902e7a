package domain

import (
	"time"

	"github.com/google/uuid"
)

// BPM bounds. Values outside the range are clamped, never rejected.
const (
	MinBPM = 20
	MaxBPM = 300
)

// DefaultSampleRate is used for new projects unless overridden.
const DefaultSampleRate = 44100

// Project is the root of the entity tree. It exclusively owns its Tracks;
// deleting a project deletes everything beneath it.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BPM        int       `json:"bpm"`
	TimeSigN   int       `json:"timeSigN"`
	TimeSigD   int       `json:"timeSigD"`
	SampleRate int       `json:"sampleRate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Tracks     []Track   `json:"tracks"`
}

// NewProject constructs a project with a generated id. The bpm is clamped to
// [MinBPM, MaxBPM]; a non-positive time signature is a validation error.
func NewProject(name string, bpm, timeSigN, timeSigD int) (*Project, error) {
	if name == "" {
		return nil, ValidationError{Entity: "project", Field: "name", Reason: "must not be empty"}
	}
	if timeSigN <= 0 {
		return nil, ValidationError{Entity: "project", Field: "timeSigN", Reason: "must be positive"}
	}
	if timeSigD <= 0 {
		return nil, ValidationError{Entity: "project", Field: "timeSigD", Reason: "must be positive"}
	}
	now := time.Now().UTC()
	return &Project{
		ID:         uuid.NewString(),
		Name:       name,
		BPM:        ClampBPM(bpm),
		TimeSigN:   timeSigN,
		TimeSigD:   timeSigD,
		SampleRate: DefaultSampleRate,
		CreatedAt:  now,
		UpdatedAt:  now,
		Tracks:     []Track{},
	}, nil
}

// Validate checks the invariants of the whole tree. Constructors enforce them
// piecewise; a tree assembled elsewhere (decoded from a request body) must
// pass here before it is persisted.
func (p *Project) Validate() error {
	if p.Name == "" {
		return ValidationError{Entity: "project", Field: "name", Reason: "must not be empty"}
	}
	if p.TimeSigN <= 0 {
		return ValidationError{Entity: "project", Field: "timeSigN", Reason: "must be positive"}
	}
	if p.TimeSigD <= 0 {
		return ValidationError{Entity: "project", Field: "timeSigD", Reason: "must be positive"}
	}
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if t.Name == "" {
			return ValidationError{Entity: "track", Field: "name", Reason: "must not be empty"}
		}
		if !t.Type.Valid() {
			return ValidationError{Entity: "track", Field: "type", Reason: "must be midi, audio or instrument"}
		}
		if t.Volume < 0 || t.Volume > 1 {
			return ValidationError{Entity: "track", Field: "volume", Reason: "must be in [0,1]"}
		}
		if t.Pan < -1 || t.Pan > 1 {
			return ValidationError{Entity: "track", Field: "pan", Reason: "must be in [-1,1]"}
		}
		for j := range t.Clips {
			c := &t.Clips[j]
			if c.StartBeat < 0 {
				return ValidationError{Entity: "clip", Field: "startBeat", Reason: "must not be negative"}
			}
			if c.DurationBeats <= 0 {
				return ValidationError{Entity: "clip", Field: "durationBeats", Reason: "must be positive"}
			}
			for _, n := range c.Notes {
				if n.Pitch < 0 || n.Pitch > 127 {
					return ValidationError{Entity: "note", Field: "pitch", Reason: "must be in [0,127]"}
				}
				if n.Velocity < 0 || n.Velocity > 127 {
					return ValidationError{Entity: "note", Field: "velocity", Reason: "must be in [0,127]"}
				}
				if n.StartBeat < 0 {
					return ValidationError{Entity: "note", Field: "startBeat", Reason: "must not be negative"}
				}
				if n.DurationBeats <= 0 {
					return ValidationError{Entity: "note", Field: "durationBeats", Reason: "must be positive"}
				}
			}
		}
	}
	return nil
}

// ClampBPM forces a tempo into the supported range.
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// SetBPM clamps and applies a new tempo.
func (p *Project) SetBPM(bpm int) {
	p.BPM = ClampBPM(bpm)
	p.Touch()
}

// Touch updates the modification timestamp.
func (p *Project) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// AddTrack appends a track to the project. Sort order is assigned from the
// track's position; the incoming value is ignored.
func (p *Project) AddTrack(t Track) {
	t.ProjectID = p.ID
	t.SortOrder = len(p.Tracks)
	p.Tracks = append(p.Tracks, t)
	p.Touch()
}

// RemoveTrack deletes a track and, with it, all of its clips and notes.
// It reports whether the track existed. Remaining sort orders are compacted.
func (p *Project) RemoveTrack(trackID string) bool {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
			for j := range p.Tracks {
				p.Tracks[j].SortOrder = j
			}
			p.Touch()
			return true
		}
	}
	return false
}

// FindTrack returns a pointer into the project's track slice, or nil.
// The pointer is invalidated by AddTrack/RemoveTrack.
func (p *Project) FindTrack(trackID string) *Track {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			return &p.Tracks[i]
		}
	}
	return nil
}

// FindClip locates a clip anywhere in the tree, returning the owning track too.
func (p *Project) FindClip(clipID string) (*Track, *Clip) {
	for i := range p.Tracks {
		if c := p.Tracks[i].FindClip(clipID); c != nil {
			return &p.Tracks[i], c
		}
	}
	return nil, nil
}

// ArmedTrack returns the first armed track, or nil.
func (p *Project) ArmedTrack() *Track {
	for i := range p.Tracks {
		if p.Tracks[i].Armed {
			return &p.Tracks[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the tree, safe to hand to another goroutine
// while the original keeps being mutated.
func (p *Project) Clone() Project {
	out := *p
	out.Tracks = make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		out.Tracks[i] = t
		out.Tracks[i].Clips = make([]Clip, len(t.Clips))
		for j, c := range t.Clips {
			out.Tracks[i].Clips[j] = c
			out.Tracks[i].Clips[j].Notes = append([]Note(nil), c.Notes...)
		}
	}
	return out
}

// RecordTarget resolves the track that should receive recorded input: the
// armed track if one exists, otherwise the first track capable of holding
// MIDI notes. Returns nil when the project has no suitable track.
func (p *Project) RecordTarget() *Track {
	if t := p.ArmedTrack(); t != nil {
		return t
	}
	for i := range p.Tracks {
		if p.Tracks[i].Type.Recordable() {
			return &p.Tracks[i]
		}
	}
	return nil
}
