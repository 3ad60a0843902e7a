package domain

import (
	"errors"
	"testing"
)

func TestNewProject(t *testing.T) {
	tests := []struct {
		name     string
		projName string
		bpm      int
		sigN     int
		sigD     int
		wantErr  bool
		wantBPM  int
	}{
		{name: "valid", projName: "Demo", bpm: 128, sigN: 4, sigD: 4, wantBPM: 128},
		{name: "bpm clamped low", projName: "Slow", bpm: 5, sigN: 4, sigD: 4, wantBPM: MinBPM},
		{name: "bpm clamped high", projName: "Fast", bpm: 999, sigN: 4, sigD: 4, wantBPM: MaxBPM},
		{name: "empty name", projName: "", bpm: 120, sigN: 4, sigD: 4, wantErr: true},
		{name: "zero numerator", projName: "Bad", bpm: 120, sigN: 0, sigD: 4, wantErr: true},
		{name: "negative denominator", projName: "Bad", bpm: 120, sigN: 4, sigD: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProject(tt.projName, tt.bpm, tt.sigN, tt.sigD)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID == "" {
				t.Fatal("id not assigned")
			}
			if p.BPM != tt.wantBPM {
				t.Fatalf("bpm: got %d, want %d", p.BPM, tt.wantBPM)
			}
			if p.SampleRate != DefaultSampleRate {
				t.Fatalf("sample rate: got %d", p.SampleRate)
			}
		})
	}
}

func TestProject_TrackOrdering(t *testing.T) {
	p, err := NewProject("Order", 120, 4, 4)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		tr, err := NewTrack(name, TrackMIDI)
		if err != nil {
			t.Fatalf("new track: %v", err)
		}
		p.AddTrack(*tr)
	}
	for i, tr := range p.Tracks {
		if tr.SortOrder != i {
			t.Fatalf("track %d: sort order %d", i, tr.SortOrder)
		}
		if tr.ProjectID != p.ID {
			t.Fatalf("track %d: project id not set", i)
		}
	}

	// removal compacts the remaining sort orders
	if !p.RemoveTrack(p.Tracks[1].ID) {
		t.Fatal("remove track reported false")
	}
	if len(p.Tracks) != 2 {
		t.Fatalf("tracks: got %d, want 2", len(p.Tracks))
	}
	for i, tr := range p.Tracks {
		if tr.SortOrder != i {
			t.Fatalf("after removal, track %d has sort order %d", i, tr.SortOrder)
		}
	}
}

func TestProject_RecordTarget(t *testing.T) {
	p, _ := NewProject("Target", 120, 4, 4)

	if p.RecordTarget() != nil {
		t.Fatal("empty project should have no record target")
	}

	audio, _ := NewTrack("drums", TrackAudio)
	p.AddTrack(*audio)
	if p.RecordTarget() != nil {
		t.Fatal("audio-only project should have no record target")
	}

	keys, _ := NewTrack("keys", TrackMIDI)
	bass, _ := NewTrack("bass", TrackInstrument)
	p.AddTrack(*keys)
	p.AddTrack(*bass)

	if got := p.RecordTarget(); got == nil || got.Name != "keys" {
		t.Fatalf("expected first recordable track, got %+v", got)
	}

	p.Tracks[2].Armed = true
	if got := p.RecordTarget(); got == nil || got.Name != "bass" {
		t.Fatalf("expected armed track to win, got %+v", got)
	}
}

func TestProject_Validate(t *testing.T) {
	valid := func() *Project {
		p, err := NewProject("Demo", 120, 4, 4)
		if err != nil {
			t.Fatalf("new project: %v", err)
		}
		tr, _ := NewTrack("keys", TrackMIDI)
		c, _ := NewClip("riff", 0, 4)
		n, _ := NewNote(60, 0, 1, 100)
		c.AppendNote(*n)
		tr.AddClip(*c)
		p.AddTrack(*tr)
		return p
	}

	tests := []struct {
		name    string
		mutate  func(*Project)
		wantErr bool
	}{
		{name: "constructed tree passes", mutate: func(*Project) {}},
		{name: "empty name", mutate: func(p *Project) { p.Name = "" }, wantErr: true},
		{name: "zero time signature", mutate: func(p *Project) { p.TimeSigN = 0 }, wantErr: true},
		{name: "empty track name", mutate: func(p *Project) { p.Tracks[0].Name = "" }, wantErr: true},
		{name: "bad track type", mutate: func(p *Project) { p.Tracks[0].Type = "vocoder" }, wantErr: true},
		{name: "volume out of range", mutate: func(p *Project) { p.Tracks[0].Volume = 1.5 }, wantErr: true},
		{name: "pan out of range", mutate: func(p *Project) { p.Tracks[0].Pan = -2 }, wantErr: true},
		{name: "negative clip start", mutate: func(p *Project) { p.Tracks[0].Clips[0].StartBeat = -1 }, wantErr: true},
		{name: "zero clip duration", mutate: func(p *Project) { p.Tracks[0].Clips[0].DurationBeats = 0 }, wantErr: true},
		{name: "pitch out of range", mutate: func(p *Project) { p.Tracks[0].Clips[0].Notes[0].Pitch = 999 }, wantErr: true},
		{name: "velocity out of range", mutate: func(p *Project) { p.Tracks[0].Clips[0].Notes[0].Velocity = 300 }, wantErr: true},
		{name: "negative note start", mutate: func(p *Project) { p.Tracks[0].Clips[0].Notes[0].StartBeat = -5 }, wantErr: true},
		{name: "negative note duration", mutate: func(p *Project) { p.Tracks[0].Clips[0].Notes[0].DurationBeats = -2 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewNote_Validation(t *testing.T) {
	tests := []struct {
		name     string
		pitch    int
		start    float64
		duration float64
		velocity int
		wantErr  bool
	}{
		{name: "valid", pitch: 60, start: 0, duration: 1, velocity: 100},
		{name: "pitch low", pitch: -1, start: 0, duration: 1, velocity: 100, wantErr: true},
		{name: "pitch high", pitch: 128, start: 0, duration: 1, velocity: 100, wantErr: true},
		{name: "velocity high", pitch: 60, start: 0, duration: 1, velocity: 128, wantErr: true},
		{name: "negative start", pitch: 60, start: -0.5, duration: 1, velocity: 100, wantErr: true},
		{name: "zero duration", pitch: 60, start: 0, duration: 0, velocity: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNote(tt.pitch, tt.start, tt.duration, tt.velocity)
			if tt.wantErr {
				var ve ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.ID == "" {
				t.Fatal("id not assigned")
			}
		})
	}
}

func TestClip_AppendNoteExtends(t *testing.T) {
	c, err := NewClip("riff", 0, 4)
	if err != nil {
		t.Fatalf("new clip: %v", err)
	}
	n, _ := NewNote(64, 3.5, 1.0, 90)
	c.AppendNote(*n)
	if c.DurationBeats != 4.5 {
		t.Fatalf("clip not extended: duration %v", c.DurationBeats)
	}
	if c.Notes[0].ClipID != c.ID {
		t.Fatal("note clip id not set")
	}
}

func TestLibraryClip_MatchesFilter(t *testing.T) {
	lc, err := NewLibraryClip("Funky Bassline", "bass", 4, 110)
	if err != nil {
		t.Fatalf("new library clip: %v", err)
	}
	lc.Tags = "funk, groove"

	tests := []struct {
		name     string
		category string
		search   string
		want     bool
	}{
		{name: "no filter", want: true},
		{name: "category match", category: "bass", want: true},
		{name: "category miss", category: "drums", want: false},
		{name: "name substring", search: "bassl", want: true},
		{name: "tag match", search: "groove", want: true},
		{name: "search miss", search: "piano", want: false},
		{name: "category and search", category: "bass", search: "funk", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lc.MatchesFilter(tt.category, tt.search); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
