package services

import (
	"sync"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// DefaultMinNoteBeats is the duration floor for recorded notes. A press and
// release inside one clock tick still produces an audible note.
const DefaultMinNoteBeats = 0.125

// ErrNoRecordableTrack is returned by Start when the project has no track
// that can receive MIDI input.
var ErrNoRecordableTrack = domain.ValidationError{
	Entity: "recording", Field: "track", Reason: "no armed or MIDI-capable track",
}

type pendingNote struct {
	startBeat float64
	velocity  uint8
}

// Recorder bridges capture events and the beat clock into notes on the active
// clip. Monitoring is independent of recording: every Note On triggers the
// engine whether or not a session is running.
type Recorder struct {
	log          *zap.Logger
	store        *Store
	clock        ports.BeatClock
	engine       ports.SoundEngine
	minNoteBeats float64

	mu        sync.Mutex
	recording bool
	startBeat float64
	clipID    string
	// pending holds presses awaiting their release, keyed by pitch. A second
	// press of the same pitch overwrites the first: latest Note On wins.
	pending map[uint8]pendingNote
}

// NewRecorder constructs a recorder. minNoteBeats <= 0 selects the default.
func NewRecorder(store *Store, clock ports.BeatClock, engine ports.SoundEngine, minNoteBeats float64, log *zap.Logger) *Recorder {
	if minNoteBeats <= 0 {
		minNoteBeats = DefaultMinNoteBeats
	}
	return &Recorder{
		log:          log,
		store:        store,
		clock:        clock,
		engine:       engine,
		minNoteBeats: minNoteBeats,
		pending:      make(map[uint8]pendingNote),
	}
}

// Attach subscribes the recorder to a capture service and returns a teardown
// function.
func (r *Recorder) Attach(capture ports.Capture) func() {
	offOn := capture.OnNoteOn(r.NoteOn)
	offOff := capture.OnNoteOff(r.NoteOff)
	return func() {
		offOn()
		offOff()
	}
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start begins a recording session: fixes the start beat, resolves the target
// clip (created if absent) and clears any stale pending presses.
func (r *Recorder) Start() error {
	trackID, ok := r.store.RecordTarget()
	if !ok {
		return ErrNoRecordableTrack
	}
	beat := r.clock.BeatNow()
	clipID, err := r.store.EnsureRecordClip(trackID, beat)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.recording = true
	r.startBeat = beat
	r.clipID = clipID
	r.pending = make(map[uint8]pendingNote)
	r.mu.Unlock()

	r.log.Info("recording started", zap.String("clip", clipID), zap.Float64("beat", beat))
	return nil
}

// Stop ends the session. Pending presses are not drained: a note must be
// released while recording to materialize.
func (r *Recorder) Stop() {
	r.mu.Lock()
	held := len(r.pending)
	r.recording = false
	r.mu.Unlock()
	if held > 0 {
		r.log.Debug("recording stopped with held notes dropped", zap.Int("held", held))
	} else {
		r.log.Info("recording stopped")
	}
}

// NoteOn handles a capture Note On: trigger the engine, and while recording
// remember the press for pairing with its release.
func (r *Recorder) NoteOn(ev ports.NoteEvent) {
	if _, ok := r.store.RecordTarget(); !ok {
		return
	}
	r.engine.NoteOn(ev.Pitch, ev.Velocity)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	local := r.clock.BeatNow() - r.startBeat
	if local < 0 {
		local = 0
	}
	// A missing Note Off for this pitch means the earlier press is treated
	// as implicitly released and discarded.
	r.pending[ev.Pitch] = pendingNote{startBeat: local, velocity: ev.Velocity}
}

// NoteOff handles a capture Note Off: release the engine voice, and while
// recording close the matching press into a durable note. An unmatched
// release is dropped.
func (r *Recorder) NoteOff(ev ports.NoteEvent) {
	r.engine.NoteOff(ev.Pitch)

	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	p, ok := r.pending[ev.Pitch]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, ev.Pitch)
	local := r.clock.BeatNow() - r.startBeat
	duration := local - p.startBeat
	if duration < r.minNoteBeats {
		duration = r.minNoteBeats
	}
	clipID := r.clipID
	r.mu.Unlock()

	note, err := domain.NewNote(int(ev.Pitch), p.startBeat, duration, int(p.velocity))
	if err != nil {
		r.log.Warn("recorded note rejected", zap.Uint8("pitch", ev.Pitch), zap.Error(err))
		return
	}
	if err := r.store.AppendNote(clipID, *note); err != nil {
		r.log.Warn("recorded note append failed", zap.String("clip", clipID), zap.Error(err))
		return
	}
	r.store.QueueSave()
}
