// Package services holds the core application logic between the HTTP/MIDI
// adapters and the repositories.
package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// SaveQueuer accepts tree snapshots for background persistence.
type SaveQueuer interface {
	Submit(p domain.Project)
}

// Store is the authoritative in-memory project of the session. All mutation
// goes through it; the relational store is a durable mirror updated by
// explicit or queued saves, never the other way around mid-session.
type Store struct {
	log   *zap.Logger
	repo  ports.ProjectRepository
	queue SaveQueuer // may be nil; QueueSave degrades to a no-op

	mu      sync.Mutex
	project *domain.Project
}

// NewStore constructs a session store. The queue is optional.
func NewStore(repo ports.ProjectRepository, queue SaveQueuer, log *zap.Logger) *Store {
	return &Store{log: log, repo: repo, queue: queue}
}

// LoadOrCreate loads a project tree, or falls back to a fresh in-memory
// project when the id is absent or the load fails. The session stays usable
// even if durable persistence is down.
func (s *Store) LoadOrCreate(ctx context.Context, id string) domain.Project {
	p, err := s.repo.LoadProjectTree(ctx, id)
	if err != nil {
		fresh, _ := domain.NewProject("Untitled Project", 120, 4, 4)
		s.log.Warn("project load failed, starting fresh",
			zap.String("project", id), zap.Error(err))
		s.mu.Lock()
		s.project = fresh
		s.mu.Unlock()
		return fresh.Clone()
	}

	s.mu.Lock()
	s.project = &p
	s.mu.Unlock()
	s.log.Info("project loaded", zap.String("project", p.ID), zap.Int("tracks", len(p.Tracks)))
	return p.Clone()
}

// RefreshIfCurrent replaces the live tree when the given tree carries the
// session project's id, and reports whether it did. HTTP edits persist
// through the CRUD service; without this hook a later queued save of the
// in-memory tree would silently roll those edits back.
func (s *Store) RefreshIfCurrent(p domain.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil || s.project.ID != p.ID {
		return false
	}
	fresh := p.Clone()
	s.project = &fresh
	return true
}

// Snapshot returns a deep copy of the live tree.
func (s *Store) Snapshot() domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return s.project.Clone()
}

func (s *Store) ensureLocked() {
	if s.project == nil {
		fresh, _ := domain.NewProject("Untitled Project", 120, 4, 4)
		s.project = fresh
	}
}

// AddTrack creates and appends a track, returning a copy of it.
func (s *Store) AddTrack(name string, typ domain.TrackType) (domain.Track, error) {
	t, err := domain.NewTrack(name, typ)
	if err != nil {
		return domain.Track{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	s.project.AddTrack(*t)
	return s.project.Tracks[len(s.project.Tracks)-1], nil
}

// RemoveTrack deletes a track and everything under it.
func (s *Store) RemoveTrack(trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return s.project.RemoveTrack(trackID)
}

// Arm marks one track as the recording target, clearing the flag elsewhere.
func (s *Store) Arm(trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	target := s.project.FindTrack(trackID)
	if target == nil {
		return domain.ErrNotFound
	}
	for i := range s.project.Tracks {
		s.project.Tracks[i].Armed = s.project.Tracks[i].ID == trackID
	}
	return nil
}

// SetBPM clamps and applies a new tempo.
func (s *Store) SetBPM(bpm int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	s.project.SetBPM(bpm)
	return s.project.BPM
}

// RecordTarget returns the id of the track that should receive recorded
// input, or false when the project has none.
func (s *Store) RecordTarget() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	t := s.project.RecordTarget()
	if t == nil {
		return "", false
	}
	return t.ID, true
}

// EnsureRecordClip returns a clip on the given track starting at the given
// beat, creating one when none exists. The returned id is the recording
// session's target clip.
func (s *Store) EnsureRecordClip(trackID string, startBeat float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	track := s.project.FindTrack(trackID)
	if track == nil {
		return "", domain.ErrNotFound
	}
	for i := range track.Clips {
		if track.Clips[i].StartBeat == startBeat {
			return track.Clips[i].ID, nil
		}
	}
	clip, err := domain.NewClip(fmt.Sprintf("Take %d", len(track.Clips)+1), startBeat, 4)
	if err != nil {
		return "", err
	}
	track.AddClip(*clip)
	s.project.Touch()
	return clip.ID, nil
}

// AppendNote appends a recorded note to a clip, extending the clip when the
// note runs past its end. The append and the extension happen under one lock
// so no other event interleaves.
func (s *Store) AppendNote(clipID string, n domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	_, clip := s.project.FindClip(clipID)
	if clip == nil {
		return domain.ErrNotFound
	}
	clip.AppendNote(n)
	s.project.Touch()
	return nil
}

// Save persists the current tree synchronously.
func (s *Store) Save(ctx context.Context) error {
	snapshot := s.Snapshot()
	if err := s.repo.SaveProjectTree(ctx, snapshot); err != nil {
		return fmt.Errorf("service: failed to save project: %w", err)
	}
	return nil
}

// QueueSave hands a snapshot to the background save queue. Editing continues
// while the save is in flight; a failure surfaces through the queue's status
// callback and never blocks the session.
func (s *Store) QueueSave() {
	if s.queue == nil {
		return
	}
	s.queue.Submit(s.Snapshot())
}
