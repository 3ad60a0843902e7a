package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// Projects is the CRUD service behind the HTTP surface. Every mutation is
// load tree → mutate domain → save tree, leaning on the gateway's
// transactional replace save instead of incremental diffs.
type Projects struct {
	log     *zap.Logger
	repo    ports.ProjectRepository
	onSaved func(domain.Project)
}

// NewProjects constructs the project service.
func NewProjects(repo ports.ProjectRepository, log *zap.Logger) *Projects {
	return &Projects{log: log, repo: repo}
}

// NotifySaved registers a callback invoked with every tree this service
// persists. The composition root uses it to keep the live session store in
// step when the browser edits the session's project over HTTP.
func (s *Projects) NotifySaved(fn func(domain.Project)) {
	s.onSaved = fn
}

func (s *Projects) notifySaved(p domain.Project) {
	if s.onSaved != nil {
		s.onSaved(p)
	}
}

// Create validates and persists a new project.
func (s *Projects) Create(ctx context.Context, name string, bpm, timeSigN, timeSigD int) (domain.Project, error) {
	p, err := domain.NewProject(name, bpm, timeSigN, timeSigD)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.SaveProjectTree(ctx, *p); err != nil {
		return domain.Project{}, fmt.Errorf("service: failed to save project: %w", err)
	}
	s.log.Info("project created", zap.String("project", p.ID))
	return *p, nil
}

// Get loads a full project tree.
func (s *Projects) Get(ctx context.Context, id string) (domain.Project, error) {
	return s.repo.LoadProjectTree(ctx, id)
}

// List returns summaries of all projects.
func (s *Projects) List(ctx context.Context) ([]ports.ProjectSummary, error) {
	return s.repo.ListProjects(ctx)
}

// Replace persists an entire incoming tree under its id. The caller's tree
// wins wholesale; there is no merge. The tree is built by the client, so its
// invariants are re-checked before anything reaches storage.
func (s *Projects) Replace(ctx context.Context, p domain.Project) (domain.Project, error) {
	if p.ID == "" {
		return domain.Project{}, domain.ValidationError{Entity: "project", Field: "id", Reason: "must not be empty"}
	}
	p.BPM = domain.ClampBPM(p.BPM)
	if err := p.Validate(); err != nil {
		return domain.Project{}, err
	}
	p.Touch()
	if err := s.repo.SaveProjectTree(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("service: failed to save project: %w", err)
	}
	s.notifySaved(p)
	return p, nil
}

// Delete removes a project tree, reporting whether it existed.
func (s *Projects) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.DeleteProject(ctx, id)
}

// AddTrack appends a track to a stored project and returns the updated tree.
func (s *Projects) AddTrack(ctx context.Context, projectID, name string, typ domain.TrackType) (domain.Project, error) {
	p, err := s.repo.LoadProjectTree(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	t, err := domain.NewTrack(name, typ)
	if err != nil {
		return domain.Project{}, err
	}
	p.AddTrack(*t)
	if err := s.repo.SaveProjectTree(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("service: failed to save project: %w", err)
	}
	s.notifySaved(p)
	return p, nil
}

// TrackUpdate carries optional field changes for a track. Nil means leave as
// is.
type TrackUpdate struct {
	Name   *string
	Color  *string
	Volume *float64
	Pan    *float64
	Muted  *bool
	Solo   *bool
	Armed  *bool
}

// UpdateTrack applies a partial update to one track and returns the updated
// tree.
func (s *Projects) UpdateTrack(ctx context.Context, projectID, trackID string, u TrackUpdate) (domain.Project, error) {
	p, err := s.repo.LoadProjectTree(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	t := p.FindTrack(trackID)
	if t == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	if u.Name != nil {
		if *u.Name == "" {
			return domain.Project{}, domain.ValidationError{Entity: "track", Field: "name", Reason: "must not be empty"}
		}
		t.Name = *u.Name
	}
	if u.Color != nil {
		t.Color = *u.Color
	}
	if u.Volume != nil {
		t.SetVolume(*u.Volume)
	}
	if u.Pan != nil {
		t.SetPan(*u.Pan)
	}
	if u.Muted != nil {
		t.Muted = *u.Muted
	}
	if u.Solo != nil {
		t.Solo = *u.Solo
	}
	if u.Armed != nil {
		t.Armed = *u.Armed
	}
	p.Touch()
	if err := s.repo.SaveProjectTree(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("service: failed to save project: %w", err)
	}
	s.notifySaved(p)
	return p, nil
}

// DeleteTrack removes a track (and its clips and notes) from a stored
// project.
func (s *Projects) DeleteTrack(ctx context.Context, projectID, trackID string) (domain.Project, error) {
	p, err := s.repo.LoadProjectTree(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !p.RemoveTrack(trackID) {
		return domain.Project{}, domain.ErrNotFound
	}
	if err := s.repo.SaveProjectTree(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("service: failed to save project: %w", err)
	}
	s.notifySaved(p)
	return p, nil
}
