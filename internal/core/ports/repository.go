package ports

import (
	"context"

	"github.com/scoady/backbeat/internal/core/domain"
)

// ProjectSummary is the lightweight row returned by list queries.
type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	BPM  int    `json:"bpm"`
}

// ProjectRepository persists whole project trees. SaveProjectTree uses a
// replace strategy inside one transaction: readers never observe a partially
// replaced tree, and a failed save leaves the previous tree intact. There is
// no version column; concurrent saves of the same project id resolve as last
// commit wins, so callers keep at most one save per project in flight.
type ProjectRepository interface {
	LoadProjectTree(ctx context.Context, id string) (domain.Project, error)
	SaveProjectTree(ctx context.Context, p domain.Project) error
	ListProjects(ctx context.Context) ([]ProjectSummary, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
}

// LibraryRepository persists the flat preset catalog.
type LibraryRepository interface {
	SaveLibraryClip(ctx context.Context, c domain.LibraryClip) error
	ListLibraryClips(ctx context.Context, category, search string) ([]domain.LibraryClip, error)
	DeleteLibraryClip(ctx context.Context, id string) (bool, error)
}

// AudioStore persists opaque binary assets with metadata.
type AudioStore interface {
	SaveAudioFile(ctx context.Context, f domain.AudioFile) error
	// LoadAudioFile returns the asset including its payload, or
	// domain.ErrNotFound.
	LoadAudioFile(ctx context.Context, id string) (domain.AudioFile, error)
	// ListAudioFiles returns metadata only; Data is left nil.
	ListAudioFiles(ctx context.Context) ([]domain.AudioFile, error)
	// UpdateAudioInfo fills in probed duration and sample rate.
	UpdateAudioInfo(ctx context.Context, id string, durationSecs float64, sampleRate int) error
}
