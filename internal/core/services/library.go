package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// Library manages the flat preset catalog of reusable clips.
type Library struct {
	log  *zap.Logger
	repo ports.LibraryRepository
}

// NewLibrary constructs the library service.
func NewLibrary(repo ports.LibraryRepository, log *zap.Logger) *Library {
	return &Library{log: log, repo: repo}
}

// Save validates and persists a catalog clip. A missing id gets one assigned
// (insert); a present id overwrites (upsert-by-id).
func (s *Library) Save(ctx context.Context, c domain.LibraryClip) (domain.LibraryClip, error) {
	if c.Name == "" {
		return domain.LibraryClip{}, domain.ValidationError{Entity: "libraryClip", Field: "name", Reason: "must not be empty"}
	}
	if c.DurationBeats <= 0 {
		return domain.LibraryClip{}, domain.ValidationError{Entity: "libraryClip", Field: "durationBeats", Reason: "must be positive"}
	}
	c.BPM = domain.ClampBPM(c.BPM)
	if c.ClipType == "" {
		c.ClipType = "midi"
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Notes {
		n := &c.Notes[i]
		checked, err := domain.NewNote(n.Pitch, n.StartBeat, n.DurationBeats, n.Velocity)
		if err != nil {
			return domain.LibraryClip{}, err
		}
		if n.ID == "" {
			n.ID = checked.ID
		}
	}
	if err := s.repo.SaveLibraryClip(ctx, c); err != nil {
		return domain.LibraryClip{}, fmt.Errorf("service: failed to save library clip: %w", err)
	}
	s.log.Info("library clip saved", zap.String("clip", c.ID), zap.String("category", c.Category))
	return c, nil
}

// List returns catalog clips matching the optional category/search filters.
func (s *Library) List(ctx context.Context, category, search string) ([]domain.LibraryClip, error) {
	return s.repo.ListLibraryClips(ctx, category, search)
}

// Delete removes a catalog clip, reporting whether it existed.
func (s *Library) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.DeleteLibraryClip(ctx, id)
}
