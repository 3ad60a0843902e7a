package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scoady/backbeat/internal/core/domain"
)

func TestStore_LoadOrCreate(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	t.Run("missing project falls back to fresh", func(t *testing.T) {
		store := NewStore(newFakeRepo(), nil, log)
		p := store.LoadOrCreate(ctx, "nope")
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Untitled Project", p.Name)
	})

	t.Run("repository failure falls back to fresh", func(t *testing.T) {
		repo := newFakeRepo()
		repo.fail = true
		store := NewStore(repo, nil, log)
		p := store.LoadOrCreate(ctx, "whatever")
		assert.NotEmpty(t, p.ID)
	})

	t.Run("existing project is loaded", func(t *testing.T) {
		repo := newFakeRepo()
		saved, err := domain.NewProject("Session", 140, 3, 4)
		require.NoError(t, err)
		require.NoError(t, repo.SaveProjectTree(ctx, *saved))

		store := NewStore(repo, nil, log)
		p := store.LoadOrCreate(ctx, saved.ID)
		assert.Equal(t, saved.ID, p.ID)
		assert.Equal(t, 140, p.BPM)
	})
}

func TestStore_ArmIsExclusive(t *testing.T) {
	store := NewStore(newFakeRepo(), nil, zaptest.NewLogger(t))
	a, err := store.AddTrack("a", domain.TrackMIDI)
	require.NoError(t, err)
	b, err := store.AddTrack("b", domain.TrackInstrument)
	require.NoError(t, err)

	require.NoError(t, store.Arm(a.ID))
	require.NoError(t, store.Arm(b.ID))

	tree := store.Snapshot()
	assert.False(t, tree.Tracks[0].Armed)
	assert.True(t, tree.Tracks[1].Armed)

	assert.ErrorIs(t, store.Arm("missing"), domain.ErrNotFound)
}

func TestStore_EnsureRecordClip(t *testing.T) {
	store := NewStore(newFakeRepo(), nil, zaptest.NewLogger(t))
	tr, err := store.AddTrack("keys", domain.TrackMIDI)
	require.NoError(t, err)

	first, err := store.EnsureRecordClip(tr.ID, 8)
	require.NoError(t, err)
	// Same start beat reuses the clip instead of stacking takes.
	second, err := store.EnsureRecordClip(tr.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	third, err := store.EnsureRecordClip(tr.ID, 16)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	_, err = store.EnsureRecordClip("missing", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendNoteExtendsClip(t *testing.T) {
	store := NewStore(newFakeRepo(), nil, zaptest.NewLogger(t))
	tr, err := store.AddTrack("keys", domain.TrackMIDI)
	require.NoError(t, err)
	clipID, err := store.EnsureRecordClip(tr.ID, 0)
	require.NoError(t, err)

	n, err := domain.NewNote(60, 7.5, 1, 100)
	require.NoError(t, err)
	require.NoError(t, store.AppendNote(clipID, *n))

	tree := store.Snapshot()
	clip := tree.Tracks[0].Clips[0]
	require.Len(t, clip.Notes, 1)
	assert.InDelta(t, 8.5, clip.DurationBeats, 1e-9)
}

func TestStore_RefreshIfCurrent(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	repo := newFakeRepo()

	seed, err := domain.NewProject("Session", 120, 4, 4)
	require.NoError(t, err)
	require.NoError(t, repo.SaveProjectTree(ctx, *seed))

	store := NewStore(repo, nil, log)
	store.LoadOrCreate(ctx, seed.ID)

	// An HTTP edit of the session's project lands in the live tree too.
	svc := NewProjects(repo, log)
	svc.NotifySaved(func(p domain.Project) { store.RefreshIfCurrent(p) })

	edited := store.Snapshot()
	edited.Name = "Renamed Session"
	_, err = svc.Replace(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Session", store.Snapshot().Name)

	// A tree for a different project id leaves the session alone.
	other, err := domain.NewProject("Other", 90, 4, 4)
	require.NoError(t, err)
	assert.False(t, store.RefreshIfCurrent(*other))
	assert.Equal(t, "Renamed Session", store.Snapshot().Name)
}

func TestStore_SaveRoundTripsThroughRepo(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	store := NewStore(repo, nil, zaptest.NewLogger(t))
	_, err := store.AddTrack("keys", domain.TrackMIDI)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx))

	id := store.Snapshot().ID
	saved, err := repo.LoadProjectTree(ctx, id)
	require.NoError(t, err)
	assert.Len(t, saved.Tracks, 1)
}
