package sqlite

import (
	"context"
	"fmt"

	"github.com/scoady/backbeat/internal/core/domain"
)

// SaveLibraryClip upserts one catalog clip with the same replace strategy as
// project trees, scoped to the clip's note set. Transactional: either the new
// clip and all its notes land, or nothing changes.
func (a *Adapter) SaveLibraryClip(ctx context.Context, c domain.LibraryClip) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryClip := `
		INSERT INTO library_clips (id, name, category, clip_type, duration_beats, bpm, color, audio_file_id, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			category=excluded.category,
			clip_type=excluded.clip_type,
			duration_beats=excluded.duration_beats,
			bpm=excluded.bpm,
			color=excluded.color,
			audio_file_id=excluded.audio_file_id,
			tags=excluded.tags;
	`
	if _, err := tx.ExecContext(ctx, queryClip, c.ID, c.Name, c.Category, c.ClipType, c.DurationBeats, c.BPM, nullable(c.Color), nullable(c.AudioFileID), nullable(c.Tags)); err != nil {
		return fmt.Errorf("failed to save library clip: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM library_notes WHERE clip_id = ?", c.ID); err != nil {
		return fmt.Errorf("failed to clear old library notes: %w", err)
	}

	stmtNote, err := tx.PrepareContext(ctx, `
		INSERT INTO library_notes (id, clip_id, pitch, start_beat, duration_beats, velocity)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtNote.Close()

	for _, n := range c.Notes {
		if _, err := stmtNote.ExecContext(ctx, n.ID, c.ID, n.Pitch, n.StartBeat, n.DurationBeats, n.Velocity); err != nil {
			return fmt.Errorf("failed to save library note %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// ListLibraryClips returns catalog clips with their notes, optionally
// filtered by exact category and by a case-insensitive name/tag substring.
func (a *Adapter) ListLibraryClips(ctx context.Context, category, search string) ([]domain.LibraryClip, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, category, clip_type, duration_beats, bpm, IFNULL(color, ''), IFNULL(audio_file_id, ''), IFNULL(tags, '')
		FROM library_clips ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list library clips: %w", err)
	}
	defer rows.Close()

	clips := []domain.LibraryClip{}
	for rows.Next() {
		var c domain.LibraryClip
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.ClipType, &c.DurationBeats, &c.BPM, &c.Color, &c.AudioFileID, &c.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan library clip: %w", err)
		}
		if !c.MatchesFilter(category, search) {
			continue
		}
		c.Notes = []domain.Note{}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate library clips: %w", err)
	}

	for i := range clips {
		notes, err := a.loadNotes(ctx, "library_notes", clips[i].ID)
		if err != nil {
			return nil, err
		}
		clips[i].Notes = notes
	}
	return clips, nil
}

// DeleteLibraryClip removes a catalog clip and its notes, reporting whether
// it existed.
func (a *Adapter) DeleteLibraryClip(ctx context.Context, id string) (bool, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM library_clips WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete library clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
