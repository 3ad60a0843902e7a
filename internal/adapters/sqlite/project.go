package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// LoadProjectTree materializes a whole project in four ordered reads. A
// missing project row yields domain.ErrNotFound.
func (a *Adapter) LoadProjectTree(ctx context.Context, id string) (domain.Project, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, name, bpm, time_sig_n, time_sig_d, sample_rate, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.BPM, &p.TimeSigN, &p.TimeSigD, &p.SampleRate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, fmt.Errorf("failed to load project: %w", err)
	}
	p.Tracks = []domain.Track{}

	trackRows, err := a.db.QueryContext(ctx, `
		SELECT id, project_id, name, type, IFNULL(color, ''), volume, pan, muted, solo, armed, sort_order
		FROM tracks WHERE project_id = ? ORDER BY sort_order ASC
	`, p.ID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("failed to load tracks: %w", err)
	}
	defer trackRows.Close()

	for trackRows.Next() {
		var t domain.Track
		if err := trackRows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Type, &t.Color, &t.Volume, &t.Pan, &t.Muted, &t.Solo, &t.Armed, &t.SortOrder); err != nil {
			return domain.Project{}, fmt.Errorf("failed to scan track: %w", err)
		}
		t.Clips = []domain.Clip{}
		p.Tracks = append(p.Tracks, t)
	}
	if err := trackRows.Err(); err != nil {
		return domain.Project{}, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	for i := range p.Tracks {
		clips, err := a.loadClips(ctx, p.Tracks[i].ID)
		if err != nil {
			return domain.Project{}, err
		}
		p.Tracks[i].Clips = clips
	}

	return p, nil
}

func (a *Adapter) loadClips(ctx context.Context, trackID string) ([]domain.Clip, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, track_id, name, start_beat, duration_beats, IFNULL(color, ''), IFNULL(audio_url, '')
		FROM clips WHERE track_id = ? ORDER BY start_beat ASC
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clips: %w", err)
	}
	defer rows.Close()

	clips := []domain.Clip{}
	for rows.Next() {
		var c domain.Clip
		if err := rows.Scan(&c.ID, &c.TrackID, &c.Name, &c.StartBeat, &c.DurationBeats, &c.Color, &c.AudioURL); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		c.Notes = []domain.Note{}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clips: %w", err)
	}

	for i := range clips {
		notes, err := a.loadNotes(ctx, "notes", clips[i].ID)
		if err != nil {
			return nil, err
		}
		clips[i].Notes = notes
	}
	return clips, nil
}

func (a *Adapter) loadNotes(ctx context.Context, table, clipID string) ([]domain.Note, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, clip_id, pitch, start_beat, duration_beats, velocity
		FROM %s WHERE clip_id = ? ORDER BY start_beat ASC
	`, table), clipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.ClipID, &n.Pitch, &n.StartBeat, &n.DurationBeats, &n.Velocity); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// SaveProjectTree persists the whole tree with a replace strategy: upsert the
// project row, drop the project's tracks (cascade removes clips and notes),
// then reinsert everything in order. One transaction; any failure rolls the
// store back to the previously persisted tree.
func (a *Adapter) SaveProjectTree(ctx context.Context, p domain.Project) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safety net: auto-rollback if we error/panic before commit

	queryProject := `
		INSERT INTO projects (id, name, bpm, time_sig_n, time_sig_d, sample_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			bpm=excluded.bpm,
			time_sig_n=excluded.time_sig_n,
			time_sig_d=excluded.time_sig_d,
			sample_rate=excluded.sample_rate,
			updated_at=excluded.updated_at;
	`
	if _, err := tx.ExecContext(ctx, queryProject, p.ID, p.Name, p.BPM, p.TimeSigN, p.TimeSigD, p.SampleRate, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save project metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE project_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear old tracks: %w", err)
	}

	stmtTrack, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (id, project_id, name, type, color, volume, pan, muted, solo, armed, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtTrack.Close()

	stmtClip, err := tx.PrepareContext(ctx, `
		INSERT INTO clips (id, track_id, name, start_beat, duration_beats, color, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtClip.Close()

	stmtNote, err := tx.PrepareContext(ctx, `
		INSERT INTO notes (id, clip_id, pitch, start_beat, duration_beats, velocity)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtNote.Close()

	for i, t := range p.Tracks {
		// Sort order is the array position, not whatever the struct carries.
		if _, err := stmtTrack.ExecContext(ctx, t.ID, p.ID, t.Name, string(t.Type), t.Color, t.Volume, t.Pan, t.Muted, t.Solo, t.Armed, i); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
		for _, c := range t.Clips {
			if _, err := stmtClip.ExecContext(ctx, c.ID, t.ID, c.Name, c.StartBeat, c.DurationBeats, nullable(c.Color), nullable(c.AudioURL)); err != nil {
				return fmt.Errorf("failed to save clip %s: %w", c.ID, err)
			}
			for _, n := range c.Notes {
				if _, err := stmtNote.ExecContext(ctx, n.ID, c.ID, n.Pitch, n.StartBeat, n.DurationBeats, n.Velocity); err != nil {
					return fmt.Errorf("failed to save note %s: %w", n.ID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	return nil
}

// ListProjects returns summaries of all stored projects, most recently
// touched first.
func (a *Adapter) ListProjects(ctx context.Context) ([]ports.ProjectSummary, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT id, name, bpm FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	summaries := []ports.ProjectSummary{}
	for rows.Next() {
		var s ports.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.BPM); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteProject removes a project and, via cascade, all of its tracks, clips
// and notes. It reports whether the project existed.
func (a *Adapter) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// nullable maps the empty string to NULL so optional columns stay NULL in
// storage instead of collapsing to ''.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
