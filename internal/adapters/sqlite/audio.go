package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scoady/backbeat/internal/core/domain"
)

// SaveAudioFile stores an opaque binary asset. Upsert by id.
func (a *Adapter) SaveAudioFile(ctx context.Context, f domain.AudioFile) error {
	query := `
		INSERT INTO audio_files (id, filename, mime_type, size_bytes, duration_secs, sample_rate, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename=excluded.filename,
			mime_type=excluded.mime_type,
			size_bytes=excluded.size_bytes,
			duration_secs=excluded.duration_secs,
			sample_rate=excluded.sample_rate,
			data=excluded.data;
	`
	var duration, rate any
	if f.DurationSecs > 0 {
		duration = f.DurationSecs
	}
	if f.SampleRate > 0 {
		rate = f.SampleRate
	}
	if _, err := a.db.ExecContext(ctx, query, f.ID, f.Filename, f.MimeType, f.SizeBytes, duration, rate, f.Data, f.CreatedAt); err != nil {
		return fmt.Errorf("failed to save audio file: %w", err)
	}
	return nil
}

// LoadAudioFile fetches an asset including its payload.
func (a *Adapter) LoadAudioFile(ctx context.Context, id string) (domain.AudioFile, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, filename, mime_type, size_bytes, IFNULL(duration_secs, 0), IFNULL(sample_rate, 0), data, created_at
		FROM audio_files WHERE id = ?
	`, id)

	var f domain.AudioFile
	if err := row.Scan(&f.ID, &f.Filename, &f.MimeType, &f.SizeBytes, &f.DurationSecs, &f.SampleRate, &f.Data, &f.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.AudioFile{}, domain.ErrNotFound
		}
		return domain.AudioFile{}, fmt.Errorf("failed to load audio file: %w", err)
	}
	return f, nil
}

// ListAudioFiles returns asset metadata without payloads.
func (a *Adapter) ListAudioFiles(ctx context.Context) ([]domain.AudioFile, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, filename, mime_type, size_bytes, IFNULL(duration_secs, 0), IFNULL(sample_rate, 0), created_at
		FROM audio_files ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio files: %w", err)
	}
	defer rows.Close()

	files := []domain.AudioFile{}
	for rows.Next() {
		var f domain.AudioFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.MimeType, &f.SizeBytes, &f.DurationSecs, &f.SampleRate, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audio file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateAudioInfo fills in probed duration and sample rate for an asset.
func (a *Adapter) UpdateAudioInfo(ctx context.Context, id string, durationSecs float64, sampleRate int) error {
	if _, err := a.db.ExecContext(ctx,
		"UPDATE audio_files SET duration_secs = ?, sample_rate = ? WHERE id = ?",
		durationSecs, sampleRate, id,
	); err != nil {
		return fmt.Errorf("failed to update audio info: %w", err)
	}
	return nil
}
