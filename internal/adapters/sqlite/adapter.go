// Package sqlite provides the SQLite-backed implementation of the repository
// and audio store ports.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Adapter implements ports.ProjectRepository, ports.LibraryRepository and
// ports.AudioStore on a single SQLite database.
type Adapter struct {
	db *sql.DB
}

// NewAdapter opens the database and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	// Cascades depend on foreign_keys, which sqlite defaults to off and which
	// is per-connection state, so it has to live in the DSN.
	dsn := storagePath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// sqlite is single-writer; one pooled connection also keeps :memory:
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bpm INTEGER NOT NULL,
		time_sig_n INTEGER NOT NULL,
		time_sig_d INTEGER NOT NULL,
		sample_rate INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		color TEXT,
		volume REAL NOT NULL,
		pan REAL NOT NULL,
		muted BOOLEAN NOT NULL DEFAULT 0,
		solo BOOLEAN NOT NULL DEFAULT 0,
		armed BOOLEAN NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL,
		FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_tracks_project ON tracks(project_id);

	CREATE TABLE IF NOT EXISTS clips (
		id TEXT PRIMARY KEY,
		track_id TEXT NOT NULL,
		name TEXT NOT NULL,
		start_beat REAL NOT NULL,
		duration_beats REAL NOT NULL,
		color TEXT,
		audio_url TEXT,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_clips_track ON clips(track_id);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		clip_id TEXT NOT NULL,
		pitch INTEGER NOT NULL,
		start_beat REAL NOT NULL,
		duration_beats REAL NOT NULL,
		velocity INTEGER NOT NULL,
		FOREIGN KEY(clip_id) REFERENCES clips(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_notes_clip ON notes(clip_id);

	CREATE TABLE IF NOT EXISTS audio_files (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		duration_secs REAL,
		sample_rate INTEGER,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS library_clips (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		clip_type TEXT NOT NULL,
		duration_beats REAL NOT NULL,
		bpm INTEGER NOT NULL,
		color TEXT,
		audio_file_id TEXT,
		tags TEXT,
		FOREIGN KEY(audio_file_id) REFERENCES audio_files(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_library_clips_category ON library_clips(category);

	CREATE TABLE IF NOT EXISTS library_notes (
		id TEXT PRIMARY KEY,
		clip_id TEXT NOT NULL,
		pitch INTEGER NOT NULL,
		start_beat REAL NOT NULL,
		duration_beats REAL NOT NULL,
		velocity INTEGER NOT NULL,
		FOREIGN KEY(clip_id) REFERENCES library_clips(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_library_notes_clip ON library_notes(clip_id);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	if _, err := a.db.Exec("ALTER TABLE audio_files ADD COLUMN sample_rate INTEGER"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
