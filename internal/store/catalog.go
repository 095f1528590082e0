package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoBackup is returned when the catalog has no backup for a playlist.
var ErrNoBackup = errors.New("no backup recorded")

const catalogSchema = `
CREATE TABLE IF NOT EXISTS backups (
	id            TEXT PRIMARY KEY,
	playlist_id   TEXT NOT NULL,
	playlist_name TEXT NOT NULL,
	path          TEXT NOT NULL,
	tracks        INTEGER NOT NULL,
	version       TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS backups_by_name ON backups (playlist_name, created_at);
`

// BackupEntry describes one backup file written to disk.
type BackupEntry struct {
	ID           string
	PlaylistID   string
	PlaylistName string
	Path         string
	Tracks       int
	Version      string
	CreatedAt    time.Time
}

// Catalog indexes playlist backups in a SQLite database.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (and creates if needed) the catalog database at path.
// ":memory:" gives a throwaway catalog.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// SQLite serializes writers anyway, and every in-memory connection would
	// otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores entry with a fresh id and returns it. A zero CreatedAt is
// set to the current time.
func (c *Catalog) Record(ctx context.Context, entry BackupEntry) (BackupEntry, error) {
	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO backups (id, playlist_id, playlist_name, path, tracks, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.PlaylistID, entry.PlaylistName, entry.Path, entry.Tracks, entry.Version, entry.CreatedAt,
	)
	if err != nil {
		return BackupEntry{}, fmt.Errorf("failed to record backup: %w", err)
	}

	return entry, nil
}

// List returns every backup, newest first.
func (c *Catalog) List(ctx context.Context) ([]BackupEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, playlist_id, playlist_name, path, tracks, version, created_at
		FROM backups
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var entries []BackupEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	return entries, nil
}

// Latest returns the most recent backup of the named playlist.
func (c *Catalog) Latest(ctx context.Context, playlistName string) (BackupEntry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, playlist_id, playlist_name, path, tracks, version, created_at
		FROM backups
		WHERE playlist_name = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, playlistName)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BackupEntry{}, fmt.Errorf("%w for playlist %q", ErrNoBackup, playlistName)
	}
	return entry, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (BackupEntry, error) {
	var entry BackupEntry
	err := s.Scan(
		&entry.ID,
		&entry.PlaylistID,
		&entry.PlaylistName,
		&entry.Path,
		&entry.Tracks,
		&entry.Version,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BackupEntry{}, err
	}
	if err != nil {
		return BackupEntry{}, fmt.Errorf("failed to scan backup: %w", err)
	}
	return entry, nil
}
