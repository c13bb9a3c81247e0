package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	var id int64
	err := db.queryRow(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
		RETURNING id
	`, path, sourceType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. It returns nil, nil when
// no such source exists.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	err := db.queryRow(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path).Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.query(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.exec(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, db.now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source. Cards that appear in no other source are
// deleted together with their review records. The review log is kept.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.dialect.Rebind(`DELETE FROM card_sources WHERE source_id = ?`), sourceID); err != nil {
			return fmt.Errorf("failed to detach cards from source ID %d: %w", sourceID, err)
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM reviews
			WHERE card_hash NOT IN (SELECT card_hash FROM card_sources)
		`)
		if err != nil {
			return fmt.Errorf("failed to delete reviews for source ID %d: %w", sourceID, err)
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM cards
			WHERE hash NOT IN (SELECT card_hash FROM card_sources)
		`)
		if err != nil {
			return fmt.Errorf("failed to delete cards for source ID %d: %w", sourceID, err)
		}
		res, err := tx.ExecContext(ctx, db.dialect.Rebind(`DELETE FROM sources WHERE id = ?`), sourceID)
		if err != nil {
			return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("source ID %d: %w", sourceID, ErrNotFound)
		}
		return nil
	})
}
