package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// InsertCard stores a newly discovered card and records that it appears in
// the given source. A card that already exists keeps its content.
func (db *DB) InsertCard(ctx context.Context, card domain.Card, sourceID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, db.dialect.Rebind(`
			INSERT INTO cards (hash, front, back, context, tags)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (hash) DO NOTHING
		`),
			card.Hash,
			card.Front,
			card.Back,
			card.Context,
			joinTags(card.Tags),
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
		}
		return db.attach(ctx, tx, card.Hash, sourceID)
	})
}

// AttachCard records that an existing card also appears in sourceID.
func (db *DB) AttachCard(ctx context.Context, hash string, sourceID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return db.attach(ctx, tx, hash, sourceID)
	})
}

func (db *DB) attach(ctx context.Context, tx *sql.Tx, hash string, sourceID int64) error {
	_, err := tx.ExecContext(ctx, db.dialect.Rebind(`
		INSERT INTO card_sources (card_hash, source_id)
		VALUES (?, ?)
		ON CONFLICT (card_hash, source_id) DO NOTHING
	`), hash, sourceID)
	if err != nil {
		return fmt.Errorf("failed to attach card %s to source ID %d: %w", hash, sourceID, err)
	}
	return nil
}

// DetachCard records that a card no longer appears in sourceID. The card
// and its review records are deleted only once no source contains it; the
// result reports whether that happened.
func (db *DB) DetachCard(ctx context.Context, hash string, sourceID int64) (bool, error) {
	var deleted bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, db.dialect.Rebind(`
			DELETE FROM card_sources WHERE card_hash = ? AND source_id = ?
		`), hash, sourceID)
		if err != nil {
			return fmt.Errorf("failed to detach card %s from source ID %d: %w", hash, sourceID, err)
		}
		var remaining int
		err = tx.QueryRowContext(ctx, db.dialect.Rebind(`
			SELECT COUNT(*) FROM card_sources WHERE card_hash = ?
		`), hash).Scan(&remaining)
		if err != nil {
			return fmt.Errorf("failed to count sources for card %s: %w", hash, err)
		}
		if remaining > 0 {
			return nil
		}
		deleted = true
		return db.deleteCard(ctx, tx, hash)
	})
	return deleted, err
}

// FindCardByHash retrieves a card by its hash. It returns nil, nil when the
// card does not exist.
func (db *DB) FindCardByHash(ctx context.Context, hash string) (*domain.Card, error) {
	var (
		c    domain.Card
		tags string
	)
	err := db.queryRow(ctx, `
		SELECT hash, front, back, context, tags
		FROM cards WHERE hash = ?
	`, hash).Scan(&c.Hash, &c.Front, &c.Back, &c.Context, &tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	c.Tags = splitTags(tags)
	return &c, nil
}

// GetCardsBySourceID retrieves all cards associated with a specific source ID.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	rows, err := db.query(ctx, `
		SELECT c.hash, c.front, c.back, c.context, c.tags
		FROM cards c JOIN card_sources cs ON cs.card_hash = c.hash
		WHERE cs.source_id = ?
		ORDER BY c.hash
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var (
			c    domain.Card
			tags string
		)
		if err := rows.Scan(&c.Hash, &c.Front, &c.Back, &c.Context, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan card row for source ID %d: %w", sourceID, err)
		}
		c.Tags = splitTags(tags)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards for source ID %d: %w", sourceID, err)
	}
	return cards, nil
}

// DeleteCardByHash removes a card from every source. Its review records go
// with it.
func (db *DB) DeleteCardByHash(ctx context.Context, hash string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return db.deleteCard(ctx, tx, hash)
	})
}

func (db *DB) deleteCard(ctx context.Context, tx *sql.Tx, hash string) error {
	if _, err := tx.ExecContext(ctx, db.dialect.Rebind(`DELETE FROM reviews WHERE card_hash = ?`), hash); err != nil {
		return fmt.Errorf("failed to delete reviews for card %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, db.dialect.Rebind(`DELETE FROM card_sources WHERE card_hash = ?`), hash); err != nil {
		return fmt.Errorf("failed to delete sources for card %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, db.dialect.Rebind(`DELETE FROM cards WHERE hash = ?`), hash); err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
