package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/sm2"
)

const reviewColumns = `
	r.id, r.learner_id, r.card_hash, r.repetitions, r.interval_days, r.ease_factor,
	r.due_date, r.last_reviewed_at, r.last_quality,
	c.front, c.back, c.context, c.tags`

// LinkReview starts review tracking for a card: it creates the learner's
// record with the default state, due today. It reports whether a record was
// created; an existing record is left as is.
func (db *DB) LinkReview(ctx context.Context, learnerID, cardHash string, today time.Time) (bool, error) {
	state := sm2.NewState(today.In(db.loc))
	now := db.now()
	res, err := db.exec(ctx, `
		INSERT INTO reviews (id, learner_id, card_hash, repetitions, interval_days, ease_factor, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (learner_id, card_hash) DO NOTHING
	`,
		uuid.NewString(),
		learnerID,
		cardHash,
		state.Repetitions,
		state.Interval,
		state.Ease,
		state.DueDate.Format(sm2.DateLayout),
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link review for card %s: %w", cardHash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to link review for card %s: %w", cardHash, err)
	}
	return n > 0, nil
}

// DueReviews returns the learner's reviews whose due date is on or before
// today, joined with their card content.
func (db *DB) DueReviews(ctx context.Context, learnerID string, today time.Time) ([]domain.Review, error) {
	day := sm2.Date(today.In(db.loc)).Format(sm2.DateLayout)
	rows, err := db.query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r JOIN cards c ON c.hash = r.card_hash
		WHERE r.learner_id = ? AND r.due_date <= ?
		ORDER BY r.due_date, r.card_hash
	`, learnerID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reviews for %s: %w", learnerID, err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		r, err := db.scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due reviews for %s: %w", learnerID, err)
	}
	return reviews, nil
}

// CountDue returns how many of the learner's reviews are due today.
func (db *DB) CountDue(ctx context.Context, learnerID string, today time.Time) (int, error) {
	day := sm2.Date(today.In(db.loc)).Format(sm2.DateLayout)
	var n int
	err := db.queryRow(ctx, `
		SELECT COUNT(*) FROM reviews WHERE learner_id = ? AND due_date <= ?
	`, learnerID, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count due reviews for %s: %w", learnerID, err)
	}
	return n, nil
}

// FindReview returns the learner's record for a card, or ErrNotFound.
func (db *DB) FindReview(ctx context.Context, learnerID, cardHash string) (*domain.Review, error) {
	row := db.queryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r JOIN cards c ON c.hash = r.card_hash
		WHERE r.learner_id = ? AND r.card_hash = ?
	`, learnerID, cardHash)
	r, err := db.scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %s/%s: %w", learnerID, cardHash, ErrNotFound)
	}
	return r, err
}

// SaveReview writes entry.Next as the complete replacement of the learner's
// record and appends entry to the review log, in one transaction.
func (db *DB) SaveReview(ctx context.Context, entry domain.ReviewLog) error {
	if err := entry.Quality.Validate(); err != nil {
		return err
	}
	if err := entry.Next.Validate(); err != nil {
		return err
	}

	next := entry.Next
	due := next.DueDate.Format(sm2.DateLayout)
	var lastReviewed sql.NullTime
	if next.LastReviewedAt != nil {
		lastReviewed = sql.NullTime{Time: *next.LastReviewedAt, Valid: true}
	}
	now := db.now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, db.dialect.Rebind(`
			INSERT INTO reviews (id, learner_id, card_hash, repetitions, interval_days, ease_factor, due_date, last_reviewed_at, last_quality, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (learner_id, card_hash) DO UPDATE SET
				repetitions = excluded.repetitions,
				interval_days = excluded.interval_days,
				ease_factor = excluded.ease_factor,
				due_date = excluded.due_date,
				last_reviewed_at = excluded.last_reviewed_at,
				last_quality = excluded.last_quality,
				updated_at = excluded.updated_at
		`),
			uuid.NewString(),
			entry.LearnerID,
			entry.CardHash,
			next.Repetitions,
			next.Interval,
			next.Ease,
			due,
			lastReviewed,
			int(entry.Quality),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save review for card %s: %w", entry.CardHash, err)
		}

		_, err = tx.ExecContext(ctx, db.dialect.Rebind(`
			INSERT INTO review_log (learner_id, card_hash, quality, prev_repetitions, prev_interval, prev_ease, repetitions, interval_days, ease_factor, due_date, reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`),
			entry.LearnerID,
			entry.CardHash,
			int(entry.Quality),
			entry.Previous.Repetitions,
			entry.Previous.Interval,
			entry.Previous.Ease,
			next.Repetitions,
			next.Interval,
			next.Ease,
			due,
			entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to append review log for card %s: %w", entry.CardHash, err)
		}
		return nil
	})
}

// ReviewHistory returns the learner's rating log for a card, oldest first.
func (db *DB) ReviewHistory(ctx context.Context, learnerID, cardHash string) ([]domain.ReviewLog, error) {
	rows, err := db.query(ctx, `
		SELECT quality, prev_repetitions, prev_interval, prev_ease,
			repetitions, interval_days, ease_factor, due_date, reviewed_at
		FROM review_log
		WHERE learner_id = ? AND card_hash = ?
		ORDER BY id
	`, learnerID, cardHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get review history for card %s: %w", cardHash, err)
	}
	defer rows.Close()

	var history []domain.ReviewLog
	for rows.Next() {
		var (
			e       = domain.ReviewLog{LearnerID: learnerID, CardHash: cardHash}
			quality int
			due     string
		)
		if err := rows.Scan(
			&quality,
			&e.Previous.Repetitions,
			&e.Previous.Interval,
			&e.Previous.Ease,
			&e.Next.Repetitions,
			&e.Next.Interval,
			&e.Next.Ease,
			&due,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for card %s: %w", cardHash, err)
		}
		e.Quality = sm2.Quality(quality)
		if e.Next.DueDate, err = sm2.ParseDate(due, db.loc); err != nil {
			return nil, err
		}
		reviewed := e.Timestamp
		e.Next.LastReviewedAt = &reviewed
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read review history for card %s: %w", cardHash, err)
	}
	return history, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanReview(s scanner) (*domain.Review, error) {
	var (
		r            domain.Review
		due, tags    string
		lastReviewed sql.NullTime
		lastQuality  sql.NullInt64
	)
	err := s.Scan(
		&r.ID,
		&r.LearnerID,
		&r.Card.Hash,
		&r.State.Repetitions,
		&r.State.Interval,
		&r.State.Ease,
		&due,
		&lastReviewed,
		&lastQuality,
		&r.Card.Front,
		&r.Card.Back,
		&r.Card.Context,
		&tags,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan review row: %w", err)
	}

	if r.State.DueDate, err = sm2.ParseDate(due, db.loc); err != nil {
		return nil, fmt.Errorf("review %s: %w", r.ID, err)
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		r.State.LastReviewedAt = &t
	}
	if lastQuality.Valid {
		q := sm2.Quality(lastQuality.Int64)
		r.LastQuality = &q
	}
	r.Card.Tags = splitTags(tags)

	if err := r.State.Validate(); err != nil {
		return nil, fmt.Errorf("review %s for card %s: %w", r.ID, r.Card.Hash, err)
	}
	return &r, nil
}
