// Package session drives a single review pass over a learner's due set.
//
// A session moves Loading -> Empty when nothing is due, or
// Loading -> InProgress -> Complete once every due card has been rated
// exactly once. Each rating is persisted before the session advances, so an
// abandoned session leaves rated cards saved and unrated cards untouched.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/sm2"
)

var (
	// ErrFinished is returned when rating a session that is Empty or Complete.
	ErrFinished = errors.New("session: no card left to rate")
	// ErrNotLoaded is returned when rating before the due set has been loaded.
	ErrNotLoaded = errors.New("session: due set not loaded")
	// ErrStore wraps review store failures. They are retryable: the session
	// does not advance, so retrying re-presents the same card.
	ErrStore = errors.New("session: review store failure")
)

// Store is the review-record collaborator a session reads from and writes to.
type Store interface {
	// DueReviews returns the learner's reviews due on or before today.
	DueReviews(ctx context.Context, learnerID string, today time.Time) ([]domain.Review, error)
	// SaveReview replaces the stored state with entry.Next and records entry.
	SaveReview(ctx context.Context, entry domain.ReviewLog) error
}

// State is the lifecycle stage of a session.
type State int

const (
	Loading State = iota
	Empty
	InProgress
	Complete
)

var stateNames = [...]string{Loading: "loading", Empty: "empty", InProgress: "in_progress", Complete: "complete"}

func (s State) String() string {
	if s >= Loading && s <= Complete {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is one pass over a due set. It is not safe for concurrent use.
type Session struct {
	ID        string
	LearnerID string
	StartedAt time.Time

	store Store
	now   func() time.Time
	log   *slog.Logger

	state State
	cards []domain.Review
	index int
	stats Stats
}

// New returns a session in the Loading state. now supplies the current time
// in the learner's location; nil means time.Now.
func New(store Store, learnerID string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		store:     store,
		now:       now,
		log:       slog.Default().With("learner", learnerID),
		state:     Loading,
	}
}

// Start creates a session and loads its due set.
func Start(ctx context.Context, store Store, learnerID string, now func() time.Time) (*Session, error) {
	s := New(store, learnerID, now)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load fetches the due set. A failed load leaves the session in Loading so
// it can be retried. Loading an already loaded session is a no-op.
func (s *Session) Load(ctx context.Context) error {
	if s.state != Loading {
		return nil
	}
	now := s.now()
	due, err := s.store.DueReviews(ctx, s.LearnerID, now)
	if err != nil {
		return fmt.Errorf("%w: load due set: %w", ErrStore, err)
	}
	s.cards = slices.Clone(due)
	s.StartedAt = now
	if len(due) == 0 {
		s.state = Empty
	} else {
		s.state = InProgress
	}
	s.log.Info("review session started", "session", s.ID, "due", len(due), "state", s.state)
	return nil
}

// State returns the current lifecycle stage.
func (s *Session) State() State { return s.state }

// Current returns the card being presented. ok is false unless InProgress.
func (s *Session) Current() (review domain.Review, ok bool) {
	if s.state != InProgress {
		return domain.Review{}, false
	}
	return s.cards[s.index], true
}

// Rate applies q to the current card, persists the full replacement state
// and advances. On a store failure nothing advances and the error wraps
// ErrStore.
func (s *Session) Rate(ctx context.Context, q sm2.Quality) (sm2.ReviewState, error) {
	if err := q.Validate(); err != nil {
		return sm2.ReviewState{}, err
	}
	switch s.state {
	case Loading:
		return sm2.ReviewState{}, ErrNotLoaded
	case Empty, Complete:
		return sm2.ReviewState{}, ErrFinished
	}

	cur := s.cards[s.index]
	now := s.now()
	next := sm2.Next(q, cur.State, now)
	entry := domain.ReviewLog{
		LearnerID: s.LearnerID,
		CardHash:  cur.Card.Hash,
		Quality:   q,
		Previous:  cur.State,
		Next:      next,
		Timestamp: now,
	}
	if err := s.store.SaveReview(ctx, entry); err != nil {
		s.log.Warn("failed to save review", "session", s.ID, "card", cur.Card.Hash, "error", err)
		return sm2.ReviewState{}, fmt.Errorf("%w: save %s: %w", ErrStore, cur.Card.Hash, err)
	}

	s.cards[s.index].State = next
	s.cards[s.index].LastQuality = &q
	s.stats.add(q)
	s.index++
	if s.index >= len(s.cards) {
		s.state = Complete
		s.log.Info("review session complete", "session", s.ID,
			"again", s.stats.Again, "hard", s.stats.Hard, "good", s.stats.Good, "easy", s.stats.Easy)
	}
	return next, nil
}

// Stats returns the running tally of ratings.
func (s *Session) Stats() Stats { return s.stats }

// Total is the size of the due set selected at load.
func (s *Session) Total() int { return len(s.cards) }

// Completed is the number of cards rated so far.
func (s *Session) Completed() int { return s.index }

// Progress is the completed share of the due set as a percentage.
// An empty session reports 0.
func (s *Session) Progress() float64 {
	if len(s.cards) == 0 {
		return 0
	}
	return float64(s.index) / float64(len(s.cards)) * 100
}
