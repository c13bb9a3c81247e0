package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/sm2"
)

var fixedNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeStore struct {
	due      []domain.Review
	loadErr  error
	saveErrs []error
	saved    []domain.ReviewLog
}

func (f *fakeStore) DueReviews(ctx context.Context, learnerID string, today time.Time) ([]domain.Review, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.due, nil
}

func (f *fakeStore) SaveReview(ctx context.Context, entry domain.ReviewLog) error {
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	f.saved = append(f.saved, entry)
	return nil
}

func dueCards(n int) []domain.Review {
	reviews := make([]domain.Review, n)
	for i := range reviews {
		reviews[i] = domain.Review{
			LearnerID: "learner",
			Card:      domain.Card{Front: "Q", Hash: string(rune('a' + i))},
			State:     sm2.NewState(fixedNow),
		}
	}
	return reviews
}

func TestStartEmpty(t *testing.T) {
	s, err := Start(context.Background(), &fakeStore{}, "learner", clock)
	if err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}
	if s.State() != Empty {
		t.Fatalf("Expected state %s, but got %s", Empty, s.State())
	}
	if _, ok := s.Current(); ok {
		t.Error("Expected no current card in an empty session")
	}
	if _, err := s.Rate(context.Background(), sm2.Good); !errors.Is(err, ErrFinished) {
		t.Errorf("Expected ErrFinished, but got %v", err)
	}
	if s.Progress() != 0 {
		t.Errorf("Expected 0%% progress, but got %.1f", s.Progress())
	}
}

func TestSessionCompletes(t *testing.T) {
	store := &fakeStore{due: dueCards(4)}
	s, err := Start(context.Background(), store, "learner", clock)
	if err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}
	if s.State() != InProgress {
		t.Fatalf("Expected state %s, but got %s", InProgress, s.State())
	}

	ratings := []sm2.Quality{sm2.Again, sm2.Good, sm2.Good, sm2.Easy}
	wantProgress := []float64{25, 50, 75, 100}
	for i, q := range ratings {
		cur, ok := s.Current()
		if !ok {
			t.Fatalf("Expected a current card at step %d", i)
		}
		if cur.Card.Hash != store.due[i].Card.Hash {
			t.Errorf("Expected card %s at step %d, but got %s", store.due[i].Card.Hash, i, cur.Card.Hash)
		}
		if _, err := s.Rate(context.Background(), q); err != nil {
			t.Fatalf("Rate() returned an unexpected error: %v", err)
		}
		if s.Progress() != wantProgress[i] {
			t.Errorf("Expected progress %.0f, but got %.1f", wantProgress[i], s.Progress())
		}
	}

	if s.State() != Complete {
		t.Fatalf("Expected state %s, but got %s", Complete, s.State())
	}
	if s.Completed() != 4 || s.Total() != 4 {
		t.Errorf("Expected 4/4 completed, but got %d/%d", s.Completed(), s.Total())
	}
	stats := s.Stats()
	if stats.Total() != 4 {
		t.Errorf("Expected stat counters to sum to 4, but got %d", stats.Total())
	}
	if stats.Again != 1 || stats.Hard != 0 || stats.Good != 2 || stats.Easy != 1 {
		t.Errorf("Unexpected tally %+v", stats)
	}
	if len(store.saved) != 4 {
		t.Fatalf("Expected 4 saved reviews, but got %d", len(store.saved))
	}
	if _, err := s.Rate(context.Background(), sm2.Good); !errors.Is(err, ErrFinished) {
		t.Errorf("Expected ErrFinished after completion, but got %v", err)
	}
}

func TestRateSavesFullReplacement(t *testing.T) {
	store := &fakeStore{due: []domain.Review{{
		LearnerID: "learner",
		Card:      domain.Card{Hash: "h1"},
		State:     sm2.ReviewState{Repetitions: 5, Interval: 20, Ease: 2.1, DueDate: sm2.Date(fixedNow)},
	}}}
	s, err := Start(context.Background(), store, "learner", clock)
	if err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}

	next, err := s.Rate(context.Background(), sm2.Again)
	if err != nil {
		t.Fatalf("Rate() returned an unexpected error: %v", err)
	}
	entry := store.saved[0]
	if entry.CardHash != "h1" || entry.Quality != sm2.Again || entry.LearnerID != "learner" {
		t.Errorf("Unexpected log entry %+v", entry)
	}
	if entry.Previous.Interval != 20 {
		t.Errorf("Expected previous interval 20, but got %d", entry.Previous.Interval)
	}
	if next.Repetitions != 0 || next.Interval != 1 || next.Ease != 1.56 {
		t.Errorf("Expected {0, 1, 1.56}, but got {%d, %d, %v}", next.Repetitions, next.Interval, next.Ease)
	}
	if want := sm2.AddDays(fixedNow, 1); !entry.Next.DueDate.Equal(want) {
		t.Errorf("Expected due date %v, but got %v", want, entry.Next.DueDate)
	}
}

func TestRateStoreFailureDoesNotAdvance(t *testing.T) {
	ioErr := errors.New("connection reset")
	store := &fakeStore{due: dueCards(2), saveErrs: []error{ioErr}}
	s, err := Start(context.Background(), store, "learner", clock)
	if err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}

	_, err = s.Rate(context.Background(), sm2.Good)
	if !errors.Is(err, ErrStore) || !errors.Is(err, ioErr) {
		t.Fatalf("Expected error wrapping ErrStore and the I/O error, but got %v", err)
	}
	if s.Completed() != 0 || s.Stats().Total() != 0 {
		t.Errorf("Expected nothing to advance, but got completed=%d stats=%+v", s.Completed(), s.Stats())
	}
	cur, _ := s.Current()
	if cur.Card.Hash != "a" {
		t.Errorf("Expected the same card to be re-presented, but got %s", cur.Card.Hash)
	}

	if _, err := s.Rate(context.Background(), sm2.Good); err != nil {
		t.Fatalf("Retry returned an unexpected error: %v", err)
	}
	if s.Completed() != 1 || s.Stats().Good != 1 {
		t.Errorf("Expected one completed Good rating after retry, but got completed=%d stats=%+v", s.Completed(), s.Stats())
	}
}

func TestRateRejectsInvalidQuality(t *testing.T) {
	store := &fakeStore{due: dueCards(1)}
	s, err := Start(context.Background(), store, "learner", clock)
	if err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}
	for _, q := range []sm2.Quality{0, 2, 6} {
		if _, err := s.Rate(context.Background(), q); !errors.Is(err, sm2.ErrInvalidQuality) {
			t.Errorf("Expected ErrInvalidQuality for %d, but got %v", int(q), err)
		}
	}
	if len(store.saved) != 0 || s.Completed() != 0 {
		t.Error("Expected invalid ratings to leave the session untouched")
	}
}

func TestLoadFailure(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("timeout")}
	s := New(store, "learner", clock)
	if err := s.Load(context.Background()); !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore, but got %v", err)
	}
	if s.State() != Loading {
		t.Errorf("Expected state to stay %s, but got %s", Loading, s.State())
	}
	if _, err := s.Rate(context.Background(), sm2.Good); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, but got %v", err)
	}

	store.loadErr = nil
	store.due = dueCards(1)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() retry returned an unexpected error: %v", err)
	}
	if s.State() != InProgress {
		t.Errorf("Expected state %s after retry, but got %s", InProgress, s.State())
	}
}
