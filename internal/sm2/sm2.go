// Package sm2 implements the SM-2 spaced repetition schedule: the per-item
// review state, the next-state computation for a rating, and due-set
// selection at calendar-date granularity.
//
// Everything in this package is a pure function of its inputs and is safe
// for concurrent use.
package sm2

import (
	"fmt"
	"math"
	"time"
)

// Review is a single rating applied at a point in time.
type Review struct {
	Quality    Quality   `json:"quality"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Next computes the state that follows prev after a review rated q at now.
//
// q must be valid; callers reject anything else with Quality.Validate first.
// prev.DueDate does not participate. The returned record is a complete
// replacement for prev.
func Next(q Quality, prev ReviewState, now time.Time) ReviewState {
	next := ReviewState{
		Repetitions: prev.Repetitions,
		Interval:    prev.Interval,
	}

	if q < Hard {
		next.Repetitions = 0
		next.Interval = 1
	} else {
		next.Repetitions = prev.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(prev.Interval) * prev.Ease))
		}
	}

	next.Ease = nextEase(q, prev.Ease)
	next.DueDate = AddDays(now, next.Interval)
	reviewed := now
	next.LastReviewedAt = &reviewed
	return next
}

// nextEase applies the ease delta for q, floors it at MinEase and keeps two
// decimals, which is the precision the store persists.
func nextEase(q Quality, ease float64) float64 {
	d := float64(5 - q)
	e := ease + (0.1 - d*(0.08+d*0.02))
	if e < MinEase {
		e = MinEase
	}
	return math.Round(e*100) / 100
}

// Preview returns the state each rating would produce, keyed by rating.
func Preview(prev ReviewState, now time.Time) map[Quality]ReviewState {
	out := make(map[Quality]ReviewState, len(Qualities))
	for _, q := range Qualities {
		out[q] = Next(q, prev, now)
	}
	return out
}

// Replay rebuilds a state by applying reviews in order, starting from initial.
// It stops at the first invalid rating.
func Replay(initial ReviewState, reviews []Review) (ReviewState, error) {
	s := initial
	for i, r := range reviews {
		if err := r.Quality.Validate(); err != nil {
			return ReviewState{}, fmt.Errorf("review %d: %w", i, err)
		}
		s = Next(r.Quality, s, r.ReviewedAt)
	}
	return s, nil
}
