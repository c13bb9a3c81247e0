package sm2

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// MinEase is the hard floor for the ease factor.
	MinEase = 1.3
	// InitialEase is the ease of an item that has never been reviewed.
	InitialEase = 2.5
	// InitialInterval is the interval, in days, of a never-reviewed item.
	InitialInterval = 1
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReviewState is the scheduling record for one (learner, item) pair.
type ReviewState struct {
	Repetitions    int        `json:"repetitions" validate:"gte=0"`
	Interval       int        `json:"interval" validate:"gte=1"`
	Ease           float64    `json:"ease" validate:"gte=1.3"`
	DueDate        time.Time  `json:"due_date"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// Default returns the state of a never-reviewed item. DueDate is left zero.
func Default() ReviewState {
	return ReviewState{
		Repetitions: 0,
		Interval:    InitialInterval,
		Ease:        InitialEase,
	}
}

// NewState returns the default state, due on the given day.
func NewState(today time.Time) ReviewState {
	s := Default()
	s.DueDate = Date(today)
	return s
}

// Validate checks the invariants a stored record must hold before it is
// scheduled: repetitions >= 0, interval >= 1 and ease >= MinEase.
func (s ReviewState) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
