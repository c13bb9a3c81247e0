package domain

import (
	"time"

	"github.com/conorfennell/recall/internal/sm2"
)

// Card represents a single front/back study item discovered in a source.
type Card struct {
	Front   string
	Back    string
	Context string
	Tags    []string
	Hash    string
}

// Review is a learner's scheduling record for one card, joined with the
// card content a session driver needs to present it.
type Review struct {
	ID          string
	LearnerID   string
	Card        Card
	State       sm2.ReviewState
	LastQuality *sm2.Quality
}

// ReviewLog records a single rating applied to a card. It carries the
// complete next state, which replaces the stored record, and the state it
// replaced.
type ReviewLog struct {
	LearnerID string
	CardHash  string
	Quality   sm2.Quality
	Previous  sm2.ReviewState
	Next      sm2.ReviewState
	Timestamp time.Time
}
