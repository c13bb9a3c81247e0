package web

import (
	"time"

	"github.com/conorfennell/recall/internal/session"
	"github.com/conorfennell/recall/internal/sm2"
	"github.com/conorfennell/recall/internal/storage"
	srcsync "github.com/conorfennell/recall/internal/sync"
)

type deckView struct {
	Learner  string `json:"learner"`
	DueCount int    `json:"due_count"`
}

type sessionView struct {
	ID        string        `json:"id"`
	State     session.State `json:"state"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Progress  float64       `json:"progress"`
	Stats     session.Stats `json:"stats"`
	Current   *cardView     `json:"current,omitempty"`
}

// cardView is the presented card. Preview maps each rating to the interval
// in days it would schedule.
type cardView struct {
	Hash    string              `json:"hash"`
	Front   string              `json:"front"`
	Back    string              `json:"back"`
	Context string              `json:"context,omitempty"`
	Tags    []string            `json:"tags,omitempty"`
	Due     string              `json:"due"`
	Preview map[sm2.Quality]int `json:"preview"`
}

type ratedView struct {
	Quality sm2.Quality     `json:"quality"`
	Next    sm2.ReviewState `json:"next"`
	Due     string          `json:"due"`
}

type ratingView struct {
	Rated   ratedView   `json:"rated"`
	Session sessionView `json:"session"`
}

type sourceView struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func newSourceView(src storage.Source) sourceView {
	v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type}
	if src.LastScanned.Valid {
		t := src.LastScanned.Time
		v.LastScanned = &t
	}
	return v
}

type reportView struct {
	SourceID int64    `json:"source_id"`
	Path     string   `json:"path"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Linked   int      `json:"linked"`
	Detached int      `json:"detached"`
	Orphaned int      `json:"orphaned"`
	Errors   []string `json:"errors,omitempty"`
}

func newReportView(r srcsync.Report) reportView {
	v := reportView{
		SourceID: r.SourceID,
		Path:     r.Path,
		Parsed:   r.Parsed,
		Inserted: r.Inserted,
		Linked:   r.Linked,
		Detached: r.Detached,
		Orphaned: r.Orphaned,
	}
	for _, err := range r.Errors {
		v.Errors = append(v.Errors, err.Error())
	}
	return v
}

type syncView struct {
	Reports []reportView `json:"reports"`
	Error   string       `json:"error,omitempty"`
}
