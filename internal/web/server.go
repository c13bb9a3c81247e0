// Package web serves the review API over HTTP. Review sessions live in memory
// and are driven one rating at a time. Finished and abandoned sessions are
// dropped when a new session starts.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conorfennell/recall/internal/session"
	"github.com/conorfennell/recall/internal/sm2"
	"github.com/conorfennell/recall/internal/storage"
	srcsync "github.com/conorfennell/recall/internal/sync"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db      *storage.DB
	syncer  *srcsync.Syncer
	learner string
	now     func() time.Time
	router  *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*liveSession
}

const (
	// finishedSessionTTL is how long an Empty or Complete session stays
	// readable after its last request.
	finishedSessionTTL = 10 * time.Minute
	// idleSessionTTL bounds how long an abandoned session is kept.
	idleSessionTTL = 24 * time.Hour

	maxBodyBytes = 1 << 20
)

// liveSession serializes requests against one session.
type liveSession struct {
	mu       sync.Mutex
	s        *session.Session
	lastUsed time.Time
}

// expired reports whether the session can be dropped at now. The caller
// holds l.mu.
func (l *liveSession) expired(now time.Time) bool {
	idle := now.Sub(l.lastUsed)
	switch l.s.State() {
	case session.Empty, session.Complete:
		return idle > finishedSessionTTL
	default:
		return idle > idleSessionTTL
	}
}

// NewServer creates and configures a new server for one learner. now
// supplies the current time in the learner's location; nil means time.Now.
func NewServer(db *storage.DB, syncer *srcsync.Syncer, learner string, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		db:       db,
		syncer:   syncer,
		learner:  learner,
		now:      now,
		router:   http.NewServeMux(),
		sessions: make(map[string]*liveSession),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealthz())
	s.router.HandleFunc("GET /deck", s.handleGetDeck())

	s.router.HandleFunc("POST /sessions", s.handleStartSession())
	s.router.HandleFunc("GET /sessions/{id}", s.handleGetSession())
	s.router.HandleFunc("POST /sessions/{id}/ratings", s.handlePostRating())

	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

func (s *Server) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleGetDeck reports how many cards are due for the learner today.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.db.CountDue(r.Context(), s.learner, s.now())
		if err != nil {
			slog.Error("Error counting due cards", "learner", s.learner, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to count due cards")
			return
		}
		writeJSON(w, http.StatusOK, deckView{Learner: s.learner, DueCount: n})
	}
}

// handleStartSession loads the learner's due set into a new session.
func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.Start(r.Context(), s.db, s.learner, s.now)
		if err != nil {
			slog.Error("Error starting session", "learner", s.learner, "error", err)
			writeError(w, http.StatusServiceUnavailable, "failed to load due cards")
			return
		}
		live := &liveSession{s: sess, lastUsed: s.now()}
		s.mu.Lock()
		s.prune(live.lastUsed)
		s.sessions[sess.ID] = live
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, s.snapshot(sess))
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, ok := s.lookup(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		live.mu.Lock()
		defer live.mu.Unlock()
		live.lastUsed = s.now()
		writeJSON(w, http.StatusOK, s.snapshot(live.s))
	}
}

type ratingRequest struct {
	Quality sm2.Quality `json:"quality"`
}

// handlePostRating rates the session's current card and returns the new
// snapshot along with the state that was saved.
func (s *Server) handlePostRating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, ok := s.lookup(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		var req ratingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := req.Quality.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		live.mu.Lock()
		defer live.mu.Unlock()
		live.lastUsed = s.now()

		next, err := live.s.Rate(r.Context(), req.Quality)
		switch {
		case err == nil:
		case errors.Is(err, sm2.ErrInvalidQuality):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, session.ErrFinished):
			writeError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, session.ErrStore):
			writeError(w, http.StatusServiceUnavailable, "failed to save review, retry the rating")
			return
		default:
			slog.Error("Error rating card", "session", live.s.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to rate card")
			return
		}

		writeJSON(w, http.StatusOK, ratingView{
			Rated:   ratedView{Quality: req.Quality, Next: next, Due: sm2.DescribeDue(next.DueDate, s.now())},
			Session: s.snapshot(live.s),
		})
	}
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeSources(w, r, http.StatusOK)
	}
}

type sourceRequest struct {
	Path string `json:"path"`
}

// handlePostSource adds a new source and returns the source list.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Path == "" {
			writeError(w, http.StatusBadRequest, "path cannot be empty")
			return
		}
		if _, err := srcsync.AddSource(r.Context(), s.db, req.Path); err != nil {
			slog.Error("Error inserting new source", "path", req.Path, "error", err)
			writeError(w, http.StatusBadRequest, "failed to add source: "+err.Error())
			return
		}
		s.writeSources(w, r, http.StatusCreated)
	}
}

// handleDeleteSource deletes a source with its cards and review records.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "source not found")
				return
			}
			slog.Error("Error deleting source", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete source")
			return
		}
		s.writeSources(w, r, http.StatusOK)
	}
}

// handlePostSync runs a sync in the foreground and reports per source.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := s.syncer.Run(r.Context())
		view := syncView{Reports: make([]reportView, 0, len(reports))}
		for _, rep := range reports {
			view.Reports = append(view.Reports, newReportView(rep))
		}
		if err != nil {
			slog.Warn("Sync finished with errors", "error", err)
			view.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) writeSources(w http.ResponseWriter, r *http.Request, status int) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		slog.Error("Error getting sources", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, newSourceView(src))
	}
	writeJSON(w, status, views)
}

// prune drops expired sessions. Sessions busy with a request are skipped.
// The caller holds s.mu.
func (s *Server) prune(now time.Time) {
	for id, live := range s.sessions {
		if !live.mu.TryLock() {
			continue
		}
		expired := live.expired(now)
		live.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			slog.Debug("Session evicted", "session", id)
		}
	}
}

func (s *Server) lookup(id string) (*liveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[id]
	return live, ok
}

func (s *Server) snapshot(sess *session.Session) sessionView {
	view := sessionView{
		ID:        sess.ID,
		State:     sess.State(),
		Total:     sess.Total(),
		Completed: sess.Completed(),
		Progress:  sess.Progress(),
		Stats:     sess.Stats(),
	}
	if cur, ok := sess.Current(); ok {
		now := s.now()
		preview := make(map[sm2.Quality]int, len(sm2.Qualities))
		for q, next := range sm2.Preview(cur.State, now) {
			preview[q] = next.Interval
		}
		view.Current = &cardView{
			Hash:    cur.Card.Hash,
			Front:   cur.Card.Front,
			Back:    cur.Card.Back,
			Context: cur.Card.Context,
			Tags:    cur.Card.Tags,
			Due:     sm2.DescribeDue(cur.State.DueDate, now),
			Preview: preview,
		}
	}
	return view
}

// decodeJSON reads a size-limited JSON body into v. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
