package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"guestlens/internal/analyzer"
	"guestlens/internal/config"
	"guestlens/internal/model"
	"guestlens/internal/stats"
	"guestlens/internal/store/history"
	"guestlens/internal/store/session"
)

// Server exposes the analysis pipeline to the presentation layer. It owns the
// display-tier truncation; the core always ranks the full top-N.
type Server struct {
	an       *analyzer.Analyzer
	sessions *session.Store // optional
	db       *history.DB    // optional
	cfg      config.Config
	router   *mux.Router
}

func New(an *analyzer.Analyzer, sessions *session.Store, db *history.DB, cfg config.Config) *Server {
	s := &Server{an: an, sessions: sessions, db: db, cfg: cfg, router: mux.NewRouter()}
	s.router.HandleFunc("/api/guests", s.handleGuests).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return s
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Serve.Addr
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.router)
}

// resolveSession prefers the session store, then config credentials.
func (s *Server) resolveSession(r *http.Request) model.Session {
	ownerID := s.cfg.Account.UserID
	if s.sessions != nil {
		if sess, err := s.sessions.Load(r.Context(), ownerID); err == nil {
			return sess
		}
	}
	return model.Session{UserID: ownerID, AccessToken: s.cfg.Credentials.AccessToken}
}

type guestsResponse struct {
	Guests      []model.Guest `json:"guests"`
	LockedCount int           `json:"lockedCount"`
	Premium     bool          `json:"premium"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

func (s *Server) handleGuests(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(r)
	now := time.Now().UTC()
	guests := s.an.AnalyzeGuests(r.Context(), sess)

	if s.db != nil {
		// Best effort, the response does not depend on persistence.
		if err := s.db.SaveSnapshot(r.Context(), sess.UserID, "", now, guests); err != nil {
			log.Warn().Err(err).Msg("snapshot save failed")
		}
		if err := s.db.SaveDailyStats(r.Context(), sess.UserID, stats.FromGuests(now, guests)); err != nil {
			log.Warn().Err(err).Msg("daily stats save failed")
		}
	}

	resp := guestsResponse{Guests: guests, Premium: sess.Premium, GeneratedAt: now}
	limit := s.cfg.Signals.FreeTierLimit
	if limit <= 0 {
		limit = 5
	}
	if !sess.Premium && len(guests) > limit {
		resp.LockedCount = len(guests) - limit
		resp.Guests = guests[:limit]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, []stats.Daily{})
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 90 {
			days = n
		}
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -(days - 1))
	out, err := s.db.LoadDailyStats(r.Context(), s.cfg.Account.UserID, from, to)
	if err != nil {
		log.Error().Err(err).Msg("load daily stats failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	if out == nil {
		out = []stats.Daily{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}
