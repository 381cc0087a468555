// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// AggregateSessions resolves a raw path token and merges every
	// referenced session into one view.
	AggregateSessions(ctx context.Context, token string) (types.AggregateView, error)

	// Consensus returns the current verdict for a match.
	Consensus(ctx context.Context, matchID string) (types.ConsensusView, error)

	// SubmitScore records a score submission for async evaluation.
	// Returns false on backpressure.
	SubmitScore(ctx context.Context, sub *model.ScoreSubmission) (bool, error)

	// SetRoster replaces the registered roster of a match.
	SetRoster(ctx context.Context, matchID string, players []string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	matchesHandler  *MatchesHandler
	liveHandler     http.Handler
}

// NewServer creates a new API server with all handlers. live may be nil
// when no live feed is wired.
func NewServer(deps Dependencies, statsProvider StatsProvider, live http.Handler) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps),
		matchesHandler:  NewMatchesHandler(deps),
		liveHandler:     live,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleGetSession, "sessions"))
	mux.HandleFunc("/matches/", MetricsMiddleware(s.matchesHandler.HandleMatches, "matches"))
	if s.liveHandler != nil {
		mux.Handle("/live", s.liveHandler)
	}
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
