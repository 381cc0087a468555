// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/types"
)

// MatchDependencies defines the interface for match score reporting.
type MatchDependencies interface {
	Consensus(ctx context.Context, matchID string) (types.ConsensusView, error)
	SubmitScore(ctx context.Context, sub *model.ScoreSubmission) (bool, error)
	SetRoster(ctx context.Context, matchID string, players []string) error
}

// MatchesHandler handles consensus, score and roster requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleMatches dispatches /matches/{id}/consensus, /matches/{id}/scores
// and /matches/{id}/roster.
func (h *MatchesHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/matches/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	matchID, action := parts[0], parts[1]

	switch {
	case r.Method == http.MethodGet && action == "consensus":
		h.handleGetConsensus(w, r, matchID)
	case r.Method == http.MethodPost && action == "scores":
		h.handlePostScore(w, r, matchID)
	case r.Method == http.MethodPost && action == "roster":
		h.handlePostRoster(w, r, matchID)
	default:
		http.NotFound(w, r)
	}
}

// handleGetConsensus handles GET /matches/{id}/consensus requests.
func (h *MatchesHandler) handleGetConsensus(w http.ResponseWriter, r *http.Request, matchID string) {
	view, err := h.deps.Consensus(r.Context(), matchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// scoreRequest mirrors the OpenAPI schema for POST /matches/{id}/scores.
type scoreRequest struct {
	Submitter string `json:"submitter"`
	TeamA     *int   `json:"team_a"`
	TeamB     *int   `json:"team_b"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Submitter) == "":
		return errors.New("missing submitter")
	case s.TeamA == nil:
		return errors.New("missing team_a")
	case s.TeamB == nil:
		return errors.New("missing team_b")
	case *s.TeamA < 0 || *s.TeamB < 0:
		return errors.New("scores must be non-negative")
	}
	return nil
}

// handlePostScore handles POST /matches/{id}/scores requests.
func (h *MatchesHandler) handlePostScore(w http.ResponseWriter, r *http.Request, matchID string) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	sub := &model.ScoreSubmission{
		MatchID:   matchID,
		Submitter: strings.TrimSpace(req.Submitter),
		TeamA:     *req.TeamA,
		TeamB:     *req.TeamB,
	}
	accepted, err := h.deps.SubmitScore(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: sub.ID})
}

// handlePostRoster handles POST /matches/{id}/roster requests. The body is
// accepted in both shapes reporting tools send: a bare name array or an
// object with a "players" field.
func (h *MatchesHandler) handlePostRoster(w http.ResponseWriter, r *http.Request, matchID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	players, err := decodeRoster(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(players) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("empty roster"))
		return
	}

	if err := h.deps.SetRoster(r.Context(), matchID, players); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeRoster accepts either a bare JSON array of names or an object
// wrapping them under "players". Blank names are dropped.
func decodeRoster(body []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		var wrapped struct {
			Players []string `json:"players"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, errors.New("roster must be a name array or a players object")
		}
		names = wrapped.Players
	}

	players := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		players = append(players, name)
	}
	return players, nil
}
