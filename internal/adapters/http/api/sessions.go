// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/matchboard/internal/domain/aggregate"
	"github.com/okian/matchboard/internal/domain/resolver"
	"github.com/okian/matchboard/internal/domain/types"
)

// SessionDependencies defines the interface for session aggregation.
type SessionDependencies interface {
	AggregateSessions(ctx context.Context, token string) (types.AggregateView, error)
}

// SessionsHandler handles aggregated session view requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleGetSession handles GET /sessions/{token} requests. The token is
// treated as opaque here; resolution happens in the service layer.
func (h *SessionsHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /sessions/
	token := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, http.StatusBadRequest, "no_session", ErrNoSession)
		return
	}

	view, err := h.deps.AggregateSessions(r.Context(), token)
	switch {
	case errors.Is(err, resolver.ErrNoSessionRefs):
		writeError(w, http.StatusBadRequest, "no_session", err)
	case errors.Is(err, aggregate.ErrNoUsableSession):
		writeError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}
