package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/okian/matchboard/internal/domain/model"
)

// Upstream server timeout constants.
const (
	upstreamReadTimeout     = 5 * time.Second
	upstreamWriteTimeout    = 5 * time.Second
	upstreamShutdownTimeout = 5 * time.Second
)

// Upstream is the fake data service the dashboard fetches session data
// from. It serves the three per-session reads from fabricated fixtures,
// reproducing the quirks baked into them: missing analytics, absent
// rosters and both roster payload shapes.
type Upstream struct {
	server   *http.Server
	sessions map[string]FabricatedSession
	errCh    chan error
}

// newUpstream creates a fake data service listening on addr.
func newUpstream(addr string, sessions []FabricatedSession) *Upstream {
	byID := make(map[string]FabricatedSession, len(sessions))
	for _, s := range sessions {
		byID[s.Record.ID] = s
	}

	u := &Upstream{
		sessions: byID,
		errCh:    make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/", u.handleSession)

	u.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  upstreamReadTimeout,
		WriteTimeout: upstreamWriteTimeout,
	}
	return u
}

// Start begins serving in the background. Listen failures surface on the
// next call to Err.
func (u *Upstream) Start() {
	go func() {
		if err := u.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			u.errCh <- err
		}
	}()
}

// Err reports a listen failure, if one happened.
func (u *Upstream) Err() error {
	select {
	case err := <-u.errCh:
		return err
	default:
		return nil
	}
}

// Shutdown stops the fake data service.
func (u *Upstream) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, upstreamShutdownTimeout)
	defer cancel()
	return u.server.Shutdown(shutdownCtx)
}

// handleSession routes /sessions/{id}, /sessions/{id}/players and
// /sessions/{id}/analytics.
func (u *Upstream) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	id, suffix := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, suffix = rest[:i], rest[i+1:]
	}

	session, ok := u.sessions[id]
	if !ok {
		writeUpstreamError(w, http.StatusNotFound, "session not found")
		return
	}

	switch suffix {
	case "":
		writeUpstreamJSON(w, session.Record)
	case "players":
		u.servePlayers(w, session)
	case "analytics":
		u.serveAnalytics(w, session)
	default:
		writeUpstreamError(w, http.StatusNotFound, "unknown resource")
	}
}

// servePlayers serves the roster in whichever shape the fixture chose.
func (u *Upstream) servePlayers(w http.ResponseWriter, session FabricatedSession) {
	if session.NoRoster {
		writeUpstreamError(w, http.StatusNotFound, "roster unavailable")
		return
	}
	if session.WrappedShape {
		writeUpstreamJSON(w, map[string][]model.PlayerStatLine{"players": session.Players})
		return
	}
	writeUpstreamJSON(w, session.Players)
}

func (u *Upstream) serveAnalytics(w http.ResponseWriter, session FabricatedSession) {
	if session.NoAnalytics {
		writeUpstreamError(w, http.StatusServiceUnavailable, "analytics not ready")
		return
	}
	writeUpstreamJSON(w, session.Analytics)
}

func writeUpstreamJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode upstream response: %v", err)
	}
}

func writeUpstreamError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
