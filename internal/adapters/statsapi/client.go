// Package statsapi is the HTTP client adapter for the remote match data
// service.
//
// The data service exposes three independent reads per session: the
// session record, the player roster and a precomputed analytics summary.
// The client fans all of them out concurrently and joins before returning;
// any single failure collapses to an absent field and never aborts sibling
// retrievals or sibling sessions.
package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/pkg/logger"
	"github.com/okian/matchboard/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout = 5 * time.Second

	kindRecord    = "record"
	kindPlayers   = "players"
	kindAnalytics = "analytics"
)

// Client fetches session data from the remote service. It is stateless
// across calls and never retries; FetchAll is idempotent and
// side-effect-free, so callers that need resilience can wrap it with their
// own retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-retrieval timeout. The timeout applies to each
// individual retrieval, never to the whole fan-out.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for the data service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
		logger:  logger.Get().Named("statsapi"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchAll retrieves the session record, roster and analytics for every
// id. All 3×N retrievals run concurrently and FetchAll returns only after
// each has completed or failed. Partial results are normal; partial
// completion is not.
func (c *Client) FetchAll(ctx context.Context, ids []string) map[string]model.SessionBundle {
	bundles := make([]model.SessionBundle, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		// Each goroutine writes one distinct field of one distinct slot, so
		// no locking is needed until after the join.
		wg.Add(3)
		go func() {
			defer wg.Done()
			bundles[i].Record = c.fetchRecord(ctx, id)
		}()
		go func() {
			defer wg.Done()
			bundles[i].Players = c.fetchPlayers(ctx, id)
		}()
		go func() {
			defer wg.Done()
			bundles[i].Analytics = c.fetchAnalytics(ctx, id)
		}()
	}
	wg.Wait()

	out := make(map[string]model.SessionBundle, len(ids))
	for i, id := range ids {
		out[id] = bundles[i]
	}
	return out
}

// fetchRecord retrieves one session's metadata, or nil when absent.
func (c *Client) fetchRecord(ctx context.Context, id string) *model.SessionRecord {
	var payload struct {
		model.SessionRecord
		Error string `json:"error"`
	}
	if err := c.getJSON(ctx, kindRecord, "/sessions/"+url.PathEscape(id), &payload); err != nil {
		metrics.RecordFetch(kindRecord, false)
		c.logger.Debug(ctx, "session record absent",
			logger.String("session_id", id),
			logger.Error(err),
		)
		return nil
	}
	if payload.Error != "" {
		metrics.RecordFetch(kindRecord, false)
		return nil
	}
	metrics.RecordFetch(kindRecord, true)
	rec := payload.SessionRecord
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec
}

// fetchPlayers retrieves one session's roster, or nil when absent. The
// payload arrives either as a bare array or wrapped under "players"; both
// normalize to a non-nil (possibly empty) list.
func (c *Client) fetchPlayers(ctx context.Context, id string) []model.PlayerStatLine {
	var raw json.RawMessage
	if err := c.getJSON(ctx, kindPlayers, "/sessions/"+url.PathEscape(id)+"/players", &raw); err != nil {
		metrics.RecordFetch(kindPlayers, false)
		c.logger.Debug(ctx, "session roster absent",
			logger.String("session_id", id),
			logger.Error(err),
		)
		return nil
	}

	lines, err := decodeRoster(raw)
	if err != nil {
		metrics.RecordFetch(kindPlayers, false)
		c.logger.Debug(ctx, "session roster malformed",
			logger.String("session_id", id),
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordFetch(kindPlayers, true)
	return lines
}

// fetchAnalytics retrieves one session's analytics summary, or nil when
// absent.
func (c *Client) fetchAnalytics(ctx context.Context, id string) *model.AnalyticsSummary {
	var payload struct {
		model.AnalyticsSummary
		Error string `json:"error"`
	}
	if err := c.getJSON(ctx, kindAnalytics, "/sessions/"+url.PathEscape(id)+"/analytics", &payload); err != nil {
		metrics.RecordFetch(kindAnalytics, false)
		c.logger.Debug(ctx, "session analytics absent",
			logger.String("session_id", id),
			logger.Error(err),
		)
		return nil
	}
	if payload.Error != "" {
		metrics.RecordFetch(kindAnalytics, false)
		return nil
	}
	metrics.RecordFetch(kindAnalytics, true)
	summary := payload.AnalyticsSummary
	return &summary
}

// decodeRoster accepts both roster wire shapes and normalizes to a non-nil
// list.
func decodeRoster(raw json.RawMessage) ([]model.PlayerStatLine, error) {
	var lines []model.PlayerStatLine
	if err := json.Unmarshal(raw, &lines); err == nil {
		if lines == nil {
			lines = []model.PlayerStatLine{}
		}
		return lines, nil
	}

	var wrapped struct {
		Players []model.PlayerStatLine `json:"players"`
		Error   string                 `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("roster payload matches neither shape: %w", err)
	}
	if wrapped.Error != "" {
		return nil, errors.New(wrapped.Error)
	}
	if wrapped.Players == nil {
		wrapped.Players = []model.PlayerStatLine{}
	}
	return wrapped.Players, nil
}

// getJSON performs one GET with the per-retrieval timeout and decodes the
// body into v.
func (c *Client) getJSON(ctx context.Context, kind, path string, v any) error {
	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(kind, float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
