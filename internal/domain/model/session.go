// Package model contains domain models passed between layers.
package model

// SessionRecord is one session's metadata as returned by the data service.
// Timestamps stay raw strings here: upstream emits several historical
// formats and parsing is owned by the aggregate package.
type SessionRecord struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at,omitempty"`
	ServerAddr  string `json:"server_addr,omitempty"`
	MapName     string `json:"map_name,omitempty"`
	PeakPlayers *int   `json:"peak_players,omitempty"`
	DurationSec *int   `json:"duration_sec,omitempty"`
}

// PlayerStatLine is one player's per-session performance. Name is the join
// key across sessions; equality is exact string match, no identity
// verification beyond that.
type PlayerStatLine struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// AnalyticsSummary is the per-session rollup the data service precomputes.
type AnalyticsSummary struct {
	TotalKills  int `json:"total_kills"`
	TotalDeaths int `json:"total_deaths"`
	PlayerCount int `json:"player_count"`
	DurationSec int `json:"duration_sec"`
}

// SessionBundle holds the three independently fetched records for one
// session id. A nil field means that retrieval failed or returned nothing
// usable; sibling fields are unaffected.
type SessionBundle struct {
	Record    *SessionRecord
	Players   []PlayerStatLine
	Analytics *AnalyticsSummary
}
