// Package types contains common read shapes used across the application.
package types

import "time"

// LeaderboardRow is one combined player line in an aggregate view. Kills
// and deaths are summed across every contributing session the player
// appears in.
type LeaderboardRow struct {
	Name    string `json:"name"`
	Kills   int    `json:"kills"`
	Deaths  int    `json:"deaths"`
	KDRatio string `json:"kd_ratio"`
}

// AggregateView is the merged, read-only view over one or more sessions.
// It is derived on every request and never persisted.
type AggregateView struct {
	SessionCount int              `json:"session_count"`
	SessionIDs   []string         `json:"session_ids"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	DurationSec  int64            `json:"duration_sec"`
	Duration     string           `json:"duration"`
	Maps         []string         `json:"maps"`
	Servers      []string         `json:"servers"`
	Leaderboard  []LeaderboardRow `json:"leaderboard"`
}

// Match scoring lifecycle states. The lifecycle only moves forward:
// unreported -> reporting -> consensus.
const (
	StatusUnreported = "unreported"
	StatusReporting  = "reporting"
	StatusConsensus  = "consensus"
)

// ConsensusView reports the scoring state of one match. AgreedA/AgreedB
// stay nil until consensus is reached.
type ConsensusView struct {
	MatchID         string `json:"match_id"`
	Status          string `json:"status"`
	Reached         bool   `json:"reached"`
	AgreedA         *int   `json:"agreed_a,omitempty"`
	AgreedB         *int   `json:"agreed_b,omitempty"`
	SubmissionCount int    `json:"submission_count"`
	PlayerCount     int    `json:"player_count"`
}
