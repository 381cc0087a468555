package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the dashboard service
	UpstreamAddr string        // Listen address for the fake data service
	NumSessions  int           // Number of game sessions to fabricate
	NumMatches   int           // Number of matches to drive through scoring
	Submitters   int           // Score submitters per match
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for simulation output
	Verbose      bool          // Enable verbose logging
}

// scorePayload is the body of a score submission.
type scorePayload struct {
	Submitter string `json:"submitter"`
	TeamA     int    `json:"team_a"`
	TeamB     int    `json:"team_b"`
}

// rosterPayload is the body of a roster registration.
type rosterPayload struct {
	Players []string `json:"players"`
}

// AckResponse is the response from a score submission.
type AckResponse struct {
	Status string `json:"status"`
}

// ConsensusResponse is the scoring verdict for one match.
type ConsensusResponse struct {
	MatchID         string `json:"match_id"`
	Status          string `json:"status"`
	Reached         bool   `json:"reached"`
	AgreedA         *int   `json:"agreed_a"`
	AgreedB         *int   `json:"agreed_b"`
	SubmissionCount int    `json:"submission_count"`
	PlayerCount     int    `json:"player_count"`
}

// AggregateResponse is the merged view returned for a session token.
type AggregateResponse struct {
	SessionCount int      `json:"session_count"`
	SessionIDs   []string `json:"session_ids"`
	DurationSec  int64    `json:"duration_sec"`
	Duration     string   `json:"duration"`
	Maps         []string `json:"maps"`
	Servers      []string `json:"servers"`
	Leaderboard  []struct {
		Name    string `json:"name"`
		Kills   int    `json:"kills"`
		Deaths  int    `json:"deaths"`
		KDRatio string `json:"kd_ratio"`
	} `json:"leaderboard"`
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsFabricated   int
	MatchesDriven        int
	ScoresSubmitted      int
	ScoresAccepted       int
	ScoresRejected       int
	ScoresFailed         int
	VerdictsRetrieved    int
	VerdictsReached      int
	AggregatesRetrieved  int
	AggregatesFailed     int
	VerificationWarnings int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
