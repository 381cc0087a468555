package model

import "time"

// ScoreSubmission is one participant's assertion of a match's final score.
// Submissions are append-only and immutable once recorded.
type ScoreSubmission struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"match_id"`
	Submitter   string    `json:"submitter"`
	TeamA       int       `json:"team_a"`
	TeamB       int       `json:"team_b"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionEvent flows through the queue after a submission is persisted.
// Workers pick it up, re-evaluate consensus for the match it names and
// broadcast the verdict.
type SubmissionEvent struct {
	SubmissionID string
	MatchID      string
}
