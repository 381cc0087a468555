// Package repository defines the match store interface and errors.
//
// The store holds the two relational facts the consensus engine reads: the
// eligible roster for each match and its append-only score submissions.
package repository

import (
	"context"

	"github.com/okian/matchboard/internal/domain/model"
)

// Store provides read/write access to match rosters and score submissions.
type Store interface {
	// SetRoster replaces the eligible participant list for a match.
	SetRoster(ctx context.Context, matchID string, players []string) error

	// RosterSize returns the number of eligible participants for a match.
	// An unknown match has a roster size of zero.
	RosterSize(ctx context.Context, matchID string) (int, error)

	// AddSubmission records one score submission. A missing ID or zero
	// timestamp is filled in on the passed submission.
	AddSubmission(ctx context.Context, sub *model.ScoreSubmission) error

	// RemoveSubmission deletes a submission by id. It exists only to roll
	// back an AddSubmission whose downstream hand-off failed.
	RemoveSubmission(ctx context.Context, id string) error

	// SubmissionsByMatch returns every submission for a match ordered by
	// recording time, oldest first.
	SubmissionsByMatch(ctx context.Context, matchID string) ([]model.ScoreSubmission, error)

	// Close releases the underlying database handle.
	Close() error
}
