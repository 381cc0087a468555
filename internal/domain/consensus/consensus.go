// Package consensus decides whether a match's participants agree on its
// final score.
//
// A score is never authoritative from a single source: each participant
// asserts a (teamA, teamB) pair independently and the engine looks for
// agreement across those assertions. Submissions are append-only, so a
// verdict only ever moves forward: once enough submissions agree the
// result stands regardless of later disagreement.
package consensus

import (
	"context"
	"fmt"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/types"
)

// Quorum is the fixed number of matching independent submissions required
// to accept a score as final. Deliberately not a majority of participants:
// two independent confirmations are enough even on a full roster.
const Quorum = 2

// Store provides the persisted state an evaluation reads: the match roster
// size and every submission recorded so far, ordered by recording time.
type Store interface {
	RosterSize(ctx context.Context, matchID string) (int, error)
	SubmissionsByMatch(ctx context.Context, matchID string) ([]model.ScoreSubmission, error)
}

// Engine evaluates score consensus on demand. It holds no state of its
// own; every Evaluate call reads the store afresh and computes purely, so
// a stale verdict is never returned.
type Engine struct {
	store Store
}

// New creates an Engine over the given store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Evaluate computes the consensus verdict for matchID from the current
// submission set. Consensus is reached once the largest identical
// (teamA, teamB) group has at least Quorum members. When two or more
// groups tie for largest, the group holding the earliest-recorded
// submission wins, which keeps the verdict independent of map iteration
// or storage order.
func (e *Engine) Evaluate(ctx context.Context, matchID string) (types.ConsensusView, error) {
	roster, err := e.store.RosterSize(ctx, matchID)
	if err != nil {
		return types.ConsensusView{}, fmt.Errorf("roster size for %s: %w", matchID, err)
	}
	subs, err := e.store.SubmissionsByMatch(ctx, matchID)
	if err != nil {
		return types.ConsensusView{}, fmt.Errorf("submissions for %s: %w", matchID, err)
	}

	view := types.ConsensusView{
		MatchID:         matchID,
		Status:          types.StatusUnreported,
		SubmissionCount: len(subs),
		PlayerCount:     roster,
	}
	if len(subs) == 0 {
		return view, nil
	}
	view.Status = types.StatusReporting

	type group struct {
		teamA, teamB int
		count        int
		firstSeen    int // index of the group's earliest submission
	}

	groups := make(map[[2]int]*group)
	for i, sub := range subs {
		key := [2]int{sub.TeamA, sub.TeamB}
		g, ok := groups[key]
		if !ok {
			g = &group{teamA: sub.TeamA, teamB: sub.TeamB, firstSeen: i}
			groups[key] = g
		}
		g.count++
	}

	var best *group
	for _, g := range groups {
		if best == nil ||
			g.count > best.count ||
			(g.count == best.count && g.firstSeen < best.firstSeen) {
			best = g
		}
	}

	if best.count >= Quorum {
		view.Status = types.StatusConsensus
		view.Reached = true
		a, b := best.teamA, best.teamB
		view.AgreedA = &a
		view.AgreedB = &b
	}
	return view, nil
}
