package consensus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/matchboard/internal/domain/consensus"
	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeStore serves canned rosters and submissions for one engine under test.
type fakeStore struct {
	rosters     map[string]int
	submissions map[string][]model.ScoreSubmission
	failWith    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rosters:     make(map[string]int),
		submissions: make(map[string][]model.ScoreSubmission),
	}
}

func (s *fakeStore) RosterSize(ctx context.Context, matchID string) (int, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	return s.rosters[matchID], nil
}

func (s *fakeStore) SubmissionsByMatch(ctx context.Context, matchID string) ([]model.ScoreSubmission, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.submissions[matchID], nil
}

func (s *fakeStore) submit(matchID, submitter string, teamA, teamB int) {
	s.submissions[matchID] = append(s.submissions[matchID], model.ScoreSubmission{
		ID:          submitter + "-sub",
		MatchID:     matchID,
		Submitter:   submitter,
		TeamA:       teamA,
		TeamB:       teamB,
		SubmittedAt: time.Now(),
	})
}

func TestEngine_Evaluate(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine over an empty store", t, func() {
		store := newFakeStore()
		store.rosters["m1"] = 10
		engine := consensus.New(store)

		Convey("When no scores have been submitted", func() {
			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the match is unreported", func() {
				So(view.MatchID, ShouldEqual, "m1")
				So(view.Status, ShouldEqual, types.StatusUnreported)
				So(view.Reached, ShouldBeFalse)
				So(view.AgreedA, ShouldBeNil)
				So(view.AgreedB, ShouldBeNil)
				So(view.SubmissionCount, ShouldEqual, 0)
				So(view.PlayerCount, ShouldEqual, 10)
			})
		})

		Convey("When one score has been submitted", func() {
			store.submit("m1", "alice", 16, 9)

			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the match is reporting but unresolved", func() {
				So(view.Status, ShouldEqual, types.StatusReporting)
				So(view.Reached, ShouldBeFalse)
				So(view.SubmissionCount, ShouldEqual, 1)
			})
		})

		Convey("When two submitters agree exactly", func() {
			store.submit("m1", "alice", 16, 9)
			store.submit("m1", "bob", 16, 9)

			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then consensus is reached on that score", func() {
				So(view.Status, ShouldEqual, types.StatusConsensus)
				So(view.Reached, ShouldBeTrue)
				So(*view.AgreedA, ShouldEqual, 16)
				So(*view.AgreedB, ShouldEqual, 9)
			})
		})

		Convey("When two submitters report mirrored scores", func() {
			store.submit("m1", "alice", 16, 9)
			store.submit("m1", "bob", 9, 16)

			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then (a, b) and (b, a) never count as agreement", func() {
				So(view.Status, ShouldEqual, types.StatusReporting)
				So(view.Reached, ShouldBeFalse)
			})
		})

		Convey("When a later group also reaches quorum", func() {
			store.submit("m1", "alice", 16, 9)
			store.submit("m1", "bob", 16, 9)
			store.submit("m1", "carol", 13, 13)
			store.submit("m1", "dave", 13, 13)

			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the tie breaks to the earliest-recorded group", func() {
				So(view.Reached, ShouldBeTrue)
				So(*view.AgreedA, ShouldEqual, 16)
				So(*view.AgreedB, ShouldEqual, 9)
			})
		})

		Convey("When a larger group forms after a quorate one", func() {
			store.submit("m1", "alice", 16, 9)
			store.submit("m1", "bob", 16, 9)
			store.submit("m1", "carol", 13, 13)
			store.submit("m1", "dave", 13, 13)
			store.submit("m1", "erin", 13, 13)

			view, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the largest group wins outright", func() {
				So(view.Reached, ShouldBeTrue)
				So(*view.AgreedA, ShouldEqual, 13)
				So(*view.AgreedB, ShouldEqual, 13)
			})
		})

		Convey("When disagreement arrives after consensus", func() {
			store.submit("m1", "alice", 16, 9)
			store.submit("m1", "bob", 16, 9)

			before, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)
			So(before.Reached, ShouldBeTrue)

			store.submit("m1", "mallory", 0, 16)

			after, err := engine.Evaluate(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the verdict never regresses", func() {
				So(after.Reached, ShouldBeTrue)
				So(*after.AgreedA, ShouldEqual, 16)
				So(*after.AgreedB, ShouldEqual, 9)
				So(after.SubmissionCount, ShouldEqual, 3)
			})
		})

		Convey("When a match has no registered roster", func() {
			store.submit("m2", "alice", 1, 0)
			store.submit("m2", "bob", 1, 0)

			view, err := engine.Evaluate(ctx, "m2")
			So(err, ShouldBeNil)

			Convey("Then consensus still works with a zero player count", func() {
				So(view.Reached, ShouldBeTrue)
				So(view.PlayerCount, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store that fails", t, func() {
		store := newFakeStore()
		store.failWith = errors.New("store offline")
		engine := consensus.New(store)

		Convey("When evaluating", func() {
			_, err := engine.Evaluate(ctx, "m1")

			Convey("Then the failure propagates wrapped", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, store.failWith), ShouldBeTrue)
			})
		})
	})
}
