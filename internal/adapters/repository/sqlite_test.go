package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/matchboard/internal/adapters/repository"
	"github.com/okian/matchboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func TestSQLiteStore_Rosters(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := newTestStore(t)

		Convey("When no roster has been set", func() {
			n, err := store.RosterSize(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then the roster size is zero", func() {
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When setting a roster", func() {
			err := store.SetRoster(ctx, "m1", []string{"alice", "bob", "carol"})
			So(err, ShouldBeNil)

			n, err := store.RosterSize(ctx, "m1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			Convey("And setting it again replaces rather than appends", func() {
				err := store.SetRoster(ctx, "m1", []string{"dave", "erin"})
				So(err, ShouldBeNil)

				n, err := store.RosterSize(ctx, "m1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When the roster repeats a name", func() {
			err := store.SetRoster(ctx, "m1", []string{"alice", "alice", "bob"})
			So(err, ShouldBeNil)

			n, err := store.RosterSize(ctx, "m1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("When the roster carries empty names", func() {
			err := store.SetRoster(ctx, "m1", []string{"alice", "", "bob"})
			So(err, ShouldBeNil)

			n, err := store.RosterSize(ctx, "m1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("When the match id is empty", func() {
			So(store.SetRoster(ctx, "", []string{"alice"}), ShouldEqual, repository.ErrEmptyMatchID)

			_, err := store.RosterSize(ctx, "")
			So(err, ShouldEqual, repository.ErrEmptyMatchID)
		})
	})
}

func TestSQLiteStore_Submissions(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := newTestStore(t)

		Convey("When adding a submission with no id or timestamp", func() {
			sub := &model.ScoreSubmission{
				MatchID:   "m1",
				Submitter: "alice",
				TeamA:     16,
				TeamB:     9,
			}
			err := store.AddSubmission(ctx, sub)
			So(err, ShouldBeNil)

			Convey("Then both get filled in", func() {
				So(sub.ID, ShouldNotBeEmpty)
				So(sub.SubmittedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And it reads back intact", func() {
				subs, err := store.SubmissionsByMatch(ctx, "m1")
				So(err, ShouldBeNil)
				So(subs, ShouldHaveLength, 1)
				So(subs[0].ID, ShouldEqual, sub.ID)
				So(subs[0].Submitter, ShouldEqual, "alice")
				So(subs[0].TeamA, ShouldEqual, 16)
				So(subs[0].TeamB, ShouldEqual, 9)
				So(subs[0].SubmittedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When adding several submissions", func() {
			base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
			for i, who := range []string{"alice", "bob", "carol"} {
				sub := &model.ScoreSubmission{
					MatchID:     "m1",
					Submitter:   who,
					TeamA:       16,
					TeamB:       9,
					SubmittedAt: base.Add(time.Duration(i) * time.Second),
				}
				So(store.AddSubmission(ctx, sub), ShouldBeNil)
			}

			Convey("Then they come back oldest first", func() {
				subs, err := store.SubmissionsByMatch(ctx, "m1")
				So(err, ShouldBeNil)
				So(subs, ShouldHaveLength, 3)
				So(subs[0].Submitter, ShouldEqual, "alice")
				So(subs[1].Submitter, ShouldEqual, "bob")
				So(subs[2].Submitter, ShouldEqual, "carol")
			})
		})

		Convey("When submissions share a timestamp", func() {
			at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
			for _, who := range []string{"alice", "bob"} {
				sub := &model.ScoreSubmission{
					MatchID:     "m1",
					Submitter:   who,
					TeamA:       1,
					TeamB:       0,
					SubmittedAt: at,
				}
				So(store.AddSubmission(ctx, sub), ShouldBeNil)
			}

			Convey("Then insertion order breaks the tie", func() {
				subs, err := store.SubmissionsByMatch(ctx, "m1")
				So(err, ShouldBeNil)
				So(subs[0].Submitter, ShouldEqual, "alice")
				So(subs[1].Submitter, ShouldEqual, "bob")
			})
		})

		Convey("When removing a submission", func() {
			sub := &model.ScoreSubmission{MatchID: "m1", Submitter: "alice", TeamA: 1, TeamB: 0}
			So(store.AddSubmission(ctx, sub), ShouldBeNil)

			So(store.RemoveSubmission(ctx, sub.ID), ShouldBeNil)

			subs, err := store.SubmissionsByMatch(ctx, "m1")
			So(err, ShouldBeNil)
			So(subs, ShouldBeEmpty)

			Convey("And removing it again is a no-op", func() {
				So(store.RemoveSubmission(ctx, sub.ID), ShouldBeNil)
			})
		})

		Convey("When matches are distinct", func() {
			So(store.AddSubmission(ctx, &model.ScoreSubmission{MatchID: "m1", Submitter: "alice", TeamA: 1, TeamB: 0}), ShouldBeNil)
			So(store.AddSubmission(ctx, &model.ScoreSubmission{MatchID: "m2", Submitter: "bob", TeamA: 2, TeamB: 2}), ShouldBeNil)

			subs, err := store.SubmissionsByMatch(ctx, "m1")
			So(err, ShouldBeNil)
			So(subs, ShouldHaveLength, 1)
			So(subs[0].MatchID, ShouldEqual, "m1")
		})

		Convey("When the match id is empty", func() {
			err := store.AddSubmission(ctx, &model.ScoreSubmission{Submitter: "alice"})
			So(err, ShouldEqual, repository.ErrEmptyMatchID)

			_, err = store.SubmissionsByMatch(ctx, "")
			So(err, ShouldEqual, repository.ErrEmptyMatchID)
		})
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with persisted state", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "reopen.db")

		store, err := repository.NewSQLiteStore(path)
		So(err, ShouldBeNil)
		So(store.SetRoster(ctx, "m1", []string{"alice", "bob"}), ShouldBeNil)
		So(store.AddSubmission(ctx, &model.ScoreSubmission{MatchID: "m1", Submitter: "alice", TeamA: 16, TeamB: 9}), ShouldBeNil)
		So(store.Close(), ShouldBeNil)

		Convey("When reopening the same file", func() {
			reopened, err := repository.NewSQLiteStore(path)
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then rosters and submissions survive", func() {
				n, err := reopened.RosterSize(ctx, "m1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				subs, err := reopened.SubmissionsByMatch(ctx, "m1")
				So(err, ShouldBeNil)
				So(subs, ShouldHaveLength, 1)
			})
		})
	})
}
