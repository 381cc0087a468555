package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	service "github.com/okian/matchboard/internal/app"
	aggregate "github.com/okian/matchboard/internal/domain/aggregate"
	model "github.com/okian/matchboard/internal/domain/model"
	resolver "github.com/okian/matchboard/internal/domain/resolver"
	types "github.com/okian/matchboard/internal/domain/types"
	logging "github.com/okian/matchboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// memStore is an in-memory repository.Store for service tests.
type memStore struct {
	mu          sync.Mutex
	rosters     map[string][]string
	submissions map[string][]model.ScoreSubmission
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		rosters:     make(map[string][]string),
		submissions: make(map[string][]model.ScoreSubmission),
	}
}

func (m *memStore) SetRoster(ctx context.Context, matchID string, players []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[matchID] = append([]string(nil), players...)
	return nil
}

func (m *memStore) RosterSize(ctx context.Context, matchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rosters[matchID]), nil
}

func (m *memStore) AddSubmission(ctx context.Context, sub *model.ScoreSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		m.nextID++
		sub.ID = fmt.Sprintf("sub-%d", m.nextID)
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	m.submissions[sub.MatchID] = append(m.submissions[sub.MatchID], *sub)
	return nil
}

func (m *memStore) RemoveSubmission(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for matchID, subs := range m.submissions {
		for i, sub := range subs {
			if sub.ID == id {
				m.submissions[matchID] = append(subs[:i], subs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memStore) SubmissionsByMatch(ctx context.Context, matchID string) ([]model.ScoreSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ScoreSubmission(nil), m.submissions[matchID]...), nil
}

func (m *memStore) Close() error { return nil }

// captureNotifier collects broadcast verdicts.
type captureNotifier struct {
	verdicts chan types.ConsensusView
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{verdicts: make(chan types.ConsensusView, 16)}
}

func (c *captureNotifier) NotifyConsensus(view types.ConsensusView) {
	select {
	case c.verdicts <- view:
	default:
	}
}

// newUpstream serves the three per-session endpoints for a fixed fixture
// set. Unknown sessions get a 404 on every endpoint.
func newUpstream() *httptest.Server {
	records := map[string]string{
		"s1": `{"id":"s1","started_at":"2024-05-01T18:00:00Z","ended_at":"2024-05-01T18:30:00Z","server_addr":"10.0.0.1:27015","map_name":"dust"}`,
		"s2": `{"id":"s2","started_at":"2024-05-01T18:45:00Z","ended_at":"2024-05-01T19:00:00Z","server_addr":"10.0.0.1:27015","map_name":"inferno"}`,
	}
	players := map[string]string{
		"s1": `[{"name":"alice","kills":5,"deaths":2},{"name":"bob","kills":3,"deaths":3}]`,
		"s2": `{"players":[{"name":"alice","kills":2,"deaths":1},{"name":"carol","kills":4,"deaths":0}]}`,
	}
	analytics := map[string]string{
		"s1": `{"total_kills":8,"total_deaths":5,"player_count":2,"duration_sec":1800}`,
		"s2": `{"total_kills":6,"total_deaths":1,"player_count":2,"duration_sec":900}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		var table map[string]string
		id := r.URL.Path[len("/sessions/"):]
		switch {
		case len(id) > len("/players") && id[len(id)-len("/players"):] == "/players":
			id = id[:len(id)-len("/players")]
			table = players
		case len(id) > len("/analytics") && id[len(id)-len("/analytics"):] == "/analytics":
			id = id[:len(id)-len("/analytics")]
			table = analytics
		default:
			table = records
		}
		body, ok := table[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func newStartedService(t *testing.T, upstreamURL string, notifier *captureNotifier) (*service.Service, *memStore) {
	t.Helper()

	store := newMemStore()
	opts := []service.Option{
		service.WithDataAPIURL(upstreamURL),
		service.WithStore(store),
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
		service.WithFetchTimeout(2 * time.Second),
	}
	if notifier != nil {
		opts = append(opts, service.WithNotifier(notifier))
	}
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	return svc, store
}

func TestAggregateSessions(t *testing.T) {
	convey.Convey("Given a service backed by a fake data API", t, func() {
		_ = logging.Init()

		upstream := newUpstream()
		defer upstream.Close()

		svc, _ := newStartedService(t, upstream.URL, nil)
		defer svc.Stop()
		ctx := context.Background()

		convey.Convey("When aggregating a multi-session token", func() {
			view, err := svc.AggregateSessions(ctx, "s1+s2")

			convey.Convey("Then both sessions merge into one view", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.SessionCount, convey.ShouldEqual, 2)
				convey.So(view.SessionIDs, convey.ShouldResemble, []string{"s1", "s2"})
				convey.So(view.Maps, convey.ShouldResemble, []string{"dust", "inferno"})
				convey.So(view.Servers, convey.ShouldResemble, []string{"10.0.0.1:27015"})
				convey.So(view.DurationSec, convey.ShouldEqual, 3600)
				convey.So(view.Duration, convey.ShouldEqual, "1h 0m 0s")
			})

			convey.Convey("Then the leaderboard is summed by name and sorted by kills", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.Leaderboard, convey.ShouldHaveLength, 3)
				convey.So(view.Leaderboard[0].Name, convey.ShouldEqual, "alice")
				convey.So(view.Leaderboard[0].Kills, convey.ShouldEqual, 7)
				convey.So(view.Leaderboard[0].Deaths, convey.ShouldEqual, 3)
				convey.So(view.Leaderboard[1].Name, convey.ShouldEqual, "carol")
				convey.So(view.Leaderboard[1].KDRatio, convey.ShouldEqual, "∞")
				convey.So(view.Leaderboard[2].Name, convey.ShouldEqual, "bob")
			})
		})

		convey.Convey("When one referenced session is unknown upstream", func() {
			view, err := svc.AggregateSessions(ctx, "s1+missing")

			convey.Convey("Then the usable session still aggregates", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.SessionCount, convey.ShouldEqual, 1)
				convey.So(view.Maps, convey.ShouldResemble, []string{"dust"})
			})
		})

		convey.Convey("When the token is only separators", func() {
			_, err := svc.AggregateSessions(ctx, "++~~")

			convey.Convey("Then it reports no session refs", func() {
				convey.So(errors.Is(err, resolver.ErrNoSessionRefs), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no referenced session is retrievable", func() {
			_, err := svc.AggregateSessions(ctx, "missing1+missing2")

			convey.Convey("Then it reports no usable session", func() {
				convey.So(errors.Is(err, aggregate.ErrNoUsableSession), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the token is double percent-encoded", func() {
			view, err := svc.AggregateSessions(ctx, "s1%252Bs2")

			convey.Convey("Then it still resolves both sessions", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.SessionCount, convey.ShouldEqual, 2)
			})
		})
	})
}

func TestScoreReportingPipeline(t *testing.T) {
	convey.Convey("Given a started service with a live feed", t, func() {
		_ = logging.Init()

		upstream := newUpstream()
		defer upstream.Close()

		notifier := newCaptureNotifier()
		svc, store := newStartedService(t, upstream.URL, notifier)
		defer svc.Stop()
		ctx := context.Background()

		convey.Convey("When a roster is registered", func() {
			err := svc.SetRoster(ctx, "m1", []string{"alice", "bob", "carol", "dave"})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("And when no score has been submitted", func() {
				view, err := svc.Consensus(ctx, "m1")

				convey.Convey("Then the match is unreported", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(view.Status, convey.ShouldEqual, types.StatusUnreported)
					convey.So(view.PlayerCount, convey.ShouldEqual, 4)
				})
			})

			convey.Convey("And when a single score is submitted", func() {
				accepted, err := svc.SubmitScore(ctx, &model.ScoreSubmission{
					MatchID: "m1", Submitter: "alice", TeamA: 16, TeamB: 9,
				})
				convey.So(err, convey.ShouldBeNil)
				convey.So(accepted, convey.ShouldBeTrue)

				convey.Convey("Then a verdict is broadcast without quorum", func() {
					select {
					case view := <-notifier.verdicts:
						convey.So(view.MatchID, convey.ShouldEqual, "m1")
						convey.So(view.Status, convey.ShouldEqual, types.StatusReporting)
						convey.So(view.Reached, convey.ShouldBeFalse)
					case <-time.After(time.Second):
						convey.So("no verdict broadcast", convey.ShouldBeEmpty)
					}
				})
			})

			convey.Convey("And when two identical scores are submitted", func() {
				for _, submitter := range []string{"alice", "bob"} {
					accepted, err := svc.SubmitScore(ctx, &model.ScoreSubmission{
						MatchID: "m1", Submitter: submitter, TeamA: 16, TeamB: 9,
					})
					convey.So(err, convey.ShouldBeNil)
					convey.So(accepted, convey.ShouldBeTrue)
				}

				convey.Convey("Then consensus is reached", func() {
					deadline := time.After(time.Second)
					for {
						select {
						case view := <-notifier.verdicts:
							if !view.Reached {
								continue
							}
							convey.So(view.Status, convey.ShouldEqual, types.StatusConsensus)
							convey.So(*view.AgreedA, convey.ShouldEqual, 16)
							convey.So(*view.AgreedB, convey.ShouldEqual, 9)
							convey.So(view.SubmissionCount, convey.ShouldEqual, 2)
							return
						case <-deadline:
							convey.So("consensus never broadcast", convey.ShouldBeEmpty)
							return
						}
					}
				})

				convey.Convey("Then the on-demand verdict agrees", func() {
					view, err := svc.Consensus(ctx, "m1")
					convey.So(err, convey.ShouldBeNil)
					convey.So(view.Reached, convey.ShouldBeTrue)
					convey.So(*view.AgreedA, convey.ShouldEqual, 16)
					convey.So(*view.AgreedB, convey.ShouldEqual, 9)
				})

				convey.Convey("Then both submissions are persisted", func() {
					subs, err := store.SubmissionsByMatch(ctx, "m1")
					convey.So(err, convey.ShouldBeNil)
					convey.So(subs, convey.ShouldHaveLength, 2)
				})
			})
		})

		convey.Convey("When reading service statistics", func() {
			stats := svc.GetStats()

			convey.Convey("Then the runtime shape is reported", func() {
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats, convey.ShouldContainKey, "queueLength")
			})
		})
	})
}
