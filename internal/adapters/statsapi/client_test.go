package statsapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/matchboard/internal/adapters/statsapi"
	logging "github.com/okian/matchboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// newDataService serves fixtures for two sessions. "s1" answers all three
// reads with a bare-array roster; "s2" wraps its roster and has no
// analytics; anything else is unknown.
func newDataService() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s1","started_at":"2026-03-01T18:00:00Z","ended_at":"2026-03-01T18:30:00Z","map_name":"dust_canyon","server_addr":"srv-a:27015"}`))
	})
	mux.HandleFunc("/sessions/s1/players", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"alice","kills":5,"deaths":2},{"name":"bob","kills":3,"deaths":3}]`))
	})
	mux.HandleFunc("/sessions/s1/analytics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_kills":8,"total_deaths":5,"player_count":2,"duration_sec":1800}`))
	})

	mux.HandleFunc("/sessions/s2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s2","started_at":"2026-03-01 18:45:00","map_name":"inferno_pass"}`))
	})
	mux.HandleFunc("/sessions/s2/players", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"players":[{"name":"carol","kills":4,"deaths":0}]}`))
	})
	mux.HandleFunc("/sessions/s2/analytics", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"analytics not ready"}`, http.StatusServiceUnavailable)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

func TestClient_FetchAll(t *testing.T) {
	// Initialize logging for tests
	_ = logging.Init()

	ctx := context.Background()

	Convey("Given a data service with mixed fixtures", t, func() {
		srv := newDataService()
		defer srv.Close()
		client := statsapi.New(srv.URL)

		Convey("When fetching a fully healthy session", func() {
			bundles := client.FetchAll(ctx, []string{"s1"})

			Convey("Then all three reads land in the bundle", func() {
				b := bundles["s1"]
				So(b.Record, ShouldNotBeNil)
				So(b.Record.MapName, ShouldEqual, "dust_canyon")
				So(b.Players, ShouldHaveLength, 2)
				So(b.Players[0].Name, ShouldEqual, "alice")
				So(b.Analytics, ShouldNotBeNil)
				So(b.Analytics.TotalKills, ShouldEqual, 8)
			})
		})

		Convey("When fetching a session with a wrapped roster and dead analytics", func() {
			bundles := client.FetchAll(ctx, []string{"s2"})

			Convey("Then the roster normalizes and analytics is simply absent", func() {
				b := bundles["s2"]
				So(b.Record, ShouldNotBeNil)
				So(b.Players, ShouldHaveLength, 1)
				So(b.Players[0].Name, ShouldEqual, "carol")
				So(b.Analytics, ShouldBeNil)
			})
		})

		Convey("When fetching several sessions including an unknown one", func() {
			bundles := client.FetchAll(ctx, []string{"s1", "missing", "s2"})

			Convey("Then every id gets a bundle and failures never spread", func() {
				So(bundles, ShouldHaveLength, 3)
				So(bundles["s1"].Record, ShouldNotBeNil)
				So(bundles["missing"].Record, ShouldBeNil)
				So(bundles["missing"].Players, ShouldBeNil)
				So(bundles["missing"].Analytics, ShouldBeNil)
				So(bundles["s2"].Record, ShouldNotBeNil)
			})
		})

		Convey("When fetching no sessions", func() {
			bundles := client.FetchAll(ctx, nil)

			So(bundles, ShouldBeEmpty)
		})
	})

	Convey("Given a data service that never answers", t, func() {
		var inFlight int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&inFlight, 1)
			<-r.Context().Done()
		}))
		defer srv.Close()

		client := statsapi.New(srv.URL, statsapi.WithTimeout(50*time.Millisecond))

		Convey("When the per-retrieval timeout fires", func() {
			start := time.Now()
			bundles := client.FetchAll(ctx, []string{"s1"})

			Convey("Then the bundle is empty and the join still returns", func() {
				So(time.Since(start), ShouldBeLessThan, 2*time.Second)
				b := bundles["s1"]
				So(b.Record, ShouldBeNil)
				So(b.Players, ShouldBeNil)
				So(b.Analytics, ShouldBeNil)
				So(atomic.LoadInt64(&inFlight), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an unreachable data service", t, func() {
		client := statsapi.New("http://127.0.0.1:1", statsapi.WithTimeout(100*time.Millisecond))

		Convey("When fetching", func() {
			bundles := client.FetchAll(ctx, []string{"s1"})

			Convey("Then absence is the result, not an error", func() {
				b := bundles["s1"]
				So(b.Record, ShouldBeNil)
				So(b.Players, ShouldBeNil)
				So(b.Analytics, ShouldBeNil)
			})
		})
	})
}
