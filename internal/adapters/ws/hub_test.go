package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/okian/matchboard/internal/adapters/ws"
	types "github.com/okian/matchboard/internal/domain/types"
	logging "github.com/okian/matchboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func dial(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func TestHub(t *testing.T) {
	convey.Convey("Given a running hub", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		hub := ws.NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)

		server := httptest.NewServer(hub)
		defer server.Close()

		convey.Convey("When a client connects and a verdict is broadcast", func() {
			conn := dial(t, server.URL)
			defer func() { _ = conn.Close() }()

			// Give the hub time to register the client
			time.Sleep(20 * time.Millisecond)

			agreedA, agreedB := 13, 7
			hub.NotifyConsensus(types.ConsensusView{
				MatchID:         "match-1",
				Status:          types.StatusConsensus,
				Reached:         true,
				AgreedA:         &agreedA,
				AgreedB:         &agreedB,
				SubmissionCount: 3,
				PlayerCount:     10,
			})

			convey.Convey("Then the client receives the verdict as JSON", func() {
				_ = conn.SetReadDeadline(time.Now().Add(time.Second))
				_, payload, err := conn.ReadMessage()
				convey.So(err, convey.ShouldBeNil)

				var view types.ConsensusView
				convey.So(json.Unmarshal(payload, &view), convey.ShouldBeNil)
				convey.So(view.MatchID, convey.ShouldEqual, "match-1")
				convey.So(view.Reached, convey.ShouldBeTrue)
				convey.So(*view.AgreedA, convey.ShouldEqual, 13)
				convey.So(*view.AgreedB, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When multiple clients are connected", func() {
			first := dial(t, server.URL)
			defer func() { _ = first.Close() }()
			second := dial(t, server.URL)
			defer func() { _ = second.Close() }()

			time.Sleep(20 * time.Millisecond)

			hub.NotifyConsensus(types.ConsensusView{
				MatchID: "match-2",
				Status:  types.StatusReporting,
			})

			convey.Convey("Then every client receives the verdict", func() {
				for _, conn := range []*websocket.Conn{first, second} {
					_ = conn.SetReadDeadline(time.Now().Add(time.Second))
					_, payload, err := conn.ReadMessage()
					convey.So(err, convey.ShouldBeNil)

					var view types.ConsensusView
					convey.So(json.Unmarshal(payload, &view), convey.ShouldBeNil)
					convey.So(view.MatchID, convey.ShouldEqual, "match-2")
					convey.So(view.Status, convey.ShouldEqual, types.StatusReporting)
				}
			})
		})

		convey.Convey("When no clients are connected", func() {
			convey.Convey("Then broadcasting does not block", func() {
				done := make(chan struct{})
				go func() {
					hub.NotifyConsensus(types.ConsensusView{MatchID: "match-3", Status: types.StatusUnreported})
					close(done)
				}()

				select {
				case <-done:
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("NotifyConsensus blocked", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
