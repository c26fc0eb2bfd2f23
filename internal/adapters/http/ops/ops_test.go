package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/adapters/sync/memory"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type staticStats map[string]any

func (s staticStats) GetStats() map[string]any { return s }

func newMux(reader SnapshotReader, stats StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(reader, stats).Register(context.Background(), mux)
	return mux
}

func TestOpsServer(t *testing.T) {
	ctx := context.Background()

	Convey("Given an ops server over a store with one room", t, func() {
		store := memory.NewClient()
		room, err := store.CreateRoom(ctx, "SALON")
		So(err, ShouldBeNil)
		So(store.InsertPlayer(ctx, model.Player{ID: uuid.New(), RoomID: room.ID, Username: "ada", PairID: "pair1", IsHost: true}), ShouldBeNil)

		mux := newMux(store, staticStats{"rooms": 1})

		Convey("When health is probed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then the service reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When metrics are scraped", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the engine registry is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "mouton_engine")
			})
		})

		Convey("When a known room is read", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/SALON", nil))

			Convey("Then its snapshot is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var snap syncapi.Snapshot
				So(json.Unmarshal(rec.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.Room.Code, ShouldEqual, "SALON")
				So(snap.Players, ShouldHaveLength, 1)
				So(snap.Players[0].Username, ShouldEqual, "ada")
			})
		})

		Convey("When an unknown room is read", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/NOPE", nil))

			Convey("Then the response is a structured 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				var body map[string]string
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "room_not_found")
			})
		})

		Convey("When stats are requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the provider's counters are surfaced", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["rooms"], ShouldEqual, 1.0)
			})
		})
	})
}
