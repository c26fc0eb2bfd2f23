package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	syncapi "github.com/okian/mouton/internal/adapters/sync"
	"github.com/okian/mouton/internal/domain/model"
)

func drain(ch <-chan syncapi.Change) []syncapi.Change {
	var out []syncapi.Change
	for {
		select {
		case c := <-ch:
			out = append(out, c)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestClientRooms(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory client", t, func() {
		c := NewClient()

		Convey("When a room is created", func() {
			room, err := c.CreateRoom(ctx, "SALON")
			So(err, ShouldBeNil)

			Convey("Then it starts as an empty lobby", func() {
				So(room.Status, ShouldEqual, model.RoomStatusLobby)
				So(room.Turn, ShouldEqual, 0)
				So(room.PromptID, ShouldBeNil)

				snap, err := c.ReadRoomState(ctx, "SALON")
				So(err, ShouldBeNil)
				So(snap.Room.ID, ShouldEqual, room.ID)
				So(snap.Players, ShouldBeEmpty)
				So(snap.Answers, ShouldBeEmpty)
				So(snap.Scores, ShouldBeEmpty)
			})

			Convey("And reusing the code conflicts", func() {
				_, err := c.CreateRoom(ctx, "SALON")
				So(err, ShouldEqual, syncapi.ErrConflict)
			})

			Convey("And a partial update only touches set fields", func() {
				playing := model.RoomStatusPlaying
				So(c.UpdateRoom(ctx, room.ID, syncapi.RoomFields{Status: &playing}), ShouldBeNil)

				snap, err := c.ReadRoomState(ctx, "SALON")
				So(err, ShouldBeNil)
				So(snap.Room.Status, ShouldEqual, model.RoomStatusPlaying)
				So(snap.Room.Turn, ShouldEqual, 0)
			})
		})

		Convey("When an unknown room is read", func() {
			_, err := c.ReadRoomState(ctx, "NOPE")

			Convey("Then it is not found", func() {
				So(err, ShouldEqual, syncapi.ErrNotFound)
			})
		})
	})
}

func TestClientRecords(t *testing.T) {
	ctx := context.Background()

	Convey("Given a room", t, func() {
		c := NewClient()
		room, err := c.CreateRoom(ctx, "SALON")
		So(err, ShouldBeNil)

		player := model.Player{ID: uuid.New(), RoomID: room.ID, Username: "ada", PairID: "pair1"}

		Convey("When the same player is inserted twice", func() {
			So(c.InsertPlayer(ctx, player), ShouldBeNil)
			err := c.InsertPlayer(ctx, player)

			Convey("Then the second insert conflicts", func() {
				So(err, ShouldEqual, syncapi.ErrConflict)
			})
		})

		Convey("When a player answers the same turn twice", func() {
			answer := model.TurnAnswer{RoomID: room.ID, PlayerID: player.ID, PairID: "pair1", Turn: 1, Normalized: "chat"}
			So(c.InsertTurnAnswer(ctx, answer), ShouldBeNil)
			answer.Normalized = "chien"
			err := c.InsertTurnAnswer(ctx, answer)

			Convey("Then only the first answer stands", func() {
				So(err, ShouldEqual, syncapi.ErrConflict)
				snap, _ := c.ReadRoomState(ctx, "SALON")
				So(snap.Answers, ShouldHaveLength, 1)
				So(snap.Answers[0].Normalized, ShouldEqual, "chat")
			})

			Convey("But a different turn is accepted", func() {
				answer.Turn = 2
				So(c.InsertTurnAnswer(ctx, answer), ShouldBeNil)
			})
		})

		Convey("When all answers are deleted", func() {
			for i := 1; i <= 3; i++ {
				a := model.TurnAnswer{RoomID: room.ID, PlayerID: uuid.New(), PairID: "pair1", Turn: 1}
				So(c.InsertTurnAnswer(ctx, a), ShouldBeNil)
			}
			So(c.DeleteAllTurnAnswers(ctx, room.ID), ShouldBeNil)

			Convey("Then the room has no answer records", func() {
				snap, _ := c.ReadRoomState(ctx, "SALON")
				So(snap.Answers, ShouldBeEmpty)
			})
		})

		Convey("When a score is upserted piecewise", func() {
			temp, streak := 100, 1
			So(c.UpsertPairScore(ctx, room.ID, "pair1", syncapi.ScoreFields{Temp: &temp, Streak: &streak}), ShouldBeNil)
			banked := 700
			So(c.UpsertPairScore(ctx, room.ID, "pair1", syncapi.ScoreFields{Banked: &banked}), ShouldBeNil)

			Convey("Then untouched fields persist", func() {
				snap, _ := c.ReadRoomState(ctx, "SALON")
				So(snap.Scores, ShouldHaveLength, 1)
				So(snap.Scores[0].Banked, ShouldEqual, 700)
				So(snap.Scores[0].Temp, ShouldEqual, 100)
				So(snap.Scores[0].Streak, ShouldEqual, 1)
			})
		})

		Convey("When records target an unknown room", func() {
			ghost := uuid.New()

			Convey("Then every write reports not found", func() {
				So(c.InsertPlayer(ctx, model.Player{ID: uuid.New(), RoomID: ghost}), ShouldEqual, syncapi.ErrNotFound)
				So(c.InsertTurnAnswer(ctx, model.TurnAnswer{RoomID: ghost}), ShouldEqual, syncapi.ErrNotFound)
				So(c.UpdateRoom(ctx, ghost, syncapi.RoomFields{}), ShouldEqual, syncapi.ErrNotFound)
				So(c.UpsertPairScore(ctx, ghost, "pair1", syncapi.ScoreFields{}), ShouldEqual, syncapi.ErrNotFound)
			})
		})
	})
}

func TestClientChangeFeed(t *testing.T) {
	ctx := context.Background()

	Convey("Given a subscribed room", t, func() {
		c := NewClient()
		room, err := c.CreateRoom(ctx, "SALON")
		So(err, ShouldBeNil)

		sub, err := c.Subscribe(ctx, room.ID)
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("When records mutate", func() {
			So(c.InsertPlayer(ctx, model.Player{ID: uuid.New(), RoomID: room.ID}), ShouldBeNil)
			temp := 1
			So(c.UpsertPairScore(ctx, room.ID, "pair1", syncapi.ScoreFields{Temp: &temp}), ShouldBeNil)

			Convey("Then table-level notifications arrive", func() {
				changes := drain(sub.Changes())
				So(changes, ShouldHaveLength, 2)
				So(changes[0].Table, ShouldEqual, syncapi.TablePlayers)
				So(changes[1].Table, ShouldEqual, syncapi.TableScores)
				for _, ch := range changes {
					So(ch.RoomID, ShouldEqual, room.ID)
				}
			})
		})

		Convey("When mutations hit another room", func() {
			other, err := c.CreateRoom(ctx, "AUTRE")
			So(err, ShouldBeNil)
			So(c.InsertPlayer(ctx, model.Player{ID: uuid.New(), RoomID: other.ID}), ShouldBeNil)

			Convey("Then the feed stays silent", func() {
				So(drain(sub.Changes()), ShouldBeEmpty)
			})
		})

		Convey("When subscribing to an unknown room", func() {
			_, err := c.Subscribe(ctx, uuid.New())

			Convey("Then it is not found", func() {
				So(err, ShouldEqual, syncapi.ErrNotFound)
			})
		})

		Convey("When the client closes", func() {
			So(c.Close(), ShouldBeNil)

			Convey("Then the feed ends and new work is refused", func() {
				_, open := <-sub.Changes()
				So(open, ShouldBeFalse)
				_, err := c.CreateRoom(ctx, "APRES")
				So(err, ShouldEqual, syncapi.ErrClosed)
			})
		})
	})
}

func TestClientPresence(t *testing.T) {
	ctx := context.Background()

	Convey("Given two presence subscribers", t, func() {
		c := NewClient()
		room, err := c.CreateRoom(ctx, "SALON")
		So(err, ShouldBeNil)

		subA, err := c.SubscribePresence(ctx, room.ID)
		So(err, ShouldBeNil)
		defer subA.Close()
		subB, err := c.SubscribePresence(ctx, room.ID)
		So(err, ShouldBeNil)
		defer subB.Close()

		Convey("When a typing signal is published", func() {
			playerID := uuid.New()
			So(c.PublishPresence(ctx, room.ID, playerID, true), ShouldBeNil)

			Convey("Then both subscribers receive it", func() {
				for _, sub := range []syncapi.PresenceSubscription{subA, subB} {
					select {
					case p := <-sub.Updates():
						So(p.PlayerID, ShouldEqual, playerID)
						So(p.IsTyping, ShouldBeTrue)
					case <-time.After(time.Second):
						So("timed out", ShouldBeEmpty)
					}
				}
			})
		})
	})
}
