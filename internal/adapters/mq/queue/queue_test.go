package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/mouton/internal/adapters/mq/queue"
	syncapi "github.com/okian/mouton/internal/adapters/sync"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a new queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		roomID := uuid.New()

		Convey("When enqueuing within capacity", func() {
			ok := q.Enqueue(context.Background(), queue.Change{RoomID: roomID, Table: syncapi.TableAnswers})

			Convey("Then the change is accepted", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(context.Background()), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(context.Background(), queue.Change{RoomID: roomID}), ShouldBeTrue)
			So(q.Enqueue(context.Background(), queue.Change{RoomID: roomID}), ShouldBeTrue)
			ok := q.Enqueue(context.Background(), queue.Change{RoomID: roomID})

			Convey("Then the overflow change is shed, not blocked on", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(context.Background()), ShouldEqual, 2)
			})
		})

		Convey("When dequeuing", func() {
			want := queue.Change{RoomID: roomID, Table: syncapi.TableScores}
			So(q.Enqueue(context.Background(), want), ShouldBeTrue)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			got := <-q.Dequeue(ctx)

			Convey("Then changes come back in order", func() {
				So(got, ShouldResemble, want)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are rejected and the dequeue channel drains closed", func() {
				So(q.Enqueue(context.Background(), queue.Change{RoomID: roomID}), ShouldBeFalse)
				_, open := <-q.Dequeue(context.Background())
				So(open, ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
