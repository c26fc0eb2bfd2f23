package presence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker(t *testing.T) {
	Convey("Given a tracker with a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		tracker := NewTracker(WithClock(clock), WithTTL(5*time.Second))
		alice := uuid.New()
		bob := uuid.New()

		Convey("When a player starts typing", func() {
			tracker.Observe(alice, true)

			Convey("Then they are reported as typing", func() {
				So(tracker.IsTyping(alice), ShouldBeTrue)
				So(tracker.Typing(), ShouldContain, alice)
			})

			Convey("And other players are not", func() {
				So(tracker.IsTyping(bob), ShouldBeFalse)
			})
		})

		Convey("When a later signal contradicts an earlier one", func() {
			tracker.Observe(alice, true)
			tracker.Observe(alice, false)

			Convey("Then the last write wins", func() {
				So(tracker.IsTyping(alice), ShouldBeFalse)
			})
		})

		Convey("When the TTL elapses without a refresh", func() {
			tracker.Observe(alice, true)
			clock.Advance(6 * time.Second)

			Convey("Then the signal reads as not typing", func() {
				So(tracker.IsTyping(alice), ShouldBeFalse)
				So(tracker.Typing(), ShouldBeEmpty)
			})

			Convey("And pruning removes the stale entry", func() {
				tracker.Prune()
				So(tracker.entries, ShouldBeEmpty)
			})
		})

		Convey("When a signal is refreshed before expiry", func() {
			tracker.Observe(alice, true)
			clock.Advance(4 * time.Second)
			tracker.Observe(alice, true)
			clock.Advance(4 * time.Second)

			Convey("Then it stays fresh", func() {
				So(tracker.IsTyping(alice), ShouldBeTrue)
			})
		})

		Convey("When a player is forgotten", func() {
			tracker.Observe(alice, true)
			tracker.Forget(alice)

			Convey("Then no trace remains", func() {
				So(tracker.IsTyping(alice), ShouldBeFalse)
				So(tracker.entries, ShouldBeEmpty)
			})
		})
	})
}
