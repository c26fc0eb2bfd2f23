package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/mouton/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When recording a new key", func() {
			seen := d.SeenAndRecord(context.Background(), "room/pair1/1")

			Convey("Then it reports not seen and records it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same key is seen afterwards", func() {
				So(d.SeenAndRecord(context.Background(), "room/pair1/1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording a claimed key", func() {
			d.SeenAndRecord(context.Background(), "room/pair1/2")
			d.Unrecord(context.Background(), "room/pair1/2")

			Convey("Then the key can be claimed again", func() {
				So(d.SeenAndRecord(context.Background(), "room/pair1/2"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			d.Unrecord(context.Background(), "never-seen")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording beyond capacity", func() {
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(context.Background(), fmt.Sprintf("key-%d", i))
			}

			Convey("Then the oldest keys are evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(context.Background(), "key-4"), ShouldBeTrue)
				So(d.SeenAndRecord(context.Background(), "key-0"), ShouldBeFalse)
			})
		})
	})

	Convey("Given concurrent claimants of one key", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When many goroutines race on SeenAndRecord", func() {
			const n = 64
			var wg sync.WaitGroup
			var mu sync.Mutex
			winners := 0

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(context.Background(), "contested") {
						mu.Lock()
						winners++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one claim succeeds", func() {
				So(winners, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
