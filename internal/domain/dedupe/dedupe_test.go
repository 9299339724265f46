package dedupe_test

import (
	"context"
	"sync"
	"testing"

	dedupe "github.com/okian/repute/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, 1)

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, 1)
				seen := d.SeenAndRecord(ctx, 1)

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id is unrecorded after a failure", func() {
				d.SeenAndRecord(ctx, 1)
				d.Unrecord(ctx, 1)

				Convey("Then it can be recorded again", func() {
					So(d.SeenAndRecord(ctx, 1), ShouldBeFalse)
				})
			})
		})

		Convey("When the bounded set is full", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, 1)
			d.SeenAndRecord(ctx, 2)
			d.SeenAndRecord(ctx, 3)

			Convey("Then the oldest id is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, 3), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, 1), ShouldBeFalse)
			})
		})

		Convey("When the set is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := int64(0); i < 1000; i++ {
				d.SeenAndRecord(ctx, i)
			}
			d.Unrecord(ctx, 5)

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 999)
				So(d.SeenAndRecord(ctx, 0), ShouldBeTrue)
			})
		})

		Convey("When many goroutines record the same id", func() {
			d := dedupe.NewInMemoryDeduper()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, 42) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one records it as new", func() {
				So(fresh, ShouldEqual, 1)
			})
		})
	})
}
