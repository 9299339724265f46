package scoring_test

import (
	"math"
	"testing"

	scoring "github.com/okian/repute/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSoftUpdater_Bounds(t *testing.T) {
	Convey("Given a default soft updater", t, func() {
		u := scoring.NewSoftUpdater()

		Convey("When deltas are extreme", func() {
			deltas := []float64{-1e9, -1000, -5, -0.01, 0, 0.01, 5, 1000, 1e9, math.Inf(1), math.Inf(-1)}
			currents := []float64{0, 15, 30, 50, 70, 95, 100, -20, 180}

			Convey("Then every result stays within [15, 95]", func() {
				for _, c := range currents {
					for _, d := range deltas {
						got := u.Update(c, d)
						So(got, ShouldBeGreaterThanOrEqualTo, 15)
						So(got, ShouldBeLessThanOrEqualTo, 95)
					}
				}
			})
		})

		Convey("When the current score is not finite", func() {
			Convey("Then it is treated as the midpoint", func() {
				So(u.Update(math.NaN(), 0), ShouldEqual, 50)
				So(u.Update(math.Inf(1), 0), ShouldEqual, 50)
				So(u.Update(math.NaN(), 2), ShouldEqual, u.Update(50, 2))
			})
		})

		Convey("When the delta is NaN", func() {
			Convey("Then it behaves as a zero delta", func() {
				So(u.Update(60, math.NaN()), ShouldEqual, u.Update(60, 0))
			})
		})

		Convey("Then the seed is the midpoint", func() {
			So(u.Seed(), ShouldEqual, 50)
			So(u.Midpoint(), ShouldEqual, 50)
		})
	})
}

func TestSoftUpdater_Monotonic(t *testing.T) {
	Convey("Given a default soft updater", t, func() {
		u := scoring.NewSoftUpdater()

		Convey("When delta increases for a fixed score", func() {
			Convey("Then the result strictly increases inside the open interval", func() {
				prev := u.Update(50, -5)
				for d := -4.0; d <= 5; d++ {
					got := u.Update(50, d)
					So(got, ShouldBeGreaterThan, prev)
					prev = got
				}
			})
		})

		Convey("When the score increases for a fixed delta", func() {
			Convey("Then the result strictly increases inside the open interval", func() {
				prev := u.Update(20, 1)
				for c := 25.0; c <= 85; c += 5 {
					got := u.Update(c, 1)
					So(got, ShouldBeGreaterThan, prev)
					prev = got
				}
			})
		})
	})
}

func TestSoftUpdater_Shape(t *testing.T) {
	Convey("Given a default soft updater", t, func() {
		u := scoring.NewSoftUpdater()

		Convey("Then a zero delta pulls toward the midpoint", func() {
			So(u.Update(50, 0), ShouldEqual, 50)
			So(u.Update(80, 0), ShouldEqual, 79.4)
			So(u.Update(20, 0), ShouldEqual, 20.6)
		})

		Convey("Then a positive delta from the midpoint moves up by a bounded step", func() {
			// logit(0.5)=0, z=0.15, sigmoid(0.15)=0.53743 -> 53.74 -> shrunk 53.67
			So(u.Update(50, 1), ShouldAlmostEqual, 53.67, 0.01)
		})

		Convey("Then the effect of a delta diminishes near the bounds", func() {
			center := u.Update(50, 2) - 50
			edge := u.Update(90, 2) - u.Update(90, 0)
			So(edge, ShouldBeLessThan, center)
		})

		Convey("Then results are rounded to two decimals", func() {
			got := u.Update(61.234, 0.777)
			So(math.Abs(got*100-math.Round(got*100)), ShouldBeLessThan, 1e-9)
		})
	})

	Convey("Given custom options", t, func() {
		u := scoring.NewSoftUpdater(
			scoring.WithBounds(10, 90),
			scoring.WithLatentScale(1),
			scoring.WithShrinkage(0.5),
			scoring.WithEpsilon(0.01),
			scoring.WithDisplayMax(100),
		)

		Convey("Then bounds are honored", func() {
			floor, ceiling := u.Bounds()
			So(floor, ShouldEqual, 10)
			So(ceiling, ShouldEqual, 90)
			So(u.Update(50, 1e6), ShouldBeLessThanOrEqualTo, 90)
		})

		Convey("Then invalid options are ignored", func() {
			v := scoring.NewSoftUpdater(scoring.WithBounds(90, 10), scoring.WithShrinkage(1.5))
			floor, ceiling := v.Bounds()
			So(floor, ShouldEqual, 15)
			So(ceiling, ShouldEqual, 95)
			So(v.Update(80, 0), ShouldEqual, 79.4)
		})
	})
}
