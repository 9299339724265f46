package classifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/adapters/cache"
	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/classifier/classifiertest"
)

func TestCachedClassifier(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cached classifier over a static one", t, func() {
		inner := classifiertest.New()
		inner.Extractions[7] = classifier.Extraction{Promise: "Cut waiting lists", Type: "policy"}
		store := cache.NewMemory(16, time.Minute)
		c := classifier.NewCached(inner, store)

		Convey("When the same event is extracted twice", func() {
			first, err1 := c.ExtractPromise(ctx, classifier.ExtractionRequest{EventID: 7})
			second, err2 := c.ExtractPromise(ctx, classifier.ExtractionRequest{EventID: 7})

			Convey("Then the inner classifier is called once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(inner.ExtractCalls, ShouldResemble, []int64{7})
				So(store.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the inner classifier fails", func() {
			inner.ExtractErr = classifier.ErrUnavailable
			_, err := c.ExtractPromise(ctx, classifier.ExtractionRequest{EventID: 8})

			Convey("Then nothing is cached", func() {
				So(errors.Is(err, classifier.ErrUnavailable), ShouldBeTrue)
				So(store.Len(), ShouldEqual, 0)
			})
		})

		Convey("When verifying", func() {
			inner.DefaultVerdict = classifier.Verdict{Delivered: true, Confidence: 0.9}
			_, _ = c.VerifyPromise(ctx, classifier.VerificationRequest{PromiseID: 1})
			_, _ = c.VerifyPromise(ctx, classifier.VerificationRequest{PromiseID: 1})

			Convey("Then every call reaches the inner classifier", func() {
				So(inner.Verified(), ShouldEqual, 2)
			})
		})
	})
}
