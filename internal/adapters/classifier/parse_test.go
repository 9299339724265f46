package classifier

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/repute/internal/domain/model"
)

func TestParseExtraction(t *testing.T) {
	Convey("Given extraction replies", t, func() {
		Convey("When the reply is wrapped in a json fence", func() {
			raw := "Sure:\n```json\n{\"promise\": \" Build 500 homes \", \"type\": \"Infrastructure\", \"metrics\": {\"homes\": 500}}\n```"
			out, err := ParseExtraction(raw)

			Convey("Then the body is decoded and normalized", func() {
				So(err, ShouldBeNil)
				So(out.Promise, ShouldEqual, "Build 500 homes")
				So(out.Type, ShouldEqual, model.PromiseTypeProject)
				So(out.Metrics["homes"], ShouldEqual, "500")
			})
		})

		Convey("When the type is unknown", func() {
			out, err := ParseExtraction(`{"promise":"x","type":"vibes"}`)
			So(err, ShouldBeNil)
			So(out.Type, ShouldEqual, model.PromiseTypeOther)
		})

		Convey("When the promise is empty", func() {
			_, err := ParseExtraction(`{"promise":"  ","type":"policy"}`)
			So(errors.Is(err, ErrUnparseable), ShouldBeTrue)
		})

		Convey("When the reply is not json", func() {
			_, err := ParseExtraction("I could not find a promise.")
			So(errors.Is(err, ErrUnparseable), ShouldBeTrue)
		})
	})
}

func TestParseVerdict(t *testing.T) {
	Convey("Given verification replies", t, func() {
		Convey("When confidence is a percentage", func() {
			v, err := ParseVerdict("```\n{\"delivered\": true, \"confidence\": 85, \"sources\": [\"a\"]}\n```")
			So(err, ShouldBeNil)
			So(v.Delivered, ShouldBeTrue)
			So(v.Confidence, ShouldAlmostEqual, 0.85)
			So(v.Sources, ShouldResemble, []string{"a"})
			So(v.Status(), ShouldEqual, model.StatusDelivered)
		})

		Convey("When confidence is missing", func() {
			v, err := ParseVerdict(`{"delivered": false, "evidence": " nothing found "}`)
			So(err, ShouldBeNil)
			So(v.Confidence, ShouldEqual, 0.5)
			So(v.Evidence, ShouldEqual, "nothing found")
			So(v.Status(), ShouldEqual, model.StatusFailed)
		})

		Convey("When both delivered and partial are set", func() {
			v, err := ParseVerdict(`{"delivered": true, "partial": true}`)
			So(err, ShouldBeNil)
			So(v.Status(), ShouldEqual, model.StatusPartial)
		})

		Convey("When delivered is absent", func() {
			_, err := ParseVerdict(`{"partial": true}`)
			So(errors.Is(err, ErrUnparseable), ShouldBeTrue)
		})
	})
}

func TestNormalizeConfidence(t *testing.T) {
	Convey("Confidence is mapped into [0,1]", t, func() {
		So(NormalizeConfidence(0.7), ShouldEqual, 0.7)
		So(NormalizeConfidence(70), ShouldAlmostEqual, 0.7)
		So(NormalizeConfidence(250), ShouldEqual, 1)
		So(NormalizeConfidence(-3), ShouldEqual, 0)
	})
}
