package normalize_test

import (
	"testing"

	normalize "github.com/okian/mouton/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAnswer(t *testing.T) {
	Convey("Given raw answers", t, func() {
		Convey("When the answer carries accents", func() {
			Convey("Then accents fold to base letters", func() {
				So(normalize.Answer("Café"), ShouldEqual, "cafe")
				So(normalize.Answer("ÉLÉPHANT"), ShouldEqual, "elephant")
				So(normalize.Answer("niño"), ShouldEqual, "nino")
			})
		})

		Convey("When the answer carries surrounding whitespace", func() {
			Convey("Then it is trimmed", func() {
				So(normalize.Answer("  Chat "), ShouldEqual, "chat")
				So(normalize.Answer("\tchien\n"), ShouldEqual, "chien")
			})
		})

		Convey("When the answer mixes case", func() {
			Convey("Then it lower-cases", func() {
				So(normalize.Answer("MoUtOn"), ShouldEqual, "mouton")
			})
		})

		Convey("When applied twice", func() {
			inputs := []string{"Café", "  Chat ", "ÑANDÚ", "déjà vu  "}

			Convey("Then normalization is idempotent", func() {
				for _, in := range inputs {
					once := normalize.Answer(in)
					So(normalize.Answer(once), ShouldEqual, once)
				}
			})
		})

		Convey("When the answer is empty or only whitespace", func() {
			Convey("Then the canonical form is empty", func() {
				So(normalize.Answer(""), ShouldEqual, "")
				So(normalize.Answer("   "), ShouldEqual, "")
			})
		})

		Convey("When interior whitespace exists", func() {
			Convey("Then it is preserved", func() {
				So(normalize.Answer(" pomme de terre "), ShouldEqual, "pomme de terre")
			})
		})
	})
}

func TestMatch(t *testing.T) {
	Convey("Given pairs of raw answers", t, func() {
		Convey("Then equality is decided on canonical forms", func() {
			So(normalize.Match("Café", "cafe"), ShouldBeTrue)
			So(normalize.Match("  Chat ", "CHAT"), ShouldBeTrue)
			So(normalize.Match("chien", "chat"), ShouldBeFalse)
			So(normalize.Match("", " "), ShouldBeTrue)
		})
	})
}
