package election_test

import (
	"testing"

	"github.com/google/uuid"
	election "github.com/okian/mouton/internal/domain/election"
	"github.com/okian/mouton/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLeader(t *testing.T) {
	Convey("Given a pair of players", t, func() {
		first := uuid.MustParse("0a000000-0000-0000-0000-000000000000")
		second := uuid.MustParse("0b000000-0000-0000-0000-000000000000")
		pair := []model.Player{
			{ID: second, Username: "bob"},
			{ID: first, Username: "alice"},
		}

		Convey("When electing a leader", func() {
			leader, ok := election.Leader(pair)

			Convey("Then the lexicographically first id wins", func() {
				So(ok, ShouldBeTrue)
				So(leader, ShouldEqual, first)
			})

			Convey("And the result is independent of slice order", func() {
				reversed := []model.Player{pair[1], pair[0]}
				leader2, ok2 := election.Leader(reversed)
				So(ok2, ShouldBeTrue)
				So(leader2, ShouldEqual, leader)
			})

			Convey("And repeated elections agree", func() {
				for i := 0; i < 10; i++ {
					again, _ := election.Leader(pair)
					So(again, ShouldEqual, leader)
				}
			})
		})

		Convey("When checking leadership per player", func() {
			Convey("Then exactly one member leads", func() {
				So(election.IsLeader(pair, first), ShouldBeTrue)
				So(election.IsLeader(pair, second), ShouldBeFalse)
			})
		})
	})

	Convey("Given no players", t, func() {
		Convey("Then no leader exists", func() {
			_, ok := election.Leader(nil)
			So(ok, ShouldBeFalse)
			So(election.IsLeader(nil, uuid.New()), ShouldBeFalse)
		})
	})
}
