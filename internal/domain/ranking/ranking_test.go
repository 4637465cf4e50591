package ranking_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/okian/chatrank/internal/domain/ranking"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func totalsOf(pairs ...any) earnings.Totals {
	t := make(earnings.Totals)
	for i := 0; i < len(pairs); i += 2 {
		t[pairs[i].(string)] = decimal.RequireFromString(pairs[i+1].(string))
	}
	return t
}

func TestRank(t *testing.T) {
	Convey("Given earnings for several chatters", t, func() {
		totals := totalsOf("carol", "120", "alice", "300", "bob", "120", "dave", "15.5")

		Convey("When ranking", func() {
			board := ranking.Rank(totals)

			Convey("Then entries are ordered by earnings with name tie-break", func() {
				So(board.Entries, ShouldHaveLength, 4)
				names := []string{}
				for _, e := range board.Entries {
					names = append(names, e.Worker)
				}
				So(names, ShouldResemble, []string{"alice", "bob", "carol", "dave"})
			})

			Convey("And ranks are positional and contiguous", func() {
				for i, e := range board.Entries {
					So(e.Rank, ShouldEqual, i+1)
				}
				bob, _ := board.RankOf("bob")
				carol, _ := board.RankOf("carol")
				So(bob, ShouldEqual, 2)
				So(carol, ShouldEqual, 3)
			})

			Convey("And summary statistics are consistent", func() {
				sum := decimal.Zero
				for _, e := range board.Entries {
					sum = sum.Add(e.Earnings)
				}
				So(board.Total.Equal(sum), ShouldBeTrue)
				So(board.Total.Equal(decimal.RequireFromString("555.5")), ShouldBeTrue)
				So(board.Active, ShouldEqual, len(board.Entries))
				So(board.Average.Equal(decimal.RequireFromString("138.875")), ShouldBeTrue)
			})
		})

		Convey("When ranking twice", func() {
			first := ranking.Rank(totals)
			second := ranking.Rank(totals)

			Convey("Then the entries are identical", func() {
				So(second.Entries, ShouldResemble, first.Entries)
			})
		})
	})

	Convey("Given no earnings", t, func() {
		board := ranking.Rank(earnings.Totals{})

		Convey("Then the board is empty with a zero average", func() {
			So(board.Entries, ShouldBeEmpty)
			So(board.Active, ShouldEqual, 0)
			So(board.Total.IsZero(), ShouldBeTrue)
			So(board.Average.IsZero(), ShouldBeTrue)
		})

		Convey("And unknown chatters get the sentinel rank", func() {
			So(board.RankOrSentinel("ghost"), ShouldEqual, 1)
		})
	})

	Convey("Given a single chatter", t, func() {
		board := ranking.Rank(totalsOf("A", "300"))

		Convey("Then it is ranked first and the average equals its earnings", func() {
			r, ok := board.RankOf("A")
			So(ok, ShouldBeTrue)
			So(r, ShouldEqual, 1)
			So(board.Active, ShouldEqual, 1)
			So(board.Average.Equal(decimal.NewFromInt(300)), ShouldBeTrue)
		})
	})

	Convey("Given many tied chatters", t, func() {
		totals := make(earnings.Totals)
		for i := 9; i >= 0; i-- {
			totals[fmt.Sprintf("w%02d", i)] = decimal.NewFromInt(7)
		}
		board := ranking.Rank(totals)

		Convey("Then the smaller identity always ranks first", func() {
			for i, e := range board.Entries {
				So(e.Worker, ShouldEqual, fmt.Sprintf("w%02d", i))
				So(e.Rank, ShouldEqual, i+1)
			}
		})
	})
}

func TestBoardLookup(t *testing.T) {
	Convey("Given a ranked board", t, func() {
		board := ranking.Rank(totalsOf("alice", "10", "bob", "20"))

		Convey("When looking up a ranked chatter", func() {
			e, err := board.Lookup("alice")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			So(e.Earnings.Equal(decimal.NewFromInt(10)), ShouldBeTrue)
		})

		Convey("When looking up an absent chatter", func() {
			_, err := board.Lookup("zoe")
			_, ok := board.RankOf("zoe")
			So(errors.Is(err, ranking.ErrNotFound), ShouldBeTrue)
			So(ok, ShouldBeFalse)
			So(board.RankOrSentinel("zoe"), ShouldEqual, 3)
		})

		Convey("When taking the top entries", func() {
			So(board.Top(1), ShouldHaveLength, 1)
			So(board.Top(1)[0].Worker, ShouldEqual, "bob")
			So(board.Top(0), ShouldHaveLength, 2)
			So(board.Top(10), ShouldHaveLength, 2)
		})
	})
}
