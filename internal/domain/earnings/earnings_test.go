package earnings_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var alice = model.Worker{ID: "u-1", Name: "A"}

// week of 2024-01-01 .. 2024-01-07, built explicitly.
var jan1Week = period.Period{Kind: period.Week, Start: day(2024, 1, 1), End: day(2024, 1, 7)}

func TestAggregate(t *testing.T) {
	Convey("Given one worker with a sale, hours and a bonus", t, func() {
		sales := []model.Sale{{EventID: "s1", Worker: alice, Date: day(2024, 1, 2), Gross: 1000, CommissionRate: 0.1}}
		hours := []model.Hours{{EventID: "h1", Worker: alice, Date: day(2024, 1, 3), Hours: 10, HourlyRate: 15}}
		bonuses := []model.Bonus{{EventID: "b1", Worker: alice, PeriodStart: day(2024, 1, 1), Amount: 50}}

		Convey("When aggregating the matching week", func() {
			totals := earnings.Aggregate(jan1Week, sales, hours, bonuses)

			Convey("Then the contributions are summed", func() {
				So(totals, ShouldHaveLength, 1)
				So(totals["A"].Equal(dec("300")), ShouldBeTrue)
				So(totals.Sum().Equal(dec("300")), ShouldBeTrue)
			})
		})

		Convey("When aggregating a month that overlaps but starts elsewhere", func() {
			dec2023 := period.Period{Kind: period.Month, Start: day(2023, 12, 31), End: day(2024, 1, 30)}
			totals := earnings.Aggregate(dec2023, sales, hours, bonuses)

			Convey("Then the bonus is not attributed", func() {
				So(totals["A"].Equal(dec("250")), ShouldBeTrue)
			})
		})
	})

	Convey("Given records on the period boundaries", t, func() {
		sales := []model.Sale{
			{Worker: alice, Date: day(2023, 12, 31), Gross: 100, CommissionRate: 1},
			{Worker: alice, Date: day(2024, 1, 1), Gross: 10, CommissionRate: 1},
			{Worker: alice, Date: day(2024, 1, 7).Add(23 * time.Hour), Gross: 1, CommissionRate: 1},
			{Worker: alice, Date: day(2024, 1, 8), Gross: 1000, CommissionRate: 1},
		}

		Convey("When aggregating", func() {
			totals := earnings.Aggregate(jan1Week, sales, nil, nil)

			Convey("Then start and end days are inclusive", func() {
				So(totals["A"].Equal(dec("11")), ShouldBeTrue)
			})
		})
	})

	Convey("Given no records at all", t, func() {
		totals := earnings.Aggregate(jan1Week, nil, nil, nil)

		Convey("Then the result is empty, not an error", func() {
			So(totals, ShouldBeEmpty)
			So(totals.Sum().IsZero(), ShouldBeTrue)
		})
	})

	Convey("Given workers with records only outside the period", t, func() {
		bob := model.Worker{Name: "B"}
		sales := []model.Sale{{Worker: bob, Date: day(2024, 2, 1), Gross: 5, CommissionRate: 1}}
		totals := earnings.Aggregate(jan1Week, sales, nil, nil)

		Convey("Then they are absent rather than zero", func() {
			_, ok := totals["B"]
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given records in a different order", t, func() {
		a := model.Sale{Worker: alice, Date: day(2024, 1, 2), Gross: 0.1, CommissionRate: 0.3}
		b := model.Sale{Worker: alice, Date: day(2024, 1, 3), Gross: 0.2, CommissionRate: 0.7}
		c := model.Hours{Worker: alice, Date: day(2024, 1, 4), Hours: 1.5, HourlyRate: 12.25}

		first := earnings.Aggregate(jan1Week, []model.Sale{a, b}, []model.Hours{c}, nil)
		second := earnings.Aggregate(jan1Week, []model.Sale{b, a}, []model.Hours{c}, nil)

		Convey("Then the totals are identical", func() {
			So(first["A"].Equal(second["A"]), ShouldBeTrue)
			So(first["A"].Equal(dec("18.545")), ShouldBeTrue)
		})
	})
}

func TestAggregateCoercion(t *testing.T) {
	Convey("Given malformed numeric fields", t, func() {
		bob := model.Worker{Name: "B"}
		sales := []model.Sale{
			{EventID: "bad-sale", Worker: bob, Date: day(2024, 1, 2), Gross: math.NaN(), CommissionRate: 0.1},
			{EventID: "ok-sale", Worker: alice, Date: day(2024, 1, 2), Gross: 100, CommissionRate: 0.5},
		}
		hours := []model.Hours{{EventID: "bad-hours", Worker: alice, Date: day(2024, 1, 2), Hours: 2, HourlyRate: math.Inf(1)}}
		bonuses := []model.Bonus{{EventID: "bad-bonus", Worker: alice, PeriodStart: day(2024, 1, 1), Amount: math.NaN()}}

		Convey("When aggregating", func() {
			totals, coerced := earnings.NewAggregator().Aggregate(jan1Week, sales, hours, bonuses)

			Convey("Then bad records contribute zero without poisoning the rest", func() {
				So(totals["A"].Equal(dec("50")), ShouldBeTrue)
				So(totals["B"].IsZero(), ShouldBeTrue)
				So(totals, ShouldHaveLength, 2)
			})

			Convey("And each coercion is reported", func() {
				So(coerced, ShouldHaveLength, 3)
				So(coerced[0].EventID, ShouldEqual, "bad-sale")
				So(coerced[0].Field, ShouldEqual, "gross")
				So(coerced[1].Field, ShouldEqual, "hourly_rate")
				So(coerced[2].Source, ShouldEqual, "bonus")
			})
		})
	})
}

func TestKeyPolicy(t *testing.T) {
	Convey("Given two workers sharing a display name", t, func() {
		one := model.Worker{ID: "u-1", Name: "Sam"}
		two := model.Worker{ID: "u-2", Name: "Sam"}
		sales := []model.Sale{
			{Worker: one, Date: day(2024, 1, 2), Gross: 10, CommissionRate: 1},
			{Worker: two, Date: day(2024, 1, 2), Gross: 20, CommissionRate: 1},
		}

		Convey("When keyed by name", func() {
			totals, _ := earnings.NewAggregator(earnings.WithKeyPolicy(earnings.KeyByName)).Aggregate(jan1Week, sales, nil, nil)

			Convey("Then they are merged", func() {
				So(totals, ShouldHaveLength, 1)
				So(totals["Sam"].Equal(dec("30")), ShouldBeTrue)
			})
		})

		Convey("When keyed by id", func() {
			totals, _ := earnings.NewAggregator(earnings.WithKeyPolicy(earnings.KeyByID)).Aggregate(jan1Week, sales, nil, nil)

			Convey("Then they stay distinct", func() {
				So(totals, ShouldHaveLength, 2)
				So(totals["u-1"].Equal(dec("10")), ShouldBeTrue)
				So(totals["u-2"].Equal(dec("20")), ShouldBeTrue)
			})
		})
	})

	Convey("Given policy names", t, func() {
		p, err := earnings.ParseKeyPolicy("ID")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, earnings.KeyByID)

		_, err = earnings.ParseKeyPolicy("email")
		So(errors.Is(err, earnings.ErrUnknownKeyPolicy), ShouldBeTrue)
	})

	Convey("Given a worker with only an id", t, func() {
		So(earnings.KeyByName.Key(model.Worker{ID: "u-9"}), ShouldEqual, "u-9")
		So(earnings.KeyByID.Key(model.Worker{Name: "Zed"}), ShouldEqual, "Zed")
	})
}
