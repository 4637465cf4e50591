package period_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/chatrank/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveWeek(t *testing.T) {
	Convey("Given any reference day", t, func() {
		Convey("When resolving the current week", func() {
			for d := 1; d <= 31; d++ {
				ref := date(2024, time.January, d).Add(13 * time.Hour)
				p, err := period.Resolve(period.Week, 0, ref)

				So(err, ShouldBeNil)
				So(p.Start.Weekday(), ShouldEqual, time.Saturday)
				So(p.Days(), ShouldEqual, 7)
				So(p.Start.After(period.Day(ref)), ShouldBeFalse)
				So(p.Contains(ref), ShouldBeTrue)
			}
		})
	})

	Convey("Given a Saturday reference", t, func() {
		ref := date(2024, time.March, 16)

		Convey("Then the week starts on that day", func() {
			p, _ := period.Resolve(period.Week, 0, ref)
			So(p.Start, ShouldEqual, ref)
			So(p.End, ShouldEqual, date(2024, time.March, 22))
		})
	})

	Convey("Given a Friday reference", t, func() {
		ref := date(2024, time.March, 15)

		Convey("Then the week started the previous Saturday", func() {
			p, _ := period.Resolve(period.Week, 0, ref)
			So(p.Start, ShouldEqual, date(2024, time.March, 9))
			So(p.End, ShouldEqual, ref)
		})

		Convey("And offsets step back whole weeks", func() {
			p, _ := period.Resolve(period.Week, 2, ref)
			So(p.Start, ShouldEqual, date(2024, time.February, 24))
			So(p.End, ShouldEqual, date(2024, time.March, 1))
			So(p.Label, ShouldEqual, "Feb 24 - Mar 1, 2024")
		})
	})
}

func TestResolveMonth(t *testing.T) {
	Convey("Given references on different days of March 2024", t, func() {
		for _, d := range []int{1, 15, 31} {
			ref := date(2024, time.March, d)

			Convey("When resolving the previous month from day "+ref.Format("02"), func() {
				p, err := period.Resolve(period.Month, 1, ref)

				Convey("Then it is exactly February", func() {
					So(err, ShouldBeNil)
					So(p.Start, ShouldEqual, date(2024, time.February, 1))
					So(p.End, ShouldEqual, date(2024, time.February, 29))
					So(p.Label, ShouldEqual, "February 2024")
				})
			})
		}
	})

	Convey("Given an offset that crosses a year", t, func() {
		p, err := period.Resolve(period.Month, 3, date(2024, time.January, 31))

		Convey("Then the month wraps into the previous year", func() {
			So(err, ShouldBeNil)
			So(p.Start, ShouldEqual, date(2023, time.October, 1))
			So(p.End, ShouldEqual, date(2023, time.October, 31))
		})
	})
}

func TestResolveQuarter(t *testing.T) {
	Convey("Given a reference in May", t, func() {
		ref := date(2024, time.May, 20)

		Convey("When resolving the current quarter", func() {
			p, _ := period.Resolve(period.Quarter, 0, ref)
			So(p.Start, ShouldEqual, date(2024, time.April, 1))
			So(p.End, ShouldEqual, date(2024, time.June, 30))
			So(p.Label, ShouldEqual, "Q2 2024")
		})

		Convey("When resolving two quarters back", func() {
			p, _ := period.Resolve(period.Quarter, 2, ref)
			So(p.Start, ShouldEqual, date(2023, time.October, 1))
			So(p.End, ShouldEqual, date(2023, time.December, 31))
			So(p.Label, ShouldEqual, "Q4 2023")
		})
	})
}

func TestResolveErrors(t *testing.T) {
	Convey("Given invalid inputs", t, func() {
		ref := date(2024, time.May, 20)

		Convey("When the kind is unknown", func() {
			_, err := period.Resolve(period.Kind(0), 0, ref)
			So(errors.Is(err, period.ErrUnknownKind), ShouldBeTrue)
		})

		Convey("When the offset is negative", func() {
			_, err := period.Resolve(period.Month, -1, ref)
			So(errors.Is(err, period.ErrNegativeOffset), ShouldBeTrue)
		})

		Convey("When the month is out of range", func() {
			_, err := period.ForMonth(13, 2024)
			So(errors.Is(err, period.ErrInvalidMonth), ShouldBeTrue)
		})
	})
}

func TestResolveSelector(t *testing.T) {
	Convey("Given a selector with both an offset and a specific month", t, func() {
		sel := period.Selector{
			Kind:   period.Week,
			Offset: 3,
			Month:  &period.MonthYear{Month: time.July, Year: 2023},
		}

		Convey("Then the specific month wins", func() {
			p, err := period.ResolveSelector(sel, date(2024, time.May, 20))
			So(err, ShouldBeNil)
			So(p.Kind, ShouldEqual, period.Month)
			So(p.Start, ShouldEqual, date(2023, time.July, 1))
			So(p.End, ShouldEqual, date(2023, time.July, 31))
		})
	})

	Convey("Given a selector without a month", t, func() {
		sel := period.Selector{Kind: period.Month, Offset: 0}
		p, err := period.ResolveSelector(sel, date(2024, time.May, 20))
		So(err, ShouldBeNil)
		So(p.Label, ShouldEqual, "May 2024")
	})
}

func TestParseKind(t *testing.T) {
	Convey("Given timeframe strings", t, func() {
		for in, want := range map[string]period.Kind{"week": period.Week, "Monthly": period.Month, " quarter ": period.Quarter} {
			k, err := period.ParseKind(in)
			So(err, ShouldBeNil)
			So(k, ShouldEqual, want)
		}
		_, err := period.ParseKind("year")
		So(errors.Is(err, period.ErrUnknownKind), ShouldBeTrue)
		So(period.Week.String(), ShouldEqual, "week")
	})
}
