package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/chatrank/internal/adapters/repository"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(id, team, name string, date time.Time, gross, rate float64) model.Event {
	return model.Event{EventID: id, Kind: model.KindSale, TeamID: team, Worker: model.Worker{ID: "id-" + name, Name: name}, Date: date, Amount: gross, Rate: rate}
}

func hours(id, team, name string, date time.Time, h, rate float64) model.Event {
	return model.Event{EventID: id, Kind: model.KindHours, TeamID: team, Worker: model.Worker{ID: "id-" + name, Name: name}, Date: date, Amount: h, Rate: rate}
}

func bonus(id, team, name string, start time.Time, amount float64) model.Event {
	return model.Event{EventID: id, Kind: model.KindBonus, TeamID: team, Worker: model.Worker{ID: "id-" + name, Name: name}, Date: start, Amount: amount}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	march, _ := period.ForMonth(time.March, 2024)

	Convey("Given a memory store with events across teams and months", t, func() {
		s := repository.NewMemoryStore()
		for _, e := range []model.Event{
			sale("s1", "red", "alice", day(2024, 3, 1), 100, 0.1),
			sale("s2", "blue", "bob", day(2024, 3, 31), 200, 0.1),
			sale("s3", "red", "alice", day(2024, 4, 1), 999, 0.1),
			hours("h1", "red", "alice", day(2024, 3, 10), 8, 12),
			bonus("b1", "red", "alice", day(2024, 3, 1), 50),
			bonus("b2", "red", "alice", day(2024, 3, 2), 75),
		} {
			So(s.Record(ctx, e), ShouldBeNil)
		}

		Convey("When fetching March for every team", func() {
			sales, err := s.FetchSales(ctx, march, "")
			So(err, ShouldBeNil)
			hrs, _ := s.FetchHours(ctx, march, "")
			bon, _ := s.FetchBonuses(ctx, march.Start, "")

			Convey("Then only in-period records are returned", func() {
				So(sales, ShouldHaveLength, 2)
				So(hrs, ShouldHaveLength, 1)
				So(bon, ShouldHaveLength, 1)
				So(bon[0].EventID, ShouldEqual, "b1")
			})
		})

		Convey("When fetching for one team", func() {
			sales, err := s.FetchSales(ctx, march, "blue")

			Convey("Then other teams are excluded", func() {
				So(err, ShouldBeNil)
				So(sales, ShouldHaveLength, 1)
				So(sales[0].Worker.Name, ShouldEqual, "bob")
			})
		})

		Convey("When an event id is recorded twice", func() {
			So(s.Record(ctx, sale("s1", "red", "alice", day(2024, 3, 5), 5000, 1)), ShouldBeNil)
			n, _ := s.Count(ctx)
			sales, _ := s.FetchSales(ctx, march, "red")

			Convey("Then the first copy wins", func() {
				So(n, ShouldEqual, 6)
				So(sales, ShouldHaveLength, 1)
				So(sales[0].Gross, ShouldEqual, 100)
			})
		})

		Convey("When an invalid event is recorded", func() {
			err := s.Record(ctx, model.Event{EventID: "x", Kind: model.KindSale, Date: day(2024, 3, 1)})
			So(errors.Is(err, repository.ErrInvalidEvent), ShouldBeTrue)
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			_, err := s.FetchSales(ctx, march, "")
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			So(errors.Is(s.Record(ctx, sale("s9", "", "z", day(2024, 3, 1), 1, 1)), repository.ErrClosed), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.FetchHours(cctx, march, "")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given the memory path", t, func() {
		s, err := repository.Open(repository.MemoryPath)
		So(err, ShouldBeNil)
		_, ok := s.(*repository.MemoryStore)
		So(ok, ShouldBeTrue)
	})
}
