package testevents

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
)

var teams = []string{"red", "blue", "green"}

// Generate returns cfg.NumEvents events spread over cfg.Month, followed by
// cfg.Duplicates resubmissions of earlier events. Roughly one bonus in
// four is dated off the month start and must not count.
func Generate(cfg Config) ([]Event, error) {
	p, err := monthOf(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Chatters < 1 || cfg.NumEvents < 1 {
		return nil, fmt.Errorf("need at least one chatter and one event, got %d and %d", cfg.Chatters, cfg.NumEvents)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	namespace := uuid.NewSHA1(uuid.NameSpaceOID, []byte("chatrank-testevents"))
	days := p.Days()

	events := make([]Event, 0, cfg.NumEvents+cfg.Duplicates)
	for i := range cfg.NumEvents {
		c := rng.IntN(cfg.Chatters)
		e := Event{
			EventID:    uuid.NewSHA1(namespace, []byte(strconv.FormatUint(cfg.Seed, 10)+"/"+strconv.Itoa(i))).String(),
			TeamID:     teams[c%len(teams)],
			WorkerID:   fmt.Sprintf("chatter-%03d", c),
			WorkerName: fmt.Sprintf("Chatter %03d", c),
		}
		day := p.Start.AddDate(0, 0, rng.IntN(days))

		switch n := rng.IntN(10); {
		case n < 6:
			e.Kind = model.KindSale.String()
			e.Amount = cents(20 + rng.Float64()*480)
			e.Rate = float64(5+rng.IntN(16)) / 100
		case n < 9:
			e.Kind = model.KindHours.String()
			e.Amount = float64(1+rng.IntN(16)) / 2
			e.Rate = float64(10 + rng.IntN(21))
		default:
			e.Kind = model.KindBonus.String()
			e.Amount = float64(25 * (1 + rng.IntN(8)))
			day = p.Start
			if rng.IntN(4) == 0 {
				day = p.Start.AddDate(0, 0, 1+rng.IntN(days-1))
			}
		}
		e.Date = period.FormatDate(day)
		events = append(events, e)
	}

	for range cfg.Duplicates {
		events = append(events, events[rng.IntN(cfg.NumEvents)])
	}
	return events, nil
}

// ToModel converts a wire event to the domain event the server stores.
func (e Event) ToModel() (model.Event, error) {
	kind, err := model.ParseEventKind(e.Kind)
	if err != nil {
		return model.Event{}, err
	}
	date, err := period.ParseDate(e.Date)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		EventID: e.EventID,
		Kind:    kind,
		TeamID:  e.TeamID,
		Worker:  model.Worker{ID: e.WorkerID, Name: e.WorkerName},
		Date:    date,
		Amount:  e.Amount,
		Rate:    e.Rate,
	}, nil
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

// monthOf returns the period the generated events target.
func monthOf(cfg Config) (period.Period, error) {
	return period.ForMonth(cfg.Month.Month, cfg.Month.Year)
}
