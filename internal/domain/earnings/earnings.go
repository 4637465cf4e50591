// Package earnings aggregates raw income records into per-worker totals for
// one period.
package earnings

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Totals maps a worker key to its total earnings in a period. Workers without
// any qualifying record are absent.
type Totals map[string]decimal.Decimal

// Sum returns the sum of all totals.
func (t Totals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t {
		sum = sum.Add(v)
	}
	return sum
}

// KeyPolicy decides which worker attribute keys the aggregation.
type KeyPolicy int

// Key policies. KeyByName merges distinct workers sharing a display name.
const (
	KeyByName KeyPolicy = iota
	KeyByID
)

// ParseKeyPolicy parses "name" or "id".
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return KeyByName, nil
	case "id":
		return KeyByID, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeyPolicy, s)
	}
}

// String returns the configuration name of the policy.
func (p KeyPolicy) String() string {
	switch p {
	case KeyByName:
		return "name"
	case KeyByID:
		return "id"
	default:
		return "unknown"
	}
}

// Key returns the aggregation key for w, falling back to the other
// attribute when the preferred one is empty.
func (p KeyPolicy) Key(w model.Worker) string {
	primary, fallback := w.Name, w.ID
	if p == KeyByID {
		primary, fallback = w.ID, w.Name
	}
	if primary != "" {
		return primary
	}
	return fallback
}

// Coercion describes a record whose monetary field was not a finite number
// and was counted as zero.
type Coercion struct {
	EventID string
	Worker  string
	Source  string
	Field   string
}

// Aggregator computes Totals. It holds no mutable state and is safe for
// concurrent use.
type Aggregator struct {
	key KeyPolicy
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithKeyPolicy sets the worker key policy.
func WithKeyPolicy(p KeyPolicy) Option {
	return func(a *Aggregator) {
		a.key = p
	}
}

// NewAggregator creates an Aggregator keyed by display name unless configured
// otherwise.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{key: KeyByName}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// KeyPolicy returns the configured key policy.
func (a *Aggregator) KeyPolicy() KeyPolicy { return a.key }

// Aggregate returns the default name-keyed totals for p.
func Aggregate(p period.Period, sales []model.Sale, hours []model.Hours, bonuses []model.Bonus) Totals {
	totals, _ := NewAggregator().Aggregate(p, sales, hours, bonuses)
	return totals
}

// Aggregate sums the contributions of every record qualifying for p.
//
// Sales and hours qualify when their date lies in [p.Start, p.End]. Bonuses
// qualify only when their PeriodStart is exactly p.Start. Non-finite
// amounts or rates contribute zero and are reported as coercions; the
// worker still counts as active.
func (a *Aggregator) Aggregate(p period.Period, sales []model.Sale, hours []model.Hours, bonuses []model.Bonus) (Totals, []Coercion) {
	totals := make(Totals)
	var coerced []Coercion

	add := func(w model.Worker, v decimal.Decimal) {
		k := a.key.Key(w)
		totals[k] = totals[k].Add(v)
	}

	for _, s := range sales {
		if !p.Contains(s.Date) {
			continue
		}
		gross, ok1 := finite(s.Gross)
		rate, ok2 := finite(s.CommissionRate)
		if !ok1 || !ok2 {
			coerced = append(coerced, Coercion{EventID: s.EventID, Worker: a.key.Key(s.Worker), Source: "sale", Field: pick(ok1, "gross", "commission_rate")})
			add(s.Worker, decimal.Zero)
			continue
		}
		add(s.Worker, gross.Mul(rate))
	}

	for _, h := range hours {
		if !p.Contains(h.Date) {
			continue
		}
		worked, ok1 := finite(h.Hours)
		rate, ok2 := finite(h.HourlyRate)
		if !ok1 || !ok2 {
			coerced = append(coerced, Coercion{EventID: h.EventID, Worker: a.key.Key(h.Worker), Source: "hours", Field: pick(ok1, "hours", "hourly_rate")})
			add(h.Worker, decimal.Zero)
			continue
		}
		add(h.Worker, worked.Mul(rate))
	}

	for _, b := range bonuses {
		if !period.Day(b.PeriodStart).Equal(p.Start) {
			continue
		}
		amount, ok := finite(b.Amount)
		if !ok {
			coerced = append(coerced, Coercion{EventID: b.EventID, Worker: a.key.Key(b.Worker), Source: "bonus", Field: "amount"})
		}
		add(b.Worker, amount)
	}

	return totals, coerced
}

// finite converts v to a decimal, mapping NaN and infinities to zero.
func finite(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// pick names the first offending field.
func pick(firstOK bool, first, second string) string {
	if !firstOK {
		return first
	}
	return second
}
