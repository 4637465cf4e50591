// Package achievement maps earnings to milestone tiers.
package achievement

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Achievement is a named tier unlocked at Threshold earnings.
type Achievement struct {
	Threshold decimal.Decimal
	Tier      string
}

// Table is an ordered set of achievements, highest threshold first.
type Table struct {
	tiers []Achievement
}

// NewTable builds a table from tiers in any order.
func NewTable(tiers ...Achievement) Table {
	sorted := make([]Achievement, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold.GreaterThan(sorted[j].Threshold)
	})
	return Table{tiers: sorted}
}

// DefaultTable returns the standard chatter milestone table.
func DefaultTable() Table {
	return NewTable(
		Achievement{Threshold: decimal.NewFromInt(100_000), Tier: "Diamond"},
		Achievement{Threshold: decimal.NewFromInt(50_000), Tier: "Platinum"},
		Achievement{Threshold: decimal.NewFromInt(25_000), Tier: "Gold"},
		Achievement{Threshold: decimal.NewFromInt(10_000), Tier: "Silver"},
		Achievement{Threshold: decimal.NewFromInt(5_000), Tier: "Bronze"},
	)
}

// Tiers returns the achievements, highest threshold first.
func (t Table) Tiers() []Achievement {
	out := make([]Achievement, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Evaluate returns the highest achievement whose threshold is at most
// earnings.
func (t Table) Evaluate(earnings decimal.Decimal) (Achievement, bool) {
	for _, a := range t.tiers {
		if a.Threshold.LessThanOrEqual(earnings) {
			return a, true
		}
	}
	return Achievement{}, false
}

// NextMilestone returns the lowest achievement still above earnings.
func (t Table) NextMilestone(earnings decimal.Decimal) (Achievement, bool) {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if t.tiers[i].Threshold.GreaterThan(earnings) {
			return t.tiers[i], true
		}
	}
	return Achievement{}, false
}
