// Package ranking orders per-worker earnings into a leaderboard.
package ranking

import (
	"sort"

	"github.com/okian/chatrank/internal/domain/earnings"
	"github.com/shopspring/decimal"
)

// Entry is one row of a leaderboard.
type Entry struct {
	Rank     int
	Worker   string
	Earnings decimal.Decimal
}

// Board is a ranked leaderboard with summary statistics.
type Board struct {
	Entries []Entry
	Total   decimal.Decimal
	Active  int
	Average decimal.Decimal

	index map[string]int
}

// Rank sorts totals by earnings descending, breaking ties by worker key
// ascending, and assigns positional ranks 1..N. Equal earnings never share
// a rank.
func Rank(totals earnings.Totals) Board {
	entries := make([]Entry, 0, len(totals))
	total := decimal.Zero
	for worker, amount := range totals {
		entries = append(entries, Entry{Worker: worker, Earnings: amount})
		total = total.Add(amount)
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Earnings.Cmp(entries[j].Earnings); c != 0 {
			return c > 0
		}
		return entries[i].Worker < entries[j].Worker
	})

	index := make(map[string]int, len(entries))
	for i := range entries {
		entries[i].Rank = i + 1
		index[entries[i].Worker] = i + 1
	}

	avg := decimal.Zero
	if n := len(entries); n > 0 {
		avg = total.Div(decimal.NewFromInt(int64(n)))
	}

	return Board{
		Entries: entries,
		Total:   total,
		Active:  len(entries),
		Average: avg,
		index:   index,
	}
}

// RankOf returns the rank of worker, or false when the worker has no
// earnings in the board.
func (b Board) RankOf(worker string) (int, bool) {
	r, ok := b.index[worker]
	return r, ok
}

// Lookup returns the entry for worker or ErrNotFound.
func (b Board) Lookup(worker string) (Entry, error) {
	r, ok := b.RankOf(worker)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return b.Entries[r-1], nil
}

// RankOrSentinel returns the worker's rank, or Active+1 when the worker is
// not on the board.
func (b Board) RankOrSentinel(worker string) int {
	if r, ok := b.RankOf(worker); ok {
		return r
	}
	return b.Active + 1
}

// Top returns the first n entries. n <= 0 returns every entry.
func (b Board) Top(n int) []Entry {
	if n <= 0 || n >= len(b.Entries) {
		return b.Entries
	}
	return b.Entries[:n]
}
