// Package types contains the read shapes returned to dashboard callers.
package types

import (
	"github.com/okian/chatrank/internal/domain/achievement"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/internal/domain/ranking"
	"github.com/okian/chatrank/internal/domain/trajectory"
)

// Chatter is one leaderboard row. Sales holds the chatter's total earnings.
type Chatter struct {
	Name  string  `json:"name"`
	Sales float64 `json:"sales"`
	Rank  int     `json:"rank"`
}

// ChartPoint is one bar of the leaderboard chart.
type ChartPoint struct {
	Name  string  `json:"name"`
	Sales float64 `json:"sales"`
}

// Leaderboard is the leaderboard view for one period.
type Leaderboard struct {
	Period         string       `json:"period"`
	Start          string       `json:"start,omitempty"`
	End            string       `json:"end,omitempty"`
	TopChatters    []Chatter    `json:"topChatters"`
	TotalSales     float64      `json:"totalSales"`
	ActiveChatters int          `json:"activeChatters"`
	AvgPerChatter  float64      `json:"avgPerChatter"`
	ChartData      []ChartPoint `json:"chartData"`
}

// EmptyLeaderboard returns the zero-state leaderboard with non-nil lists.
func EmptyLeaderboard() Leaderboard {
	return Leaderboard{
		TopChatters: []Chatter{},
		ChartData:   []ChartPoint{},
	}
}

// NewLeaderboard converts a board into the view, keeping at most limit rows
// (limit <= 0 keeps all). Totals and averages cover every ranked chatter.
func NewLeaderboard(p period.Period, b ranking.Board, limit int) Leaderboard {
	lb := EmptyLeaderboard()
	lb.Period = p.Label
	lb.Start = period.FormatDate(p.Start)
	lb.End = period.FormatDate(p.End)
	lb.TotalSales = b.Total.InexactFloat64()
	lb.ActiveChatters = b.Active
	lb.AvgPerChatter = b.Average.Round(2).InexactFloat64()

	for _, e := range b.Top(limit) {
		sales := e.Earnings.InexactFloat64()
		lb.TopChatters = append(lb.TopChatters, Chatter{Name: e.Worker, Sales: sales, Rank: e.Rank})
		lb.ChartData = append(lb.ChartData, ChartPoint{Name: e.Worker, Sales: sales})
	}
	return lb
}

// RankPoint is one point of a rank trajectory.
type RankPoint struct {
	Period string `json:"period"`
	Rank   int    `json:"rank"`
}

// NewTrajectory converts reconstructed points into the chart series.
func NewTrajectory(points []trajectory.Point) []RankPoint {
	out := make([]RankPoint, len(points))
	for i, p := range points {
		out[i] = RankPoint{Period: p.Period.Label, Rank: p.Rank}
	}
	return out
}

// Milestone is an achievement tier with its threshold.
type Milestone struct {
	TierName        string  `json:"tierName"`
	ThresholdAmount float64 `json:"thresholdAmount"`
}

// NewMilestone converts an achievement; ok=false yields nil.
func NewMilestone(a achievement.Achievement, ok bool) *Milestone {
	if !ok {
		return nil
	}
	return &Milestone{TierName: a.Tier, ThresholdAmount: a.Threshold.InexactFloat64()}
}

// Achievements is the badge view for an earnings amount.
type Achievements struct {
	Earnings      float64    `json:"earnings"`
	Achievement   *string    `json:"achievement"`
	NextMilestone *Milestone `json:"nextMilestone"`
}

// WorkerEarnings is one chatter's standing in a period.
type WorkerEarnings struct {
	Name          string     `json:"name"`
	Period        string     `json:"period"`
	Earnings      float64    `json:"earnings"`
	Rank          int        `json:"rank"`
	Ranked        bool       `json:"ranked"`
	Achievement   *string    `json:"achievement"`
	NextMilestone *Milestone `json:"nextMilestone"`
}
