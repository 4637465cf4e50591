// Package testevents drives a running chatrank server end to end: it
// generates a month of income events, submits them concurrently, and checks
// the served leaderboard against one computed locally.
package testevents

import (
	"time"

	"github.com/okian/chatrank/internal/domain/period"
)

// Config holds configuration for the event test.
type Config struct {
	BaseURL    string           // Base URL of the service
	Month      period.MonthYear // Month the events fall into
	Chatters   int              // Number of distinct chatters
	NumEvents  int              // Number of events to generate
	Duplicates int              // Number of events submitted twice
	Workers    int              // Number of concurrent submitters
	Timeout    time.Duration    // HTTP request timeout
	Wait       time.Duration    // Max time to wait for ingestion to drain
	Seed       uint64           // Generator seed; equal seeds give equal events
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	now := time.Now().UTC()
	return Config{
		BaseURL:    "http://localhost:9080",
		Month:      period.MonthYear{Month: now.Month(), Year: now.Year()},
		Chatters:   25,
		NumEvents:  1000,
		Duplicates: 50,
		Workers:    8,
		Timeout:    10 * time.Second,
		Wait:       30 * time.Second,
		Seed:       1,
	}
}

// Event is the wire body of POST /api/events.
type Event struct {
	EventID    string  `json:"event_id"`
	Kind       string  `json:"kind"`
	TeamID     string  `json:"team_id,omitempty"`
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name"`
	Date       string  `json:"date"`
	Amount     float64 `json:"amount"`
	Rate       float64 `json:"rate,omitempty"`
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsRetried    int
	EventsFailed     int
	ActiveChatters   int
	Duration         time.Duration
}
