package testevents

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/chatrank/pkg/logger"
)

// Run executes the complete event test against cfg.BaseURL. The server
// should start from a store without other events in cfg.Month.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	log.Info(ctx, "starting chatrank event test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("duplicates", cfg.Duplicates),
		logger.Int("chatters", cfg.Chatters),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	baseline, err := c.ingested(ctx)
	if err != nil {
		return stats, fmt.Errorf("read ingestion stats: %w", err)
	}

	events, err := Generate(cfg)
	if err != nil {
		return stats, fmt.Errorf("event generation failed: %w", err)
	}
	stats.EventsGenerated = len(events)

	if err := submitEvents(ctx, c, cfg, events, &stats, log); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}
	if stats.EventsFailed > 0 {
		return stats, fmt.Errorf("%d events were not accepted", stats.EventsFailed)
	}

	log.Info(ctx, "waiting for events to be stored")
	if err := waitDrained(ctx, c, baseline+stats.EventsSuccessful, cfg.Wait); err != nil {
		return stats, err
	}

	got, err := c.leaderboard(ctx, cfg)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	want, err := Expected(cfg, events, len(got.TopChatters))
	if err != nil {
		return stats, err
	}
	stats.ActiveChatters = got.ActiveChatters
	if err := verifyLeaderboard(want, got); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsRetried", stats.EventsRetried),
		logger.Int("activeChatters", stats.ActiveChatters),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", float64(stats.EventsSubmitted)/stats.Duration.Seconds()),
	)
	return stats, nil
}
