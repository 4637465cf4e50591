package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/chatrank/internal/domain/types"
	"github.com/okian/chatrank/pkg/logger"
)

const maxAttempts = 5

// errBackpressure is returned once retries after 429 answers run out.
var errBackpressure = errors.New("server applied backpressure")

// client talks to the chatrank HTTP API as an approved admin.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "testevents")
	req.Header.Set("X-User-Role", "admin")
	req.Header.Set("X-User-Status", "approved")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	return nil
}

// submit posts one event, retrying on backpressure with linear backoff.
func (c *client) submit(ctx context.Context, e Event, retried *atomic.Int64) (duplicate bool, err error) {
	for attempt := 1; ; attempt++ {
		var ack struct {
			Duplicate bool `json:"duplicate"`
		}
		status, err := c.do(ctx, http.MethodPost, "/api/events", e, &ack)
		switch {
		case err != nil:
			return false, err
		case status == http.StatusAccepted, status == http.StatusOK:
			return ack.Duplicate, nil
		case status == http.StatusTooManyRequests && attempt < maxAttempts:
			retried.Add(1)
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		case status == http.StatusTooManyRequests:
			return false, errBackpressure
		default:
			return false, fmt.Errorf("event %s rejected with status %d", e.EventID, status)
		}
	}
}

// submitEvents submits events concurrently using a bounded errgroup. A
// rejected event is counted, not fatal; transport errors abort.
func submitEvents(ctx context.Context, c *client, cfg Config, events []Event, stats *Stats, log logger.Logger) error {
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", cfg.Workers))

	var successful, duplicate, failed, retried atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, e := range events {
		g.Go(func() error {
			dup, err := c.submit(gctx, e, &retried)
			switch {
			case err == nil && dup:
				duplicate.Add(1)
			case err == nil:
				successful.Add(1)
			default:
				failed.Add(1)
				var uerr *url.Error
				if errors.As(err, &uerr) {
					return err
				}
				log.Warn(gctx, "event rejected", logger.String("event_id", e.EventID), logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.EventsSubmitted = int(successful.Load() + duplicate.Load() + failed.Load())
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	stats.EventsRetried = int(retried.Load())
	return err
}

// ingested returns the server's processed plus failed event count.
func (c *client) ingested(ctx context.Context) (int, error) {
	var stats map[string]any
	status, err := c.do(ctx, http.MethodGet, "/stats", nil, &stats)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("stats returned status %d", status)
	}
	if started, _ := stats["started"].(bool); !started {
		return 0, errors.New("ingestion is not running")
	}
	processed, _ := stats["processed"].(float64)
	failed, _ := stats["failed"].(float64)
	return int(processed + failed), nil
}

// waitDrained polls /stats until target events have been handled or the
// deadline passes.
func waitDrained(ctx context.Context, c *client, target int, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if n, err := c.ingested(ctx); err == nil && n >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ingestion did not reach %d events: %w", target, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *client) leaderboard(ctx context.Context, cfg Config) (types.Leaderboard, error) {
	q := url.Values{}
	q.Set("timeframe", "month")
	q.Set("month", strconv.Itoa(int(cfg.Month.Month)))
	q.Set("year", strconv.Itoa(cfg.Month.Year))

	var lb types.Leaderboard
	status, err := c.do(ctx, http.MethodGet, "/api/leaderboard?"+q.Encode(), nil, &lb)
	if err != nil {
		return types.Leaderboard{}, err
	}
	if status != http.StatusOK {
		return types.Leaderboard{}, fmt.Errorf("leaderboard returned status %d", status)
	}
	return lb, nil
}
