package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/chatrank/internal/testevents"
	"github.com/okian/chatrank/pkg/logger"
)

func loadtestCmd() *cobra.Command {
	cfg := testevents.DefaultConfig()
	var (
		month = int(cfg.Month.Month)
		year  = cfg.Month.Year
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit generated events to a running server and verify its leaderboard",
		Long: `loadtest generates a month of sales, hours and bonus events, posts them
concurrently to /api/events, waits for ingestion to drain, and compares the
served monthly leaderboard with one computed locally.

Point it at a server whose store holds no other events for that month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("--month must be 1-12, got %d", month)
			}
			cfg.Month.Month, cfg.Month.Year = time.Month(month), year

			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			stats, err := testevents.Run(cmd.Context(), cfg, logger.Named("loadtest"))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.IntVar(&month, "month", month, "Month the events fall into (1-12)")
	f.IntVar(&year, "year", year, "Year of --month")
	f.IntVar(&cfg.Chatters, "chatters", cfg.Chatters, "Number of distinct chatters")
	f.IntVar(&cfg.NumEvents, "events", cfg.NumEvents, "Number of events to generate")
	f.IntVar(&cfg.Duplicates, "duplicates", cfg.Duplicates, "Number of events submitted twice")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Wait, "wait", cfg.Wait, "Max time to wait for ingestion to drain")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Generator seed")
	return cmd
}
