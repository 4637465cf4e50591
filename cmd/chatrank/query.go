package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/chatrank/internal/app"
	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/internal/domain/period"
)

// operator is the principal used by the query subcommands.
var operator = access.Principal{UserID: "cli", Name: "operator", Role: access.RoleAdmin, Status: access.StatusApproved}

func leaderboardCmd(g *globalFlags) *cobra.Command {
	var (
		timeframe string
		team      string
		month     int
		year      int
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a leaderboard as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := period.ParseKind(timeframe)
			if err != nil {
				return err
			}
			q := service.Query{Kind: kind, TeamID: team}
			if month != 0 || year != 0 {
				if month < 1 || month > 12 || year < 1 {
					return errors.New("--month must be 1-12 and --year positive")
				}
				q.Month = &period.MonthYear{Month: time.Month(month), Year: year}
			}

			a, err := newApp(*g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			lb, err := a.svc.GetLeaderboard(operatorContext(cmd.Context()), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lb)
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "week", "week, month or quarter")
	cmd.Flags().StringVar(&team, "team", "", "Team id; empty means all teams")
	cmd.Flags().IntVar(&month, "month", 0, "Specific month (1-12), used with --year")
	cmd.Flags().IntVar(&year, "year", 0, "Year of --month")
	return cmd
}

func trajectoryCmd(g *globalFlags) *cobra.Command {
	var (
		kind    string
		periods int
	)

	cmd := &cobra.Command{
		Use:   "trajectory <chatter>",
		Short: "Print a chatter's rank trajectory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := period.ParseKind(kind)
			if err != nil {
				return err
			}

			a, err := newApp(*g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			points, err := a.svc.GetRankTrajectory(operatorContext(cmd.Context()), args[0], k, periods)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "week", "week, month or quarter")
	cmd.Flags().IntVarP(&periods, "periods", "n", 12, "Number of periods, oldest first")
	return cmd
}

func operatorContext(ctx context.Context) context.Context {
	return access.WithPrincipal(ctx, operator)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
