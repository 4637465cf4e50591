// Package main provides the chatrank binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, overridden with -ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "chatrank"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Chatter earnings leaderboards and rank trajectories",
		Long: `chatrank aggregates chatter sales commissions, hourly pay and bonuses
into weekly, monthly and quarterly leaderboards.

Without a subcommand it serves the HTTP API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g)
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (defaults to $CHATRANK_CONFIG)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, g)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
		leaderboardCmd(&g),
		trajectoryCmd(&g),
		loadtestCmd(),
	)
	return cmd
}
