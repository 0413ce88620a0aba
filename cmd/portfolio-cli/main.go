// Package main is the portfolio-cli entry point. It runs the analytics
// services locally and prints their results, without the API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	commands "portfolioanalytics/cmd/portfolio-cli/internal/commands"
	"portfolioanalytics/internal/config"
	"portfolioanalytics/pkg/contracts"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rootCmd := &cobra.Command{
		Use:   "portfolio-cli",
		Short: "Portfolio, equity and fixed income analytics",
		Long: `portfolio-cli runs the portfolio analytics locally: Value at Risk and
drawdowns of return series, equity valuation from market data, bond pricing,
mean-variance optimisation, Monte Carlo simulation and rebalancing.

Configuration is read from config.yaml and PA_ prefixed environment
variables, the same way as the API server.`,
		Version:       contracts.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.NewHandler(cfg, os.Stdout).Register(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
