package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/centsible/centsible/internal/engine"
)

func rolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Carry unspent budget into the current period",
		Long: `Close out last month's rollover-enabled budgets and write any positive
leftover onto the budget period that follows. Overspent periods carry
nothing forward. Safe to re-run.`,
		RunE: runRollover,
	}
}

func runRollover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	processor := engine.NewRolloverProcessor(store, store)
	result, err := processor.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rollover failed: %w", err)
	}

	slog.Info("rollover complete",
		"budgets_processed", result.Processed,
		"budgets_rolled_over", result.RolledOver,
		"failed", result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d budgets failed to roll over", result.Failed)
	}
	return nil
}
