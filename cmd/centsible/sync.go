package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/centsible/centsible/internal/engine"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Materialize due recurring expenses into the ledger",
		Long: `Walk every active recurring rule and create ledger entries for each
occurrence due through today. Safe to re-run: occurrences that already
exist are skipped.`,
		RunE: runSync,
	}

	cmd.Flags().String("owner", "", "sync a single owner instead of everyone")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	rules, err := store.ListActiveRules(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	if len(rules) == 0 {
		slog.Info("no active recurring rules to sync")
		return nil
	}

	bar := progressbar.NewOptions(len(rules),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Syncing recurring rules..."),
	)

	syncer := engine.NewSyncer(store, store)
	now := time.Now().UTC()

	var created, failed int
	for i := range rules {
		n, err := syncer.SyncRule(ctx, &rules[i], now)
		created += n
		if err != nil {
			failed++
			slog.Error("rule sync failed", "rule_id", rules[i].ID, "error", err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	slog.Info("sync complete",
		"rules", len(rules),
		"entries_created", created,
		"failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed to sync", failed, len(rules))
	}
	return nil
}
