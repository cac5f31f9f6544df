package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/centsible/centsible/internal/engine"
	"github.com/centsible/centsible/internal/period"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Show the safe-to-spend outlook for a period",
		RunE:  runForecast,
	}

	cmd.Flags().String("owner", "", "owner to forecast (required)")
	cmd.Flags().String("period", "", "month to forecast as YYYY-MM (default: current month)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")
	token, _ := cmd.Flags().GetString("period")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now().UTC()
	rng := period.Month(now)
	if token != "" {
		rng, err = period.ParseMonth(token)
		if err != nil {
			return err
		}
	}

	forecaster := engine.NewForecaster(store, store, store)
	result, err := forecaster.Forecast(ctx, owner, rng, now)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Period:\t%s to %s\n",
		result.PeriodStart.Format("2006-01-02"),
		result.PeriodEnd.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Fprintf(w, "Budget:\t%s\n", result.MonthlyTotal)
	fmt.Fprintf(w, "Spent:\t%s\n", result.TotalSpent)
	fmt.Fprintf(w, "Remaining:\t%s\n", result.RemainingBudget)
	fmt.Fprintf(w, "Upcoming recurring:\t%s\n", result.UpcomingRecurringTotal)
	fmt.Fprintf(w, "Safe to spend:\t%s\n", result.SafeToSpend)
	if result.Partial {
		fmt.Fprintf(w, "\t(partial: some data was unavailable)\n")
	}

	if len(result.Upcoming) > 0 {
		fmt.Fprintf(w, "\nDue in the next 7 days:\n")
		for _, occ := range result.Upcoming {
			fmt.Fprintf(w, "  %s\t%s\t%s\n",
				occ.DueDate.Format("2006-01-02"), occ.Label, occ.Amount)
		}
	}

	if len(result.Categories) > 0 {
		fmt.Fprintf(w, "\nCategories:\n")
		for _, c := range result.Categories {
			fmt.Fprintf(w, "  %s\tspent %s\tof %s\n", c.Category, c.Spent, c.Allocated)
		}
	}

	return w.Flush()
}
