package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
)

var runDate string

var runSchedulerCmd = &cobra.Command{
	Use:   "run-scheduler",
	Short: "Generate every recurring obligation due on or before a date",
	Long: "Generate every recurring obligation due on or before --date (today in " +
		"LEDGER_TIMEZONE by default). Safe to run repeatedly: periods already " +
		"generated are skipped.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			today := a.Scheduler.Today()
			if runDate != "" {
				d, err := parseDate("date", runDate)
				if err != nil {
					return err
				}
				today = d
			}

			report, err := a.Scheduler.RunForDate(ctx, today)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Failed() {
				return fmt.Errorf("%d definition(s) failed", len(report.Errors))
			}
			return nil
		})
	},
}

func printReport(w io.Writer, r *recurring.Report) {
	fmt.Fprintf(w, "run date:    %s\n", r.RunDate.Format(calendar.Layout))
	fmt.Fprintf(w, "definitions: %d\n", r.Definitions)
	fmt.Fprintf(w, "generated:   %d\n", r.GeneratedCount)
	fmt.Fprintf(w, "skipped:     %d\n", r.SkippedCount)
	fmt.Fprintf(w, "took:        %s\n", humanDuration(r.Duration))
	for _, e := range r.Errors {
		period := "-"
		if e.Period != nil {
			period = e.Period.Format(calendar.Layout)
		}
		fmt.Fprintf(w, "  FAILED %s period %s: %v\n", e.DefinitionID, period, e.Err)
	}
}

func init() {
	rootCmd.AddCommand(runSchedulerCmd)

	runSchedulerCmd.Flags().StringVar(&runDate, "date", "", "Run as of this civil date (YYYY-MM-DD).")
}
