package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/calendar"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Manage USD to ARS exchange rates",
}

var rateSetMonthlyCmd = &cobra.Command{
	Use:   "set-monthly <year> <month> <rate>",
	Short: "Set the monthly override rate, which wins over daily rates in that month",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year: %w", err)
		}
		month, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("month: %w", err)
		}
		rate, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Rates.UpsertMonthlyRate(ctx, year, time.Month(month), rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "monthly rate %04d-%02d = %s\n", year, month, rate)
			return nil
		})
	},
}

var rateSetDailyCmd = &cobra.Command{
	Use:   "set-daily <date> <rate>",
	Short: "Set the daily rate effective from date until a later daily rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate("date", args[0])
		if err != nil {
			return err
		}
		rate, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Rates.UpsertDailyRate(ctx, date, rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daily rate %s = %s\n", date.Format(calendar.Layout), rate)
			return nil
		})
	},
}

var rateResolveCmd = &cobra.Command{
	Use:   "resolve <date>",
	Short: "Show the rate that applies on a date and where it comes from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate("date", args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rate, err := a.Rates.Resolve(ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%s, effective %s)\n",
				date.Format(calendar.Layout), rate.Value, rate.Source, rate.EffectiveDate.Format(calendar.Layout))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.AddCommand(rateSetMonthlyCmd, rateSetDailyCmd, rateResolveCmd)
}
