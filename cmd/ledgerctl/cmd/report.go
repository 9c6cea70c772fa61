package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/balance"
	"github.com/josh-kwaku/agency-ledger/internal/calendar"
)

var (
	balanceAccounts []string
	balanceAsOf     string
	balanceFrom     string
	balanceTo       string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print end-of-day balances, or a daily series with --from/--to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids := make([]uuid.UUID, 0, len(balanceAccounts))
		for _, s := range balanceAccounts {
			id, err := uuid.Parse(s)
			if err != nil {
				return fmt.Errorf("--account %q: %w", s, err)
			}
			ids = append(ids, id)
		}

		if balanceFrom != "" || balanceTo != "" {
			from, err := parseDate("from", balanceFrom)
			if err != nil {
				return err
			}
			to, err := parseDate("to", balanceTo)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				err := a.Balances.WalkDailySeries(ctx, ids, from, to, func(p balance.Point) error {
					_, err := fmt.Fprintf(w, "%s\t%s\t\n", p.Date.Format(calendar.Layout), p.Balance.StringFixed(2))
					return err
				})
				if err != nil {
					return err
				}
				return w.Flush()
			})
		}

		if balanceAsOf == "" {
			return errors.New("--as-of or --from/--to is required")
		}
		asOf, err := parseDate("as-of", balanceAsOf)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			lines, err := a.Balances.AccountBalancesAsOf(ctx, ids, asOf)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ACCOUNT\tCURRENCY\tBALANCE %s\n", asOf.Format(calendar.Layout))
			for _, l := range lines {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.AccountID, l.Currency, l.Balance.StringFixed(2))
			}
			return w.Flush()
		})
	},
}

var ivaCmd = &cobra.Command{
	Use:   "iva <year> [month]",
	Short: "Print the IVA position for a month, or every month of a year",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year: %w", err)
		}
		month := 0
		if len(args) == 2 {
			if month, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("month: %w", err)
			}
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tSALES IVA\tPURCHASES IVA\tNET PAYABLE")

			if month != 0 {
				s, err := a.Tax.MonthlySummary(ctx, year, time.Month(month))
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\n", s.Year, s.Month, s.SalesTax.StringFixed(2), s.PurchasesTax.StringFixed(2), s.NetPayable.StringFixed(2))
				return w.Flush()
			}

			months, err := a.Tax.AnnualBreakdown(ctx, year)
			if err != nil {
				return err
			}
			for _, s := range months {
				fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\n", s.Year, s.Month, s.SalesTax.StringFixed(2), s.PurchasesTax.StringFixed(2), s.NetPayable.StringFixed(2))
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd, ivaCmd)

	balanceCmd.Flags().StringSliceVar(&balanceAccounts, "account", nil, "Account ID; repeat or comma-separate for several.")
	balanceCmd.Flags().StringVar(&balanceAsOf, "as-of", "", "Civil date of the end-of-day balance (YYYY-MM-DD).")
	balanceCmd.Flags().StringVar(&balanceFrom, "from", "", "First day of a daily series.")
	balanceCmd.Flags().StringVar(&balanceTo, "to", "", "Last day of a daily series.")
}
