// Package cmd holds the ledgerctl commands, an operator CLI over the same
// services the API exposes.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hako/durafmt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the agency ledger: migrations, rates, scheduler runs and reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration.")
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init("ledgerctl", cfg.LogLevel, cfg.AppEnv)
	return cfg, nil
}

// withApp builds the service graph for one command and releases it after.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()
	return fn(cmd.Context(), a)
}

func parseDate(flag, value string) (time.Time, error) {
	d, err := calendar.Parse(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", flag, value)
	}
	return d, nil
}

func humanDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}
