package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("agency-ledger-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to release resources", "error", err)
		}
	}()

	var cron *recurring.Cron
	if cfg.SchedulerCron != "" {
		cron = recurring.NewCron(a.Scheduler, a.Location, logger)
		if err := cron.Schedule(ctx, cfg.SchedulerCron); err != nil {
			slog.Error("invalid SCHEDULER_CRON", "error", err)
			os.Exit(1)
		}
		cron.Start()
		slog.Info("in-process scheduler enabled", "schedule", cfg.SchedulerCron, "timezone", a.Location.String())
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes(a),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SchedulerTimeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cron != nil {
		cron.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server stopped")
}
