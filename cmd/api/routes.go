package main

import (
	"net/http"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/auth"
	"github.com/josh-kwaku/agency-ledger/internal/handler"
	"github.com/josh-kwaku/agency-ledger/internal/middleware"
)

const version = "1.0.0"

func routes(a *app.App) http.Handler {
	accounts := handler.NewAccountHandler(a.Ledger)
	movements := handler.NewMovementHandler(a.Ledger)
	balances := handler.NewBalanceHandler(a.Balances)
	fxh := handler.NewFXHandler(a.Rates)
	recurringh := handler.NewRecurringHandler(a.Recurring)
	taxh := handler.NewTaxHandler(a.Tax)
	cron := handler.NewCronHandler(a.Scheduler)
	health := handler.NewHealthHandler(a.DB, version)

	authn := middleware.Auth(a.Config.JWTSecret)
	anyRole := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, authn, middleware.Logging)
	}
	roles := func(h http.HandlerFunc, allowed ...auth.Role) http.Handler {
		return middleware.Chain(h, authn, middleware.Logging, middleware.RequireRole(allowed...))
	}
	writers := []auth.Role{auth.RoleAdmin, auth.RoleFinance}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)

	mux.Handle("POST /api/v1/accounts", roles(accounts.Create, auth.RoleAdmin))
	mux.Handle("POST /api/v1/accounts/{id}/deactivate", roles(accounts.Deactivate, auth.RoleAdmin))
	mux.Handle("GET /api/v1/accounts/{id}/movements", anyRole(movements.List))

	mux.Handle("POST /api/v1/movements", middleware.Chain(http.HandlerFunc(movements.Record),
		authn, middleware.Logging, middleware.RequireRole(writers...), middleware.Idempotency(a.Idempotency)))
	mux.Handle("POST /api/v1/movements/{id}/reverse", roles(movements.Reverse, writers...))

	mux.Handle("GET /api/v1/balances", anyRole(balances.AsOf))
	mux.Handle("GET /api/v1/balances/daily", anyRole(balances.Daily))

	mux.Handle("GET /api/v1/fx/rate", anyRole(fxh.GetRate))
	mux.Handle("GET /api/v1/fx/monthly/{year}", anyRole(fxh.ListMonthly))
	mux.Handle("PUT /api/v1/fx/daily/{date}", roles(fxh.SetDaily, auth.RoleAdmin))
	mux.Handle("PUT /api/v1/fx/monthly/{year}/{month}", roles(fxh.SetMonthly, auth.RoleAdmin))

	mux.Handle("POST /api/v1/recurring", roles(recurringh.Create, writers...))
	mux.Handle("POST /api/v1/recurring/{id}/deactivate", roles(recurringh.Deactivate, writers...))
	mux.Handle("GET /api/v1/recurring/{id}/obligations", anyRole(recurringh.Obligations))

	mux.Handle("GET /api/v1/tax/iva/{year}", anyRole(taxh.Annual))
	mux.Handle("GET /api/v1/tax/iva/{year}/{month}", anyRole(taxh.Monthly))
	mux.Handle("POST /api/v1/tax/records", roles(taxh.Record, writers...))

	mux.Handle("POST /internal/cron/recurring", middleware.Chain(http.HandlerFunc(cron.RunRecurring),
		middleware.CronSecret(a.Config.CronSecret), middleware.Logging))

	return middleware.Chain(mux, middleware.Tracing, middleware.Recovery)
}
