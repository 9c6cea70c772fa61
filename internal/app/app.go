// Package app wires repositories and services from configuration. Both
// binaries build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/balance"
	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/fx"
	"github.com/josh-kwaku/agency-ledger/internal/ledger"
	"github.com/josh-kwaku/agency-ledger/internal/messaging"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/tax"
)

const (
	dbConnectAttempts = 30
	kafkaWriteTimeout = 10 * time.Second
)

type App struct {
	Config      *config.Config
	DB          *sql.DB
	Location    *time.Location
	Rates       *fx.Resolver
	Ledger      *ledger.Store
	Balances    *balance.Calculator
	Recurring   *recurring.Service
	Scheduler   *recurring.Scheduler
	Tax         *tax.Aggregator
	Idempotency *repository.IdempotencyRepository

	producer *messaging.ObligationProducer
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}, dbConnectAttempts)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	producer, err := messaging.NewObligationProducer(cfg.KafkaBrokers, cfg.KafkaObligationsTopic, kafkaWriteTimeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	accounts := repository.NewAccountRepository(db)
	movements := repository.NewMovementRepository(db)
	definitions := repository.NewDefinitionRepository(db)
	obligations := repository.NewObligationRepository(db)

	rates := fx.NewResolver(repository.NewRateRepository(db), cfg.RateCacheTTL())
	store := ledger.NewStore(accounts, movements, rates, db, loc)

	a := &App{
		Config:    cfg,
		DB:        db,
		Location:  loc,
		Rates:     rates,
		Ledger:    store,
		Balances:  balance.NewCalculator(accounts, movements, loc, cfg.MaxSeriesDays),
		Recurring: recurring.NewService(definitions, obligations, accounts),
		Scheduler: recurring.NewScheduler(definitions, obligations, store, producer, db, loc, recurring.SchedulerConfig{
			Workers: cfg.SchedulerWorkers,
			Timeout: cfg.SchedulerTimeout(),
		}),
		Tax:         tax.NewAggregator(repository.NewTaxRepository(db)),
		Idempotency: repository.NewIdempotencyRepository(db),
		producer:    producer,
	}
	return a, nil
}

func (a *App) Close() error {
	return errors.Join(a.producer.Close(), a.DB.Close())
}
