package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

type RateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) GetMonthly(ctx context.Context, year int, month time.Month) (*domain.MonthlyRate, error) {
	var mr domain.MonthlyRate
	var m int
	err := r.db.QueryRowContext(ctx,
		`SELECT year, month, rate, updated_at FROM exchange_rates_monthly
		WHERE year = $1 AND month = $2`, year, int(month),
	).Scan(&mr.Year, &m, &mr.Rate, &mr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetMonthly: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetMonthly: %w", err)
	}
	mr.Month = time.Month(m)
	return &mr, nil
}

func (r *RateRepository) ListMonthly(ctx context.Context, year int) ([]domain.MonthlyRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, rate, updated_at FROM exchange_rates_monthly
		WHERE year = $1 ORDER BY month`, year,
	)
	if err != nil {
		return nil, fmt.Errorf("ListMonthly: %w", err)
	}
	defer rows.Close()

	var rates []domain.MonthlyRate
	for rows.Next() {
		var mr domain.MonthlyRate
		var m int
		if err := rows.Scan(&mr.Year, &m, &mr.Rate, &mr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListMonthly: scan: %w", err)
		}
		mr.Month = time.Month(m)
		rates = append(rates, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMonthly: rows: %w", err)
	}
	return rates, nil
}

// UpsertMonthly replaces the rate value of an existing (year, month) row or
// inserts a new one.
func (r *RateRepository) UpsertMonthly(ctx context.Context, mr *domain.MonthlyRate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchange_rates_monthly (year, month, rate, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (year, month) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		mr.Year, int(mr.Month), mr.Rate, mr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("UpsertMonthly: %w", err)
	}
	return nil
}

// LatestDailyOnOrBefore returns the most recent daily rate dated on or before
// date. It never returns a rate from after date.
func (r *RateRepository) LatestDailyOnOrBefore(ctx context.Context, date time.Time) (*domain.DailyRate, error) {
	var dr domain.DailyRate
	err := r.db.QueryRowContext(ctx,
		`SELECT rate_date, rate, updated_at FROM exchange_rates_daily
		WHERE rate_date <= $1::date ORDER BY rate_date DESC LIMIT 1`,
		date.Format(calendar.Layout),
	).Scan(&dr.RateDate, &dr.Rate, &dr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("LatestDailyOnOrBefore: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("LatestDailyOnOrBefore: %w", err)
	}
	dr.RateDate = calendar.Truncate(dr.RateDate)
	return &dr, nil
}

func (r *RateRepository) UpsertDaily(ctx context.Context, dr *domain.DailyRate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchange_rates_daily (rate_date, rate, updated_at)
		VALUES ($1::date, $2, $3)
		ON CONFLICT (rate_date) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		dr.RateDate.Format(calendar.Layout), dr.Rate, dr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("UpsertDaily: %w", err)
	}
	return nil
}
