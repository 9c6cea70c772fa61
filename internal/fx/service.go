package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

// Conversion is an amount stamped with its reporting-currency equivalent.
// Rate is nil when no conversion was needed.
type Conversion struct {
	Amount    decimal.Decimal
	Reporting decimal.Decimal
	Rate      *decimal.Decimal
}

type rateRepository interface {
	GetMonthly(ctx context.Context, year int, month time.Month) (*domain.MonthlyRate, error)
	ListMonthly(ctx context.Context, year int) ([]domain.MonthlyRate, error)
	UpsertMonthly(ctx context.Context, mr *domain.MonthlyRate) error
	LatestDailyOnOrBefore(ctx context.Context, date time.Time) (*domain.DailyRate, error)
	UpsertDaily(ctx context.Context, dr *domain.DailyRate) error
}

// Resolver answers which foreign-to-reporting rate applies on a date. A
// monthly override for the date's month wins; otherwise the latest daily rate
// on or before the date applies. Rates after the date are never used.
type Resolver struct {
	rates rateRepository
	cache *gocache.Cache
	now   func() time.Time
}

// NewResolver caches successful resolutions for cacheTTL. A non-positive TTL
// disables caching.
func NewResolver(rates rateRepository, cacheTTL time.Duration) *Resolver {
	r := &Resolver{rates: rates, now: time.Now}
	if cacheTTL > 0 {
		r.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

// Resolve serves reads and may answer from the cache, so a rate written by
// another process can take up to the cache TTL to show.
func (r *Resolver) Resolve(ctx context.Context, date time.Time) (*domain.Rate, error) {
	date = calendar.Truncate(date)
	key := "d:" + date.Format(calendar.Layout)
	if rate, ok := r.cached(key); ok {
		return rate, nil
	}

	rate, err := r.resolve(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	r.store(key, rate)
	return rate, nil
}

func (r *Resolver) resolve(ctx context.Context, date time.Time) (*domain.Rate, error) {
	rate, err := r.monthly(ctx, date.Year(), date.Month())
	if err != nil && !errors.Is(err, domain.ErrRateNotFound) {
		return nil, err
	}
	if rate != nil {
		return rate, nil
	}
	rate, err = r.dailyOnOrBefore(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", date.Format(calendar.Layout), err)
	}
	return rate, nil
}

// ResolveForPeriod applies the month's override, falling back to the latest
// daily rate on or before the month's last day.
func (r *Resolver) ResolveForPeriod(ctx context.Context, year int, month time.Month) (*domain.Rate, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, fmt.Errorf("ResolveForPeriod: %w", err)
	}

	key := fmt.Sprintf("p:%04d-%02d", year, int(month))
	if rate, ok := r.cached(key); ok {
		return rate, nil
	}

	rate, err := r.monthly(ctx, year, month)
	if err != nil && !errors.Is(err, domain.ErrRateNotFound) {
		return nil, fmt.Errorf("ResolveForPeriod: %w", err)
	}
	if rate == nil {
		_, last := calendar.MonthBounds(year, month)
		rate, err = r.dailyOnOrBefore(ctx, last)
		if err != nil {
			return nil, fmt.Errorf("ResolveForPeriod: %04d-%02d: %w", year, int(month), err)
		}
	}

	r.store(key, rate)
	return rate, nil
}

// Convert stamps amount in currency with its reporting equivalent as of date.
// It bypasses the cache.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, currency domain.Currency, date time.Time) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("Convert: %s: %w", currency, domain.ErrInvalidCurrency)
	}

	if currency == domain.ReportingCurrency {
		return &Conversion{Amount: amount, Reporting: amount}, nil
	}

	rate, err := r.resolve(ctx, calendar.Truncate(date))
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}

	value := rate.Value
	return &Conversion{
		Amount:    amount,
		Reporting: amount.Mul(value).Round(2),
		Rate:      &value,
	}, nil
}

// UpsertMonthlyRate replaces the override of an existing (year, month) or
// creates it. Movements already stamped keep their rate.
func (r *Resolver) UpsertMonthlyRate(ctx context.Context, year int, month time.Month, rate decimal.Decimal) error {
	if err := validatePeriod(year, month); err != nil {
		return fmt.Errorf("UpsertMonthlyRate: %w", err)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("UpsertMonthlyRate: %w", domain.ErrInvalidRate)
	}

	err := r.rates.UpsertMonthly(ctx, &domain.MonthlyRate{
		Year:      year,
		Month:     month,
		Rate:      rate,
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("UpsertMonthlyRate: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *Resolver) UpsertDailyRate(ctx context.Context, date time.Time, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("UpsertDailyRate: %w", domain.ErrInvalidRate)
	}

	err := r.rates.UpsertDaily(ctx, &domain.DailyRate{
		RateDate:  calendar.Truncate(date),
		Rate:      rate,
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("UpsertDailyRate: %w", err)
	}

	r.invalidate()
	return nil
}

func (r *Resolver) MonthlyRates(ctx context.Context, year int) ([]domain.MonthlyRate, error) {
	rates, err := r.rates.ListMonthly(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("MonthlyRates: %w", err)
	}
	return rates, nil
}

func (r *Resolver) monthly(ctx context.Context, year int, month time.Month) (*domain.Rate, error) {
	mr, err := r.rates.GetMonthly(ctx, year, month)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrRateNotFound
	}
	if err != nil {
		return nil, err
	}
	first, _ := calendar.MonthBounds(year, month)
	return &domain.Rate{Value: mr.Rate, Source: domain.RateSourceMonthly, EffectiveDate: first}, nil
}

func (r *Resolver) dailyOnOrBefore(ctx context.Context, date time.Time) (*domain.Rate, error) {
	dr, err := r.rates.LatestDailyOnOrBefore(ctx, date)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no rate on or before date: %w", domain.ErrRateNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Rate{Value: dr.Rate, Source: domain.RateSourceDaily, EffectiveDate: dr.RateDate}, nil
}

func (r *Resolver) cached(key string) (*domain.Rate, bool) {
	if r.cache == nil {
		return nil, false
	}
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	rate := *v.(*domain.Rate)
	return &rate, true
}

func (r *Resolver) store(key string, rate *domain.Rate) {
	if r.cache == nil {
		return
	}
	cp := *rate
	r.cache.SetDefault(key, &cp)
}

func (r *Resolver) invalidate() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

func validatePeriod(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return fmt.Errorf("month %d: %w", int(month), domain.ErrInvalidPeriod)
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("year %d: %w", year, domain.ErrInvalidPeriod)
	}
	return nil
}
