package recurring_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/fx"
	"github.com/josh-kwaku/agency-ledger/internal/ledger"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/testutil"
)

func setupScheduler(t *testing.T, db *sql.DB, workers int) *recurring.Scheduler {
	t.Helper()
	store := ledger.NewStore(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		fx.NewResolver(repository.NewRateRepository(db), 0),
		db,
		time.UTC,
	)
	return recurring.NewScheduler(
		repository.NewDefinitionRepository(db),
		repository.NewObligationRepository(db),
		store,
		nil,
		db,
		time.UTC,
		recurring.SchedulerConfig{Workers: workers, Timeout: time.Minute},
	)
}

func periodsOf(t *testing.T, db *sql.DB, def *domain.RecurringDefinition) []string {
	t.Helper()
	obligations, err := repository.NewObligationRepository(db).GetByDefinitionID(context.Background(), def.ID)
	require.NoError(t, err)
	out := make([]string, len(obligations))
	for i, o := range obligations {
		require.NotNil(t, o.MovementID, "obligation %s has no movement", o.ID)
		out[i] = o.PeriodStart.Format(calendar.Layout)
	}
	return out
}

func TestScheduler_MonthEndClampAndRerun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	scheduler := setupScheduler(t, db, 2)

	acct := testutil.SeedAccount(t, db, domain.AccountKindCashUSD, domain.CurrencyUSD, "5000")
	testutil.SeedDailyRate(t, db, calendar.Date(2024, 1, 2), "805")
	def := testutil.SeedDefinition(t, db, acct.ID, domain.FrequencyMonthly, "100", domain.CurrencyUSD, calendar.Date(2024, 1, 31))

	report, err := scheduler.RunForDate(ctx, calendar.Date(2024, 3, 31))
	require.NoError(t, err)
	assert.False(t, report.Failed(), "errors: %v", report.Errors)
	assert.Equal(t, 3, report.GeneratedCount)
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31"}, periodsOf(t, db, def))

	again, err := scheduler.RunForDate(ctx, calendar.Date(2024, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, 0, again.GeneratedCount)
	assert.Equal(t, 3, again.SkippedCount)

	assert.Equal(t, 3, testutil.CountObligations(t, db, def.ID))
	assert.Equal(t, 3, testutil.CountMovements(t, db, acct.ID))
}

func TestScheduler_ConcurrentRunsGenerateOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, domain.AccountKindBank, domain.CurrencyARS, "0")
	weekly := testutil.SeedDefinition(t, db, acct.ID, domain.FrequencyWeekly, "2500", domain.CurrencyARS, calendar.Date(2024, 2, 1))
	monthly := testutil.SeedDefinition(t, db, acct.ID, domain.FrequencyMonthly, "90000", domain.CurrencyARS, calendar.Date(2024, 1, 15))

	const runs = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		generated int
	)
	for range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := setupScheduler(t, db, 3).RunForDate(ctx, calendar.Date(2024, 3, 1))
			if !assert.NoError(t, err) {
				return
			}
			assert.False(t, report.Failed(), "errors: %v", report.Errors)
			mu.Lock()
			generated += report.GeneratedCount
			mu.Unlock()
		}()
	}
	wg.Wait()

	// weekly: Feb 1, 8, 15, 22, 29. monthly: Jan 15, Feb 15.
	assert.Equal(t, 7, generated)
	assert.Equal(t, 5, testutil.CountObligations(t, db, weekly.ID))
	assert.Equal(t, 2, testutil.CountObligations(t, db, monthly.ID))
	assert.Equal(t, 7, testutil.CountMovements(t, db, acct.ID))
}

func TestScheduler_MissingRateIsRetryable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	scheduler := setupScheduler(t, db, 2)

	usdAcct := testutil.SeedAccount(t, db, domain.AccountKindSavingsUSD, domain.CurrencyUSD, "0")
	arsAcct := testutil.SeedAccount(t, db, domain.AccountKindCashARS, domain.CurrencyARS, "0")
	needsRate := testutil.SeedDefinition(t, db, usdAcct.ID, domain.FrequencyMonthly, "100", domain.CurrencyUSD, calendar.Date(2024, 2, 1))
	plain := testutil.SeedDefinition(t, db, arsAcct.ID, domain.FrequencyMonthly, "100", domain.CurrencyARS, calendar.Date(2024, 2, 1))

	report, err := scheduler.RunForDate(ctx, calendar.Date(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.GeneratedCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, needsRate.ID, report.Errors[0].DefinitionID)
	assert.ErrorIs(t, report.Errors[0], domain.ErrRateNotFound)
	assert.Equal(t, 0, testutil.CountObligations(t, db, needsRate.ID))
	assert.Equal(t, 0, testutil.CountMovements(t, db, usdAcct.ID))
	assert.Equal(t, 1, testutil.CountObligations(t, db, plain.ID))

	testutil.SeedDailyRate(t, db, calendar.Date(2024, 1, 31), "820")

	retry, err := scheduler.RunForDate(ctx, calendar.Date(2024, 2, 1))
	require.NoError(t, err)
	assert.False(t, retry.Failed())
	assert.Equal(t, 1, retry.GeneratedCount)
	assert.Equal(t, 1, testutil.CountObligations(t, db, needsRate.ID))
	assert.Equal(t, 1, testutil.CountObligations(t, db, plain.ID))
}
