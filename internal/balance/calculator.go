package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

// windowDays bounds how many daily deltas are held in memory while walking a
// series.
const windowDays = 31

type accountRepository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error)
}

type movementRepository interface {
	Stream(ctx context.Context, accountID uuid.UUID, from, before time.Time, fn func(*domain.Movement) error) error
}

type Point struct {
	Date    time.Time
	Balance decimal.Decimal
}

type AccountBalance struct {
	AccountID uuid.UUID
	Currency  domain.Currency
	Balance   decimal.Decimal
}

// Calculator folds an account's initial balance and movement history into
// balances. Each account is read independently and nothing is locked.
type Calculator struct {
	accounts      accountRepository
	movements     movementRepository
	loc           *time.Location
	maxSeriesDays int
}

func NewCalculator(accounts accountRepository, movements movementRepository, loc *time.Location, maxSeriesDays int) *Calculator {
	return &Calculator{
		accounts:      accounts,
		movements:     movements,
		loc:           loc,
		maxSeriesDays: maxSeriesDays,
	}
}

// BalanceAsOf sums the balances of ids at the end of civil date date. All
// accounts must share a currency.
func (c *Calculator) BalanceAsOf(ctx context.Context, ids []uuid.UUID, date time.Time) (decimal.Decimal, error) {
	accounts, err := c.load(ctx, ids)
	if err != nil {
		return decimal.Zero, fmt.Errorf("BalanceAsOf: %w", err)
	}

	total := decimal.Zero
	for _, acct := range accounts {
		b, err := c.accountBalance(ctx, acct, calendar.NextDayStart(date, c.loc))
		if err != nil {
			return decimal.Zero, fmt.Errorf("BalanceAsOf: %w", err)
		}
		total = total.Add(b)
	}
	return total, nil
}

// AccountBalancesAsOf is BalanceAsOf broken down per account. Currencies may
// be mixed since nothing is summed.
func (c *Calculator) AccountBalancesAsOf(ctx context.Context, ids []uuid.UUID, date time.Time) ([]AccountBalance, error) {
	accounts, err := c.fetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("AccountBalancesAsOf: %w", err)
	}

	out := make([]AccountBalance, 0, len(accounts))
	for _, acct := range accounts {
		b, err := c.accountBalance(ctx, acct, calendar.NextDayStart(date, c.loc))
		if err != nil {
			return nil, fmt.Errorf("AccountBalancesAsOf: %w", err)
		}
		out = append(out, AccountBalance{AccountID: acct.ID, Currency: acct.Currency, Balance: b})
	}
	return out, nil
}

// DailySeries returns one point per civil date in [from, to]. Ranges longer
// than the configured maximum are rejected; use WalkDailySeries to stream.
func (c *Calculator) DailySeries(ctx context.Context, ids []uuid.UUID, from, to time.Time) ([]Point, error) {
	if c.maxSeriesDays > 0 && calendar.DaysBetween(from, to)+1 > c.maxSeriesDays {
		return nil, fmt.Errorf("DailySeries: range exceeds %d days: %w", c.maxSeriesDays, domain.ErrInvalidPeriod)
	}

	points := make([]Point, 0)
	err := c.WalkDailySeries(ctx, ids, from, to, func(p Point) error {
		points = append(points, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("DailySeries: %w", err)
	}
	return points, nil
}

// WalkDailySeries calls fn once per civil date in [from, to], in order. The
// running balance is carried forward and only the movements of each window
// are read, so memory is bounded by the window rather than the range.
func (c *Calculator) WalkDailySeries(ctx context.Context, ids []uuid.UUID, from, to time.Time, fn func(Point) error) error {
	from, to = calendar.Truncate(from), calendar.Truncate(to)
	if to.Before(from) {
		return fmt.Errorf("WalkDailySeries: %s after %s: %w",
			from.Format(calendar.Layout), to.Format(calendar.Layout), domain.ErrInvalidPeriod)
	}

	accounts, err := c.load(ctx, ids)
	if err != nil {
		return fmt.Errorf("WalkDailySeries: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	running := decimal.Zero
	for _, acct := range accounts {
		b, err := c.accountBalance(ctx, acct, calendar.StartOfDay(from, c.loc))
		if err != nil {
			return fmt.Errorf("WalkDailySeries: opening: %w", err)
		}
		running = running.Add(b)
	}

	for start := from; !start.After(to); start = start.AddDate(0, 0, windowDays) {
		end := start.AddDate(0, 0, windowDays-1)
		if end.After(to) {
			end = to
		}

		deltas, err := c.windowDeltas(ctx, accounts, start, end)
		if err != nil {
			return fmt.Errorf("WalkDailySeries: %w", err)
		}

		for i, delta := range deltas {
			running = running.Add(delta)
			if err := fn(Point{Date: start.AddDate(0, 0, i), Balance: running}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Calculator) windowDeltas(ctx context.Context, accounts []domain.Account, start, end time.Time) ([]decimal.Decimal, error) {
	deltas := make([]decimal.Decimal, calendar.DaysBetween(start, end)+1)
	for i := range deltas {
		deltas[i] = decimal.Zero
	}

	lower := calendar.StartOfDay(start, c.loc)
	upper := calendar.NextDayStart(end, c.loc)
	for _, acct := range accounts {
		err := c.movements.Stream(ctx, acct.ID, lower, upper, func(m *domain.Movement) error {
			i := calendar.DaysBetween(start, calendar.Of(m.OccurredAt, c.loc))
			if i < 0 || i >= len(deltas) {
				return nil
			}
			deltas[i] = deltas[i].Add(m.SignedEffect(acct.Currency))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acct.ID, err)
		}
	}
	return deltas, nil
}

// accountBalance folds every movement that occurred strictly before the
// given instant.
func (c *Calculator) accountBalance(ctx context.Context, acct domain.Account, before time.Time) (decimal.Decimal, error) {
	balance := acct.InitialBalance
	err := c.movements.Stream(ctx, acct.ID, time.Time{}, before, func(m *domain.Movement) error {
		balance = balance.Add(m.SignedEffect(acct.Currency))
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s: %w", acct.ID, err)
	}
	return balance, nil
}

// load fetches the accounts and refuses to add up different currencies.
func (c *Calculator) load(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	accounts, err := c.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(accounts); i++ {
		if a := accounts[i]; a.Currency != accounts[0].Currency {
			return nil, fmt.Errorf("accounts %s (%s) and %s (%s): %w",
				accounts[0].ID, accounts[0].Currency, a.ID, a.Currency, domain.ErrCurrencyMismatch)
		}
	}
	return accounts, nil
}

func (c *Calculator) fetch(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	accounts, err := c.accounts.GetByIDs(ctx, unique)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", err, domain.ErrAccountNotFound)
		}
		return nil, err
	}
	return accounts, nil
}
