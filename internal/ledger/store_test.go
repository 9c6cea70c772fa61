package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/fx"
)

type fakeAccounts struct {
	byID    map[uuid.UUID]*domain.Account
	created []*domain.Account
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) Create(_ context.Context, a *domain.Account) error {
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAccounts) Deactivate(_ context.Context, id uuid.UUID) error {
	a, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Active = false
	return nil
}

type fakeMovements struct {
	created []*domain.Movement
}

func (f *fakeMovements) Create(_ context.Context, _ *sql.Tx, m *domain.Movement) error {
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMovements) GetByID(_ context.Context, _ uuid.UUID) (*domain.Movement, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeMovements) GetByAccountID(_ context.Context, _ uuid.UUID, _, _ int) ([]domain.Movement, int, error) {
	return nil, 0, nil
}

type fakeConverter struct {
	rate  *decimal.Decimal
	calls int
}

func (f *fakeConverter) Convert(_ context.Context, amount decimal.Decimal, currency domain.Currency, _ time.Time) (*fx.Conversion, error) {
	f.calls++
	if currency == domain.ReportingCurrency {
		return &fx.Conversion{Amount: amount, Reporting: amount}, nil
	}
	if f.rate == nil {
		return nil, domain.ErrRateNotFound
	}
	return &fx.Conversion{Amount: amount, Reporting: amount.Mul(*f.rate).Round(2), Rate: f.rate}, nil
}

func newTestStore(accounts ...*domain.Account) (*Store, *fakeMovements, *fakeConverter) {
	byID := make(map[uuid.UUID]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	movements := &fakeMovements{}
	conv := &fakeConverter{}
	return NewStore(&fakeAccounts{byID: byID}, movements, conv, nil, time.UTC), movements, conv
}

func account(currency domain.Currency, active bool) *domain.Account {
	kind := domain.AccountKindCashARS
	if currency == domain.CurrencyUSD {
		kind = domain.AccountKindCashUSD
	}
	return &domain.Account{ID: uuid.New(), Kind: kind, Currency: currency, Active: active}
}

func TestRecord_RejectsBeforeWriting(t *testing.T) {
	ars := account(domain.CurrencyARS, true)
	usd := account(domain.CurrencyUSD, true)
	closed := account(domain.CurrencyARS, false)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     RecordRequest
		wantErr error
	}{
		{
			name:    "zero amount",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindIncome, Amount: decimal.Zero, Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindExpense, Amount: decimal.NewFromInt(-5), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount rounds to zero when stored",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindIncome, Amount: decimal.RequireFromString("0.00001"), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount finer than stored precision",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindIncome, Amount: decimal.RequireFromString("10.123456"), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "unknown kind",
			req:     RecordRequest{AccountID: ars.ID, Kind: "REFUND", Amount: decimal.NewFromInt(5), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrInvalidMovementKind,
		},
		{
			name:    "unknown currency",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: "EUR", OccurredAt: at},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "missing timestamp",
			req:     RecordRequest{AccountID: ars.ID, Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: domain.CurrencyARS},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown account",
			req:     RecordRequest{AccountID: uuid.New(), Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "inactive account",
			req:     RecordRequest{AccountID: closed.ID, Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrAccountInactive,
		},
		{
			name:    "reporting currency into foreign account",
			req:     RecordRequest{AccountID: usd.ID, Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: domain.CurrencyARS, OccurredAt: at},
			wantErr: domain.ErrCurrencyMismatch,
		},
		{
			name:    "foreign currency without rate",
			req:     RecordRequest{AccountID: usd.ID, Kind: domain.MovementKindIncome, Amount: decimal.NewFromInt(5), Currency: domain.CurrencyUSD, OccurredAt: at},
			wantErr: domain.ErrRateNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, movements, _ := newTestStore(ars, usd, closed)

			_, err := store.Record(context.Background(), tc.req)

			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, movements.created)
		})
	}
}

func TestRecord_RateErrorNamesAccount(t *testing.T) {
	usd := account(domain.CurrencyUSD, true)
	store, _, _ := newTestStore(usd)

	_, err := store.Record(context.Background(), RecordRequest{
		AccountID:  usd.ID,
		Kind:       domain.MovementKindIncome,
		Amount:     decimal.NewFromInt(100),
		Currency:   domain.CurrencyUSD,
		OccurredAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	})

	require.ErrorIs(t, err, domain.ErrRateNotFound)
	assert.Contains(t, err.Error(), usd.ID.String())

	var missing *domain.MissingRateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, usd.ID, missing.AccountID)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), missing.Date)
}

func TestPrepare_AcceptsTrailingZeros(t *testing.T) {
	ars := account(domain.CurrencyARS, true)
	store, _, _ := newTestStore(ars)

	m, err := store.prepare(context.Background(), RecordRequest{
		AccountID:  ars.ID,
		Kind:       domain.MovementKindIncome,
		Amount:     decimal.RequireFromString("10.120000"),
		Currency:   domain.CurrencyARS,
		OccurredAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.RequireFromString("10.12")))
}

func TestRecord_ReportingEquivalentBelowOneCent(t *testing.T) {
	usd := account(domain.CurrencyUSD, true)
	store, movements, conv := newTestStore(usd)
	rate := decimal.RequireFromString("0.5")
	conv.rate = &rate

	_, err := store.Record(context.Background(), RecordRequest{
		AccountID:  usd.ID,
		Kind:       domain.MovementKindIncome,
		Amount:     decimal.RequireFromString("0.0009"),
		Currency:   domain.CurrencyUSD,
		OccurredAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	})

	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, movements.created)
}

func TestPrepare_StampsReportingEquivalent(t *testing.T) {
	ars := account(domain.CurrencyARS, true)
	usd := account(domain.CurrencyUSD, true)
	store, _, conv := newTestStore(ars, usd)
	rate := decimal.NewFromInt(900)
	conv.rate = &rate
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("reporting currency needs no rate", func(t *testing.T) {
		m, err := store.prepare(context.Background(), RecordRequest{
			AccountID: ars.ID, Kind: domain.MovementKindIncome,
			Amount: decimal.NewFromInt(500), Currency: domain.CurrencyARS, OccurredAt: at,
		})
		require.NoError(t, err)
		assert.True(t, m.AmountReporting.Equal(decimal.NewFromInt(500)))
		assert.Nil(t, m.ExchangeRate)
	})

	t.Run("foreign movement into reporting account", func(t *testing.T) {
		m, err := store.prepare(context.Background(), RecordRequest{
			AccountID: ars.ID, Kind: domain.MovementKindIncome,
			Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, OccurredAt: at,
		})
		require.NoError(t, err)
		assert.True(t, m.Amount.Equal(decimal.NewFromInt(10)))
		assert.True(t, m.AmountReporting.Equal(decimal.NewFromInt(9000)))
		require.NotNil(t, m.ExchangeRate)
		assert.True(t, m.ExchangeRate.Equal(rate))
	})

	t.Run("foreign account still stamps reporting equivalent", func(t *testing.T) {
		m, err := store.prepare(context.Background(), RecordRequest{
			AccountID: usd.ID, Kind: domain.MovementKindExpense,
			Amount: decimal.NewFromInt(2), Currency: domain.CurrencyUSD, OccurredAt: at,
		})
		require.NoError(t, err)
		assert.True(t, m.AmountReporting.Equal(decimal.NewFromInt(1800)))
	})
}

func TestOpenAccount(t *testing.T) {
	tests := []struct {
		name    string
		req     OpenAccountRequest
		wantErr error
	}{
		{
			name: "cash ARS",
			req:  OpenAccountRequest{Name: "Caja ARS", Kind: domain.AccountKindCashARS, Currency: domain.CurrencyARS, InitialBalance: decimal.NewFromInt(1000)},
		},
		{
			name: "bank in USD",
			req:  OpenAccountRequest{Name: "Banco USD", Kind: domain.AccountKindBank, Currency: domain.CurrencyUSD},
		},
		{
			name:    "initial balance finer than stored precision",
			req:     OpenAccountRequest{Name: "Caja", Kind: domain.AccountKindCashARS, Currency: domain.CurrencyARS, InitialBalance: decimal.RequireFromString("0.00001")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "kind implies other currency",
			req:     OpenAccountRequest{Name: "Caja", Kind: domain.AccountKindCashUSD, Currency: domain.CurrencyARS},
			wantErr: domain.ErrCurrencyMismatch,
		},
		{
			name:    "unknown kind",
			req:     OpenAccountRequest{Name: "Crypto", Kind: "crypto", Currency: domain.CurrencyUSD},
			wantErr: domain.ErrInvalidAccountKind,
		},
		{
			name:    "missing name",
			req:     OpenAccountRequest{Kind: domain.AccountKindBank, Currency: domain.CurrencyUSD},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &fakeAccounts{byID: map[uuid.UUID]*domain.Account{}}
			store := NewStore(accounts, &fakeMovements{}, &fakeConverter{}, nil, time.UTC)

			acct, err := store.OpenAccount(context.Background(), tc.req)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, accounts.created)
				return
			}
			require.NoError(t, err)
			assert.True(t, acct.Active)
			assert.Len(t, accounts.created, 1)
		})
	}
}

func TestDeactivateAccount_Unknown(t *testing.T) {
	store, _, _ := newTestStore()
	err := store.DeactivateAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
