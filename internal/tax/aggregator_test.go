package tax

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

type fakeRecords struct {
	records []domain.TaxRecord
	err     error
}

func (f *fakeRecords) Create(_ context.Context, rec *domain.TaxRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeRecords) SumTax(_ context.Context, side domain.TaxSide, from, to time.Time) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	total := decimal.Zero
	for _, r := range f.records {
		if r.Side == side && !r.RecordDate.Before(from) && !r.RecordDate.After(to) {
			total = total.Add(r.TaxAmount)
		}
	}
	return total, nil
}

func (f *fakeRecords) MonthlyTotals(_ context.Context, side domain.TaxSide, year int) (map[time.Month]decimal.Decimal, error) {
	out := map[time.Month]decimal.Decimal{}
	for _, r := range f.records {
		if r.Side == side && r.RecordDate.Year() == year {
			out[r.RecordDate.Month()] = out[r.RecordDate.Month()].Add(r.TaxAmount)
		}
	}
	return out, nil
}

func rec(side domain.TaxSide, date time.Time, amount string) domain.TaxRecord {
	return domain.TaxRecord{Side: side, RecordDate: date, TaxAmount: decimal.RequireFromString(amount)}
}

func TestMonthlySummary(t *testing.T) {
	records := &fakeRecords{records: []domain.TaxRecord{
		rec(domain.TaxSideSales, calendar.Date(2024, 1, 31), "999"),
		rec(domain.TaxSideSales, calendar.Date(2024, 2, 1), "210"),
		rec(domain.TaxSideSales, calendar.Date(2024, 2, 29), "105.50"),
		rec(domain.TaxSideSales, calendar.Date(2024, 3, 1), "777"),
		rec(domain.TaxSidePurchases, calendar.Date(2024, 2, 15), "400"),
		rec(domain.TaxSidePurchases, calendar.Date(2024, 3, 1), "50"),
	}}
	agg := NewAggregator(records)

	got, err := agg.MonthlySummary(context.Background(), 2024, time.February)
	require.NoError(t, err)
	assert.True(t, got.SalesTax.Equal(decimal.RequireFromString("315.50")), "last day included, got %s", got.SalesTax)
	assert.True(t, got.PurchasesTax.Equal(decimal.NewFromInt(400)))
	assert.True(t, got.NetPayable.Equal(decimal.RequireFromString("-84.50")), "credit month, got %s", got.NetPayable)
}

func TestMonthlySummary_EmptyMonthIsZero(t *testing.T) {
	agg := NewAggregator(&fakeRecords{})

	got, err := agg.MonthlySummary(context.Background(), 2024, time.June)
	require.NoError(t, err)
	assert.True(t, got.SalesTax.IsZero())
	assert.True(t, got.PurchasesTax.IsZero())
	assert.True(t, got.NetPayable.IsZero())
}

func TestMonthlySummary_Validation(t *testing.T) {
	agg := NewAggregator(&fakeRecords{})
	ctx := context.Background()

	_, err := agg.MonthlySummary(ctx, 2024, time.Month(13))
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
	_, err = agg.MonthlySummary(ctx, 2024, time.Month(0))
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
	_, err = agg.MonthlySummary(ctx, 12, time.March)
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestMonthlySummary_StoreError(t *testing.T) {
	boom := errors.New("timeout")
	agg := NewAggregator(&fakeRecords{err: boom})

	_, err := agg.MonthlySummary(context.Background(), 2024, time.March)
	require.ErrorIs(t, err, boom)
}

func TestAnnualBreakdown_MatchesMonthlySummaries(t *testing.T) {
	records := &fakeRecords{records: []domain.TaxRecord{
		rec(domain.TaxSideSales, calendar.Date(2024, 1, 10), "100"),
		rec(domain.TaxSidePurchases, calendar.Date(2024, 1, 11), "30"),
		rec(domain.TaxSideSales, calendar.Date(2024, 12, 31), "42"),
		rec(domain.TaxSideSales, calendar.Date(2025, 1, 1), "1000"),
	}}
	agg := NewAggregator(records)
	ctx := context.Background()

	year, err := agg.AnnualBreakdown(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, year, 12)

	for _, s := range year {
		monthly, err := agg.MonthlySummary(ctx, 2024, s.Month)
		require.NoError(t, err)
		assert.True(t, s.NetPayable.Equal(monthly.NetPayable), "%s: %s vs %s", s.Month, s.NetPayable, monthly.NetPayable)
	}
	assert.True(t, year[0].NetPayable.Equal(decimal.NewFromInt(70)))
	assert.True(t, year[11].SalesTax.Equal(decimal.NewFromInt(42)))
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name    string
		req     RecordRequest
		wantTax string
		wantErr error
	}{
		{
			name:    "general rate",
			req:     RecordRequest{Side: domain.TaxSideSales, RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.RequireFromString("1234.56"), TaxRate: decimal.RequireFromString("0.21")},
			wantTax: "259.26",
		},
		{
			name:    "reduced rate",
			req:     RecordRequest{Side: domain.TaxSidePurchases, RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.NewFromInt(1000), TaxRate: decimal.RequireFromString("0.105")},
			wantTax: "105",
		},
		{
			name:    "unknown side",
			req:     RecordRequest{Side: "both", RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.NewFromInt(1), TaxRate: decimal.RequireFromString("0.21")},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "non positive net",
			req:     RecordRequest{Side: domain.TaxSideSales, RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.Zero, TaxRate: decimal.RequireFromString("0.21")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "net below storage precision",
			req:     RecordRequest{Side: domain.TaxSideSales, RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.RequireFromString("10.123456"), TaxRate: decimal.RequireFromString("0.21")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "rate given as percentage",
			req:     RecordRequest{Side: domain.TaxSideSales, RecordDate: calendar.Date(2024, 3, 5), NetAmount: decimal.NewFromInt(1), TaxRate: decimal.NewFromInt(21)},
			wantErr: domain.ErrInvalidRate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records := &fakeRecords{}
			agg := NewAggregator(records)

			got, err := agg.Record(context.Background(), tc.req)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, records.records)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.TaxAmount.Equal(decimal.RequireFromString(tc.wantTax)), "got %s", got.TaxAmount)
			assert.Len(t, records.records, 1)
		})
	}
}
