package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type taxRepository interface {
	Create(ctx context.Context, rec *domain.TaxRecord) error
	SumTax(ctx context.Context, side domain.TaxSide, from, to time.Time) (decimal.Decimal, error)
	MonthlyTotals(ctx context.Context, side domain.TaxSide, year int) (map[time.Month]decimal.Decimal, error)
}

type RecordRequest struct {
	Side          domain.TaxSide
	OperationID   *uuid.UUID
	RecordDate    time.Time
	InvoiceNumber string
	NetAmount     decimal.Decimal
	// TaxRate is a fraction: 0.21 for the general IVA rate.
	TaxRate decimal.Decimal
}

// Aggregator summarizes IVA by calendar month. Record dates are civil dates
// already expressed in the ledger's zone, so month bounds need no conversion.
type Aggregator struct {
	records taxRepository
	now     func() time.Time
}

func NewAggregator(records taxRepository) *Aggregator {
	return &Aggregator{records: records, now: time.Now}
}

// MonthlySummary sums both sides over [first, last] day of the month.
// NetPayable is negative when purchases exceed sales (a credit).
func (a *Aggregator) MonthlySummary(ctx context.Context, year int, month time.Month) (*domain.TaxSummary, error) {
	if err := validateYear(year); err != nil {
		return nil, fmt.Errorf("MonthlySummary: %w", err)
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("MonthlySummary: month %d: %w", month, domain.ErrInvalidPeriod)
	}

	first, last := calendar.MonthBounds(year, month)

	sales, err := a.records.SumTax(ctx, domain.TaxSideSales, first, last)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: sales: %w", err)
	}
	purchases, err := a.records.SumTax(ctx, domain.TaxSidePurchases, first, last)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: purchases: %w", err)
	}

	return summary(year, month, sales, purchases), nil
}

// AnnualBreakdown returns twelve monthly summaries, zero-filled.
func (a *Aggregator) AnnualBreakdown(ctx context.Context, year int) ([]domain.TaxSummary, error) {
	if err := validateYear(year); err != nil {
		return nil, fmt.Errorf("AnnualBreakdown: %w", err)
	}

	sales, err := a.records.MonthlyTotals(ctx, domain.TaxSideSales, year)
	if err != nil {
		return nil, fmt.Errorf("AnnualBreakdown: sales: %w", err)
	}
	purchases, err := a.records.MonthlyTotals(ctx, domain.TaxSidePurchases, year)
	if err != nil {
		return nil, fmt.Errorf("AnnualBreakdown: purchases: %w", err)
	}

	out := make([]domain.TaxSummary, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, *summary(year, m, sales[m], purchases[m]))
	}
	return out, nil
}

// Record stores one invoice line. The tax amount is derived from the net
// amount and rate, rounded to cents.
func (a *Aggregator) Record(ctx context.Context, req RecordRequest) (*domain.TaxRecord, error) {
	if !req.Side.IsValid() {
		return nil, fmt.Errorf("Record: side %q: %w", req.Side, domain.ErrInvalidRequest)
	}
	if !req.NetAmount.IsPositive() || !domain.FitsScale(req.NetAmount) {
		return nil, fmt.Errorf("Record: net amount %s: %w", req.NetAmount, domain.ErrInvalidAmount)
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) || !domain.FitsScale(req.TaxRate) {
		return nil, fmt.Errorf("Record: tax rate %s: %w", req.TaxRate, domain.ErrInvalidRate)
	}
	if req.RecordDate.IsZero() {
		return nil, fmt.Errorf("Record: record date required: %w", domain.ErrInvalidRequest)
	}

	rec := &domain.TaxRecord{
		ID:            uuid.New(),
		Side:          req.Side,
		OperationID:   req.OperationID,
		RecordDate:    calendar.Truncate(req.RecordDate),
		InvoiceNumber: req.InvoiceNumber,
		NetAmount:     req.NetAmount,
		TaxRate:       req.TaxRate,
		TaxAmount:     req.NetAmount.Mul(req.TaxRate).Round(2),
		CreatedAt:     a.now().UTC(),
	}
	if err := a.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	logging.FromContext(ctx).Info("tax record stored",
		"tax_record_id", rec.ID,
		"side", rec.Side,
		"record_date", rec.RecordDate.Format(calendar.Layout),
	)
	return rec, nil
}

func summary(year int, month time.Month, sales, purchases decimal.Decimal) *domain.TaxSummary {
	return &domain.TaxSummary{
		Year:         year,
		Month:        month,
		SalesTax:     sales,
		PurchasesTax: purchases,
		NetPayable:   sales.Sub(purchases),
	}
}

func validateYear(year int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("year %d: %w", year, domain.ErrInvalidPeriod)
	}
	return nil
}
