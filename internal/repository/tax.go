package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

type TaxRepository struct {
	db *sql.DB
}

func NewTaxRepository(db *sql.DB) *TaxRepository {
	return &TaxRepository{db: db}
}

func taxTable(side domain.TaxSide) (string, error) {
	switch side {
	case domain.TaxSideSales:
		return "tax_sales", nil
	case domain.TaxSidePurchases:
		return "tax_purchases", nil
	default:
		return "", fmt.Errorf("unknown tax side %q: %w", side, domain.ErrInvalidRequest)
	}
}

func (r *TaxRepository) Create(ctx context.Context, rec *domain.TaxRecord) error {
	table, err := taxTable(rec.Side)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (
			id, operation_id, record_date, invoice_number, net_amount, tax_rate, tax_amount, created_at
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)`,
		rec.ID, rec.OperationID, rec.RecordDate.Format(calendar.Layout), rec.InvoiceNumber,
		rec.NetAmount, rec.TaxRate, rec.TaxAmount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// SumTax totals tax_amount for records dated within [from, to], both
// inclusive civil dates.
func (r *TaxRepository) SumTax(ctx context.Context, side domain.TaxSide, from, to time.Time) (decimal.Decimal, error) {
	table, err := taxTable(side)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumTax: %w", err)
	}

	var total decimal.Decimal
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tax_amount), 0) FROM `+table+`
		WHERE record_date BETWEEN $1::date AND $2::date`,
		from.Format(calendar.Layout), to.Format(calendar.Layout),
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumTax: %w", err)
	}
	return total, nil
}

// MonthlyTotals groups a year's tax_amount by calendar month. Months without
// records are absent from the map.
func (r *TaxRepository) MonthlyTotals(ctx context.Context, side domain.TaxSide, year int) (map[time.Month]decimal.Decimal, error) {
	table, err := taxTable(side)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: %w", err)
	}

	first, _ := calendar.MonthBounds(year, time.January)
	_, last := calendar.MonthBounds(year, time.December)

	rows, err := r.db.QueryContext(ctx,
		`SELECT EXTRACT(MONTH FROM record_date)::int, SUM(tax_amount) FROM `+table+`
		WHERE record_date BETWEEN $1::date AND $2::date
		GROUP BY 1 ORDER BY 1`,
		first.Format(calendar.Layout), last.Format(calendar.Layout),
	)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: %w", err)
	}
	defer rows.Close()

	totals := make(map[time.Month]decimal.Decimal, 12)
	for rows.Next() {
		var (
			m   int
			sum decimal.Decimal
		)
		if err := rows.Scan(&m, &sum); err != nil {
			return nil, fmt.Errorf("MonthlyTotals: scan: %w", err)
		}
		totals[time.Month(m)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyTotals: rows: %w", err)
	}
	return totals, nil
}
