package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func SeedAccount(t *testing.T, db *sql.DB, kind domain.AccountKind, currency domain.Currency, initial string) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:             uuid.New(),
		Name:           string(kind) + " box",
		Kind:           kind,
		Currency:       currency,
		InitialBalance: decimal.RequireFromString(initial),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO financial_accounts (id, name, kind, currency, initial_balance, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Kind, a.Currency, a.InitialBalance, a.Active, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s/%s: %v", kind, currency, err)
	}
	return a
}

func SeedDailyRate(t *testing.T, db *sql.DB, date time.Time, rate string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO exchange_rates_daily (rate_date, rate) VALUES ($1::date, $2)
		 ON CONFLICT (rate_date) DO UPDATE SET rate = EXCLUDED.rate`,
		date.Format(calendar.Layout), rate,
	)
	if err != nil {
		t.Fatalf("seed daily rate %s: %v", date.Format(calendar.Layout), err)
	}
}

func SeedDefinition(t *testing.T, db *sql.DB, accountID uuid.UUID, freq domain.Frequency, amount string, currency domain.Currency, start time.Time) *domain.RecurringDefinition {
	t.Helper()

	d := &domain.RecurringDefinition{
		ID:           uuid.New(),
		AccountID:    accountID,
		Counterparty: "Operator SA",
		Description:  "hotel allotment",
		Amount:       decimal.RequireFromString(amount),
		Currency:     currency,
		Frequency:    freq,
		StartDate:    start,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO recurring_definitions (id, account_id, counterparty, description, amount, currency, frequency, start_date, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10)`,
		d.ID, d.AccountID, d.Counterparty, d.Description, d.Amount, d.Currency, d.Frequency,
		d.StartDate.Format(calendar.Layout), d.Active, d.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed definition: %v", err)
	}
	return d
}

func CountMovements(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_movements WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count movements for account %s: %v", accountID, err)
	}
	return count
}

func CountObligations(t *testing.T, db *sql.DB, definitionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM recurring_obligations WHERE definition_id = $1`, definitionID).Scan(&count)
	if err != nil {
		t.Fatalf("count obligations for definition %s: %v", definitionID, err)
	}
	return count
}
