package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const accountColumns = `id, agency_id, name, kind, currency, initial_balance, active, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM financial_accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// GetByIDs returns the accounts in the order of ids. Missing ids are reported
// as domain.ErrNotFound naming the first one absent.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM financial_accounts WHERE id = ANY($1::uuid[])`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]domain.Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIDs: scan: %w", err)
		}
		found[a.ID] = *a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByIDs: rows: %w", err)
	}

	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("GetByIDs: account %s: %w", id, domain.ErrNotFound)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO financial_accounts (
			id, agency_id, name, kind, currency, initial_balance, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.AgencyID, account.Name, account.Kind, account.Currency,
		account.InitialBalance, account.Active, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE financial_accounts SET active = FALSE WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Deactivate: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.AgencyID, &a.Name, &a.Kind, &a.Currency,
		&a.InitialBalance, &a.Active, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
