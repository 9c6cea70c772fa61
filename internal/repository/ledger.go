package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const movementColumns = `id, account_id, kind, currency, amount, amount_reporting,
	exchange_rate, occurred_at, payment_id, operation_id, reverses_movement_id,
	description, created_at`

// MovementRepository is append-only: it exposes no update or delete.
type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_movements (
			id, account_id, kind, currency, amount, amount_reporting,
			exchange_rate, occurred_at, payment_id, operation_id, reverses_movement_id,
			description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.AccountID, m.Kind, m.Currency, m.Amount, m.AmountReporting,
		nullDecimal(m.ExchangeRate), m.OccurredAt, m.PaymentID, m.OperationID, m.ReversesMovementID,
		m.Description, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && m.ReversesMovementID != nil {
			return fmt.Errorf("Create: %w", domain.ErrAlreadyReversed)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM ledger_movements WHERE id = $1`, id,
	)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

func (r *MovementRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Movement, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_movements WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM ledger_movements
		WHERE account_id = $1 ORDER BY occurred_at DESC, created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByAccountID: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: rows: %w", err)
	}
	return movements, total, nil
}

// Stream calls fn for every movement of accountID with from <= occurred_at <
// before, in occurrence order. A zero from means no lower bound. Rows are
// never materialized as a whole.
func (r *MovementRepository) Stream(ctx context.Context, accountID uuid.UUID, from, before time.Time, fn func(*domain.Movement) error) error {
	query := `SELECT ` + movementColumns + ` FROM ledger_movements
		WHERE account_id = $1 AND occurred_at < $2`
	args := []any{accountID, before}
	if !from.IsZero() {
		query += ` AND occurred_at >= $3`
		args = append(args, from)
	}
	query += ` ORDER BY occurred_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("Stream: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return fmt.Errorf("Stream: scan: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("Stream: rows: %w", err)
	}
	return nil
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var (
		m    domain.Movement
		rate decimal.NullDecimal
	)
	err := s.Scan(
		&m.ID, &m.AccountID, &m.Kind, &m.Currency, &m.Amount, &m.AmountReporting,
		&rate, &m.OccurredAt, &m.PaymentID, &m.OperationID, &m.ReversesMovementID,
		&m.Description, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rate.Valid {
		m.ExchangeRate = &rate.Decimal
	}
	return &m, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
