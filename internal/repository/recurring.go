package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const definitionColumns = `id, account_id, counterparty, description, amount, currency,
	frequency, start_date, end_date, active, created_at`

type DefinitionRepository struct {
	db *sql.DB
}

func NewDefinitionRepository(db *sql.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func (r *DefinitionRepository) Create(ctx context.Context, d *domain.RecurringDefinition) error {
	var endDate *string
	if d.EndDate != nil {
		s := d.EndDate.Format(calendar.Layout)
		endDate = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions (
			id, account_id, counterparty, description, amount, currency,
			frequency, start_date, end_date, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9::date, $10, $11)`,
		d.ID, d.AccountID, d.Counterparty, d.Description, d.Amount, d.Currency,
		d.Frequency, d.StartDate.Format(calendar.Layout), endDate, d.Active, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *DefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = $1`, id,
	)
	d, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return d, nil
}

// ListActive returns active definitions that started on or before asOf.
func (r *DefinitionRepository) ListActive(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions
		WHERE active AND start_date <= $1::date ORDER BY created_at`,
		asOf.Format(calendar.Layout),
	)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	var defs []domain.RecurringDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: scan: %w", err)
		}
		defs = append(defs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: rows: %w", err)
	}
	return defs, nil
}

func (r *DefinitionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET active = FALSE WHERE id = $1`, id,
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

func scanDefinition(s scanner) (*domain.RecurringDefinition, error) {
	var (
		d       domain.RecurringDefinition
		endDate sql.NullTime
	)
	err := s.Scan(
		&d.ID, &d.AccountID, &d.Counterparty, &d.Description, &d.Amount, &d.Currency,
		&d.Frequency, &d.StartDate, &endDate, &d.Active, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.StartDate = calendar.Truncate(d.StartDate)
	if endDate.Valid {
		end := calendar.Truncate(endDate.Time)
		d.EndDate = &end
	}
	return &d, nil
}

type ObligationRepository struct {
	db *sql.DB
}

func NewObligationRepository(db *sql.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

// Claim inserts the obligation unless one already exists for its
// (definition, period). It reports false when the period was already taken;
// a concurrent claimer blocks on the unique key until the first commits.
func (r *ObligationRepository) Claim(ctx context.Context, tx *sql.Tx, o *domain.Obligation) (bool, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx,
		`INSERT INTO recurring_obligations (id, definition_id, period_start, amount, currency, created_at)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		ON CONFLICT (definition_id, period_start) DO NOTHING
		RETURNING id`,
		o.ID, o.DefinitionID, o.PeriodStart.Format(calendar.Layout), o.Amount, o.Currency, o.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Claim: %w", err)
	}
	return true, nil
}

func (r *ObligationRepository) AttachMovement(ctx context.Context, tx *sql.Tx, obligationID, movementID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE recurring_obligations SET movement_id = $1 WHERE id = $2`,
		movementID, obligationID,
	)
	if err != nil {
		return fmt.Errorf("AttachMovement: %w", err)
	}
	return nil
}

// Periods returns the period starts already materialized for a definition.
func (r *ObligationRepository) Periods(ctx context.Context, definitionID uuid.UUID) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period_start FROM recurring_obligations WHERE definition_id = $1`, definitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("Periods: %w", err)
	}
	defer rows.Close()

	var periods []time.Time
	for rows.Next() {
		var p time.Time
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("Periods: scan: %w", err)
		}
		periods = append(periods, calendar.Truncate(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Periods: rows: %w", err)
	}
	return periods, nil
}

func (r *ObligationRepository) GetByDefinitionID(ctx context.Context, definitionID uuid.UUID) ([]domain.Obligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, definition_id, period_start, amount, currency, movement_id, created_at
		FROM recurring_obligations WHERE definition_id = $1 ORDER BY period_start`,
		definitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByDefinitionID: %w", err)
	}
	defer rows.Close()

	var obligations []domain.Obligation
	for rows.Next() {
		var o domain.Obligation
		err := rows.Scan(&o.ID, &o.DefinitionID, &o.PeriodStart, &o.Amount, &o.Currency, &o.MovementID, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("GetByDefinitionID: scan: %w", err)
		}
		o.PeriodStart = calendar.Truncate(o.PeriodStart)
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByDefinitionID: rows: %w", err)
	}
	return obligations, nil
}
