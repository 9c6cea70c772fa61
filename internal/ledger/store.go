package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/fx"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

type accountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type movementRepository interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Movement, int, error)
}

type converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, currency domain.Currency, date time.Time) (*fx.Conversion, error)
}

type RecordRequest struct {
	AccountID   uuid.UUID
	Kind        domain.MovementKind
	Amount      decimal.Decimal
	Currency    domain.Currency
	OccurredAt  time.Time
	PaymentID   *uuid.UUID
	OperationID *uuid.UUID
	Description string
}

type OpenAccountRequest struct {
	AgencyID       *uuid.UUID
	Name           string
	Kind           domain.AccountKind
	Currency       domain.Currency
	InitialBalance decimal.Decimal
}

// Store appends movements to accounts, stamping each with its
// reporting-currency equivalent at write time. Nothing is written when the
// equivalent cannot be computed.
type Store struct {
	accounts  accountRepository
	movements movementRepository
	fx        converter
	db        *sql.DB
	loc       *time.Location
	now       func() time.Time
}

func NewStore(accounts accountRepository, movements movementRepository, fxSvc converter, db *sql.DB, loc *time.Location) *Store {
	return &Store{
		accounts:  accounts,
		movements: movements,
		fx:        fxSvc,
		db:        db,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Store) Record(ctx context.Context, req RecordRequest) (*domain.Movement, error) {
	m, err := s.prepare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.movements.Create(ctx, tx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	logging.FromContext(ctx).Info("movement recorded",
		"movement_id", m.ID,
		"account_id", m.AccountID,
		"kind", m.Kind,
		"amount", m.Amount.String(),
		"currency", m.Currency,
		"amount_reporting", m.AmountReporting.String(),
	)
	return m, nil
}

// RecordTx writes the movement inside the caller's transaction so it commits
// or rolls back together with the caller's own writes.
func (s *Store) RecordTx(ctx context.Context, tx *sql.Tx, req RecordRequest) (*domain.Movement, error) {
	m, err := s.prepare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("RecordTx: %w", err)
	}
	if err := s.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("RecordTx: %w", err)
	}
	return m, nil
}

func (s *Store) prepare(ctx context.Context, req RecordRequest) (*domain.Movement, error) {
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("kind %q: %w", req.Kind, domain.ErrInvalidMovementKind)
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.FitsScale(req.Amount) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places: %w", req.Amount, domain.AmountScale, domain.ErrInvalidAmount)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("currency %q: %w", req.Currency, domain.ErrInvalidCurrency)
	}
	if req.OccurredAt.IsZero() {
		return nil, fmt.Errorf("occurred_at required: %w", domain.ErrInvalidRequest)
	}

	acct, err := s.activeAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !acct.Accepts(req.Currency) {
		return nil, fmt.Errorf("account %s holds %s, movement in %s: %w",
			acct.ID, acct.Currency, req.Currency, domain.ErrCurrencyMismatch)
	}

	day := calendar.Of(req.OccurredAt, s.loc)
	conv, err := s.fx.Convert(ctx, req.Amount, req.Currency, day)
	if errors.Is(err, domain.ErrRateNotFound) {
		return nil, &domain.MissingRateError{AccountID: acct.ID, Date: day, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", acct.ID, err)
	}
	if !conv.Reporting.IsPositive() {
		return nil, fmt.Errorf("amount %s %s is below one cent in %s: %w",
			req.Amount, req.Currency, domain.ReportingCurrency, domain.ErrInvalidAmount)
	}

	return &domain.Movement{
		ID:              uuid.New(),
		AccountID:       acct.ID,
		Kind:            req.Kind,
		Currency:        req.Currency,
		Amount:          conv.Amount,
		AmountReporting: conv.Reporting,
		ExchangeRate:    conv.Rate,
		OccurredAt:      req.OccurredAt.UTC(),
		PaymentID:       req.PaymentID,
		OperationID:     req.OperationID,
		Description:     req.Description,
		CreatedAt:       s.now().UTC(),
	}, nil
}

// Reverse appends a movement of the offsetting kind carrying the original's
// amounts and rate snapshot. A movement can be reversed once.
func (s *Store) Reverse(ctx context.Context, movementID uuid.UUID, at time.Time, note string) (*domain.Movement, error) {
	orig, err := s.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	if orig.ReversesMovementID != nil {
		return nil, fmt.Errorf("Reverse: movement %s is itself a reversal: %w", orig.ID, domain.ErrInvalidRequest)
	}

	if _, err := s.activeAccount(ctx, orig.AccountID); err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}

	if at.IsZero() {
		at = s.now()
	}
	if note == "" {
		note = "reversal of " + orig.ID.String()
	}

	origID := orig.ID
	m := &domain.Movement{
		ID:                 uuid.New(),
		AccountID:          orig.AccountID,
		Kind:               orig.Kind.Offsetting(),
		Currency:           orig.Currency,
		Amount:             orig.Amount,
		AmountReporting:    orig.AmountReporting,
		ExchangeRate:       orig.ExchangeRate,
		OccurredAt:         at.UTC(),
		PaymentID:          orig.PaymentID,
		OperationID:        orig.OperationID,
		ReversesMovementID: &origID,
		Description:        note,
		CreatedAt:          s.now().UTC(),
	}

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.movements.Create(ctx, tx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}

	logging.FromContext(ctx).Info("movement reversed",
		"movement_id", m.ID,
		"reverses_movement_id", orig.ID,
		"account_id", m.AccountID,
		"kind", m.Kind,
	)
	return m, nil
}

func (s *Store) Movements(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Movement, int, error) {
	if _, err := s.account(ctx, accountID); err != nil {
		return nil, 0, fmt.Errorf("Movements: %w", err)
	}
	movements, total, err := s.movements.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Movements: %w", err)
	}
	return movements, total, nil
}

func (s *Store) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("OpenAccount: kind %q: %w", req.Kind, domain.ErrInvalidAccountKind)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("OpenAccount: currency %q: %w", req.Currency, domain.ErrInvalidCurrency)
	}
	if implied, ok := req.Kind.ImpliedCurrency(); ok && implied != req.Currency {
		return nil, fmt.Errorf("OpenAccount: %s account cannot hold %s: %w", req.Kind, req.Currency, domain.ErrCurrencyMismatch)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("OpenAccount: name required: %w", domain.ErrInvalidRequest)
	}
	if !domain.FitsScale(req.InitialBalance) {
		return nil, fmt.Errorf("OpenAccount: initial balance %s: %w", req.InitialBalance, domain.ErrInvalidAmount)
	}

	acct := &domain.Account{
		ID:             uuid.New(),
		AgencyID:       req.AgencyID,
		Name:           req.Name,
		Kind:           req.Kind,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account opened",
		"account_id", acct.ID,
		"kind", acct.Kind,
		"currency", acct.Currency,
	)
	return acct, nil
}

// DeactivateAccount stops new movements; history and balances stay intact.
func (s *Store) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.accounts.Deactivate(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("DeactivateAccount: %w", domain.ErrAccountNotFound)
		}
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	logging.FromContext(ctx).Info("account deactivated", "account_id", id)
	return nil
}

func (s *Store) account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
		}
		return nil, err
	}
	return acct, nil
}

func (s *Store) activeAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acct, err := s.account(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acct.Active {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrAccountInactive)
	}
	return acct, nil
}
