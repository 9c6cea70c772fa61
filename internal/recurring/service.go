package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type definitionRepository interface {
	Create(ctx context.Context, d *domain.RecurringDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringDefinition, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type obligationReader interface {
	GetByDefinitionID(ctx context.Context, definitionID uuid.UUID) ([]domain.Obligation, error)
}

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type CreateDefinitionRequest struct {
	AccountID    uuid.UUID
	Counterparty string
	Description  string
	Amount       decimal.Decimal
	Currency     domain.Currency
	Frequency    domain.Frequency
	StartDate    time.Time
	EndDate      *time.Time
}

// Service manages recurring definitions. Generation itself is the
// Scheduler's job.
type Service struct {
	definitions definitionRepository
	obligations obligationReader
	accounts    accountReader
	now         func() time.Time
}

func NewService(definitions definitionRepository, obligations obligationReader, accounts accountReader) *Service {
	return &Service{
		definitions: definitions,
		obligations: obligations,
		accounts:    accounts,
		now:         time.Now,
	}
}

func (s *Service) CreateDefinition(ctx context.Context, req CreateDefinitionRequest) (*domain.RecurringDefinition, error) {
	if !req.Frequency.IsValid() {
		return nil, fmt.Errorf("CreateDefinition: frequency %q: %w", req.Frequency, domain.ErrInvalidFrequency)
	}
	if !req.Amount.IsPositive() || !domain.FitsScale(req.Amount) {
		return nil, fmt.Errorf("CreateDefinition: amount %s: %w", req.Amount, domain.ErrInvalidAmount)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("CreateDefinition: currency %q: %w", req.Currency, domain.ErrInvalidCurrency)
	}
	if req.Counterparty == "" {
		return nil, fmt.Errorf("CreateDefinition: counterparty required: %w", domain.ErrInvalidRequest)
	}
	if req.StartDate.IsZero() {
		return nil, fmt.Errorf("CreateDefinition: start date required: %w", domain.ErrInvalidPeriod)
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("CreateDefinition: end date before start date: %w", domain.ErrInvalidPeriod)
	}

	acct, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("CreateDefinition: account %s: %w", req.AccountID, domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("CreateDefinition: %w", err)
	}
	if !acct.Active {
		return nil, fmt.Errorf("CreateDefinition: account %s: %w", acct.ID, domain.ErrAccountInactive)
	}
	if !acct.Accepts(req.Currency) {
		return nil, fmt.Errorf("CreateDefinition: account %s holds %s: %w", acct.ID, acct.Currency, domain.ErrCurrencyMismatch)
	}

	def := &domain.RecurringDefinition{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Counterparty: req.Counterparty,
		Description:  req.Description,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Frequency:    req.Frequency,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.definitions.Create(ctx, def); err != nil {
		return nil, fmt.Errorf("CreateDefinition: %w", err)
	}

	logging.FromContext(ctx).Info("recurring definition created",
		"definition_id", def.ID,
		"account_id", def.AccountID,
		"frequency", def.Frequency,
	)
	return def, nil
}

// DeactivateDefinition stops future generation. Obligations already
// generated, and their movements, stay.
func (s *Service) DeactivateDefinition(ctx context.Context, id uuid.UUID) error {
	if err := s.definitions.Deactivate(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("DeactivateDefinition: %w", domain.ErrDefinitionNotFound)
		}
		return fmt.Errorf("DeactivateDefinition: %w", err)
	}
	logging.FromContext(ctx).Info("recurring definition deactivated", "definition_id", id)
	return nil
}

func (s *Service) Obligations(ctx context.Context, definitionID uuid.UUID) ([]domain.Obligation, error) {
	if _, err := s.definitions.GetByID(ctx, definitionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Obligations: %w", domain.ErrDefinitionNotFound)
		}
		return nil, fmt.Errorf("Obligations: %w", err)
	}
	obligations, err := s.obligations.GetByDefinitionID(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("Obligations: %w", err)
	}
	return obligations, nil
}
