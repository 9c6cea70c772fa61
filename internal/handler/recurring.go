package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
)

type recurringService interface {
	CreateDefinition(ctx context.Context, req recurring.CreateDefinitionRequest) (*domain.RecurringDefinition, error)
	DeactivateDefinition(ctx context.Context, id uuid.UUID) error
	Obligations(ctx context.Context, definitionID uuid.UUID) ([]domain.Obligation, error)
}

type RecurringHandler struct {
	recurring recurringService
}

func NewRecurringHandler(svc recurringService) *RecurringHandler {
	return &RecurringHandler{recurring: svc}
}

type createDefinitionRequest struct {
	AccountID    uuid.UUID `json:"account_id"`
	Counterparty string    `json:"counterparty"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Frequency    string    `json:"frequency"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
}

func (r createDefinitionRequest) toServiceRequest() (recurring.CreateDefinitionRequest, []FieldError) {
	var errs []FieldError
	if r.AccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}
	if r.Counterparty == "" {
		errs = append(errs, FieldError{Field: "counterparty", Message: "required"})
	}
	amount := parseAmountField("amount", r.Amount, &errs)
	if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be ARS or USD"})
	}
	if !domain.Frequency(r.Frequency).IsValid() {
		errs = append(errs, FieldError{Field: "frequency", Message: "must be WEEKLY, BIWEEKLY, MONTHLY, QUARTERLY or YEARLY"})
	}
	start := parseDateField("start_date", r.StartDate, &errs)
	var end *time.Time
	if r.EndDate != "" {
		d := parseDateField("end_date", r.EndDate, &errs)
		end = &d
	}
	if len(errs) > 0 {
		return recurring.CreateDefinitionRequest{}, errs
	}
	return recurring.CreateDefinitionRequest{
		AccountID:    r.AccountID,
		Counterparty: r.Counterparty,
		Description:  r.Description,
		Amount:       amount,
		Currency:     domain.Currency(r.Currency),
		Frequency:    domain.Frequency(r.Frequency),
		StartDate:    start,
		EndDate:      end,
	}, nil
}

type definitionDTO struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	Counterparty string    `json:"counterparty"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Frequency    string    `json:"frequency"`
	StartDate    string    `json:"start_date"`
	EndDate      *string   `json:"end_date"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDefinitionDTO(d *domain.RecurringDefinition) definitionDTO {
	dto := definitionDTO{
		ID:           d.ID,
		AccountID:    d.AccountID,
		Counterparty: d.Counterparty,
		Description:  d.Description,
		Amount:       d.Amount.String(),
		Currency:     string(d.Currency),
		Frequency:    string(d.Frequency),
		StartDate:    formatDate(d.StartDate),
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
	}
	if d.EndDate != nil {
		s := formatDate(*d.EndDate)
		dto.EndDate = &s
	}
	return dto
}

type obligationDTO struct {
	ID           uuid.UUID  `json:"id"`
	DefinitionID uuid.UUID  `json:"definition_id"`
	PeriodStart  string     `json:"period_start"`
	Amount       string     `json:"amount"`
	Currency     string     `json:"currency"`
	MovementID   *uuid.UUID `json:"movement_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.toServiceRequest()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	def, err := h.recurring.CreateDefinition(r.Context(), req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to create recurring definition", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toDefinitionDTO(def))
}

func (h *RecurringHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.recurring.DeactivateDefinition(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("failed to deactivate recurring definition", "error", err, "definition_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"id": id, "active": false})
}

func (h *RecurringHandler) Obligations(w http.ResponseWriter, r *http.Request) {
	id, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	obligations, err := h.recurring.Obligations(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to list obligations", "error", err, "definition_id", id)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]obligationDTO, len(obligations))
	for i, o := range obligations {
		dtos[i] = obligationDTO{
			ID:           o.ID,
			DefinitionID: o.DefinitionID,
			PeriodStart:  formatDate(o.PeriodStart),
			Amount:       o.Amount.String(),
			Currency:     string(o.Currency),
			MovementID:   o.MovementID,
			CreatedAt:    o.CreatedAt,
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
