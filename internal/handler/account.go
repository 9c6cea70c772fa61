package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/ledger"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type accountService interface {
	OpenAccount(ctx context.Context, req ledger.OpenAccountRequest) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, id uuid.UUID) error
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	AgencyID       *uuid.UUID `json:"agency_id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Currency       string     `json:"currency"`
	InitialBalance string     `json:"initial_balance"`
}

func (r createAccountRequest) Validate() (decimal.Decimal, []FieldError) {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if !domain.AccountKind(r.Kind).IsValid() {
		errs = append(errs, FieldError{Field: "kind", Message: "must be cash_ars, cash_usd, savings_ars, savings_usd, bank or digital_wallet"})
	}
	if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be ARS or USD"})
	}
	initial := decimal.Zero
	if r.InitialBalance != "" {
		initial = parseAmountField("initial_balance", r.InitialBalance, &errs)
	}
	return initial, errs
}

type accountDTO struct {
	ID             uuid.UUID  `json:"id"`
	AgencyID       *uuid.UUID `json:"agency_id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Currency       string     `json:"currency"`
	InitialBalance string     `json:"initial_balance"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		AgencyID:       a.AgencyID,
		Name:           a.Name,
		Kind:           string(a.Kind),
		Currency:       string(a.Currency),
		InitialBalance: a.InitialBalance.String(),
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
	}
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	initial, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.OpenAccount(r.Context(), ledger.OpenAccountRequest{
		AgencyID:       req.AgencyID,
		Name:           req.Name,
		Kind:           domain.AccountKind(req.Kind),
		Currency:       domain.Currency(req.Currency),
		InitialBalance: initial,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to open account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.accounts.DeactivateAccount(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("failed to deactivate account", "error", err, "account_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"id": id, "active": false})
}
