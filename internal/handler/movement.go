package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/ledger"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type movementService interface {
	Record(ctx context.Context, req ledger.RecordRequest) (*domain.Movement, error)
	Reverse(ctx context.Context, movementID uuid.UUID, at time.Time, note string) (*domain.Movement, error)
	Movements(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Movement, int, error)
}

type MovementHandler struct {
	ledger movementService
}

func NewMovementHandler(store movementService) *MovementHandler {
	return &MovementHandler{ledger: store}
}

type recordMovementRequest struct {
	AccountID   uuid.UUID  `json:"account_id"`
	Kind        string     `json:"kind"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	OccurredAt  *time.Time `json:"occurred_at"`
	PaymentID   *uuid.UUID `json:"payment_id"`
	OperationID *uuid.UUID `json:"operation_id"`
	Description string     `json:"description"`
}

func (r recordMovementRequest) toRecordRequest() (ledger.RecordRequest, []FieldError) {
	var errs []FieldError
	if r.AccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "account_id", Message: "required"})
	}
	if !domain.MovementKind(r.Kind).IsValid() {
		errs = append(errs, FieldError{Field: "kind", Message: "must be INCOME, EXPENSE, COMMISSION, OPERATOR_PAYMENT, FX_GAIN or FX_LOSS"})
	}
	amount := parseAmountField("amount", r.Amount, &errs)
	if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be ARS or USD"})
	}
	if r.OccurredAt == nil {
		errs = append(errs, FieldError{Field: "occurred_at", Message: "required"})
	}
	if len(errs) > 0 {
		return ledger.RecordRequest{}, errs
	}
	return ledger.RecordRequest{
		AccountID:   r.AccountID,
		Kind:        domain.MovementKind(r.Kind),
		Amount:      amount,
		Currency:    domain.Currency(r.Currency),
		OccurredAt:  *r.OccurredAt,
		PaymentID:   r.PaymentID,
		OperationID: r.OperationID,
		Description: r.Description,
	}, nil
}

type reverseMovementRequest struct {
	OccurredAt *time.Time `json:"occurred_at"`
	Note       string     `json:"note"`
}

type movementDTO struct {
	ID                 uuid.UUID  `json:"id"`
	AccountID          uuid.UUID  `json:"account_id"`
	Kind               string     `json:"kind"`
	Currency           string     `json:"currency"`
	Amount             string     `json:"amount"`
	AmountReporting    string     `json:"amount_reporting"`
	ExchangeRate       *string    `json:"exchange_rate"`
	OccurredAt         time.Time  `json:"occurred_at"`
	PaymentID          *uuid.UUID `json:"payment_id"`
	OperationID        *uuid.UUID `json:"operation_id"`
	ReversesMovementID *uuid.UUID `json:"reverses_movement_id"`
	Description        string     `json:"description"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toMovementDTO(m *domain.Movement) movementDTO {
	return movementDTO{
		ID:                 m.ID,
		AccountID:          m.AccountID,
		Kind:               string(m.Kind),
		Currency:           string(m.Currency),
		Amount:             m.Amount.String(),
		AmountReporting:    m.AmountReporting.String(),
		ExchangeRate:       formatOptionalDecimal(m.ExchangeRate),
		OccurredAt:         m.OccurredAt,
		PaymentID:          m.PaymentID,
		OperationID:        m.OperationID,
		ReversesMovementID: m.ReversesMovementID,
		Description:        m.Description,
		CreatedAt:          m.CreatedAt,
	}
}

type movementPage struct {
	Movements []movementDTO `json:"movements"`
	Total     int           `json:"total"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
}

func (h *MovementHandler) Record(w http.ResponseWriter, r *http.Request) {
	var body recordMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.toRecordRequest()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	m, err := h.ledger.Record(r.Context(), req)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to record movement", "error", err, "account_id", req.AccountID)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *MovementHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var body reverseMovementRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
	}
	var at time.Time
	if body.OccurredAt != nil {
		at = *body.OccurredAt
	}

	m, err := h.ledger.Reverse(r.Context(), id, at, body.Note)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to reverse movement", "error", err, "movement_id", id)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit, offset, fields := pageFromQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	movements, total, err := h.ledger.Movements(r.Context(), accountID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to list movements", "error", err, "account_id", accountID)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDTO, len(movements))
	for i := range movements {
		dtos[i] = toMovementDTO(&movements[i])
	}

	RespondSuccess(w, http.StatusOK, movementPage{Movements: dtos, Total: total, Limit: limit, Offset: offset})
}
