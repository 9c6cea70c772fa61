package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/tax"
)

type taxService interface {
	MonthlySummary(ctx context.Context, year int, month time.Month) (*domain.TaxSummary, error)
	AnnualBreakdown(ctx context.Context, year int) ([]domain.TaxSummary, error)
	Record(ctx context.Context, req tax.RecordRequest) (*domain.TaxRecord, error)
}

type TaxHandler struct {
	tax taxService
}

func NewTaxHandler(svc taxService) *TaxHandler {
	return &TaxHandler{tax: svc}
}

type taxSummaryDTO struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	SalesTax     string `json:"sales_tax"`
	PurchasesTax string `json:"purchases_tax"`
	NetPayable   string `json:"net_payable"`
}

func toTaxSummaryDTO(s *domain.TaxSummary) taxSummaryDTO {
	return taxSummaryDTO{
		Year:         s.Year,
		Month:        int(s.Month),
		SalesTax:     s.SalesTax.String(),
		PurchasesTax: s.PurchasesTax.String(),
		NetPayable:   s.NetPayable.String(),
	}
}

type recordTaxRequest struct {
	Side          string     `json:"side"`
	OperationID   *uuid.UUID `json:"operation_id"`
	RecordDate    string     `json:"record_date"`
	InvoiceNumber string     `json:"invoice_number"`
	NetAmount     string     `json:"net_amount"`
	TaxRate       string     `json:"tax_rate"`
}

type taxRecordDTO struct {
	ID            uuid.UUID  `json:"id"`
	Side          string     `json:"side"`
	OperationID   *uuid.UUID `json:"operation_id"`
	RecordDate    string     `json:"record_date"`
	InvoiceNumber string     `json:"invoice_number"`
	NetAmount     string     `json:"net_amount"`
	TaxRate       string     `json:"tax_rate"`
	TaxAmount     string     `json:"tax_amount"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (h *TaxHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	year, month, fields := yearMonthFromPath(r, true)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	summary, err := h.tax.MonthlySummary(r.Context(), year, month)
	if err != nil {
		logging.FromContext(r.Context()).Warn("iva summary failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTaxSummaryDTO(summary))
}

func (h *TaxHandler) Annual(w http.ResponseWriter, r *http.Request) {
	year, _, fields := yearMonthFromPath(r, false)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	months, err := h.tax.AnnualBreakdown(r.Context(), year)
	if err != nil {
		logging.FromContext(r.Context()).Warn("iva breakdown failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]taxSummaryDTO, len(months))
	for i := range months {
		dtos[i] = toTaxSummaryDTO(&months[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *TaxHandler) Record(w http.ResponseWriter, r *http.Request) {
	var body recordTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	if !domain.TaxSide(body.Side).IsValid() {
		fields = append(fields, FieldError{Field: "side", Message: "must be sales or purchases"})
	}
	date := parseDateField("record_date", body.RecordDate, &fields)
	net := parseAmountField("net_amount", body.NetAmount, &fields)
	rate := parseAmountField("tax_rate", body.TaxRate, &fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.tax.Record(r.Context(), tax.RecordRequest{
		Side:          domain.TaxSide(body.Side),
		OperationID:   body.OperationID,
		RecordDate:    date,
		InvoiceNumber: body.InvoiceNumber,
		NetAmount:     net,
		TaxRate:       rate,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to record tax line", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, taxRecordDTO{
		ID:            rec.ID,
		Side:          string(rec.Side),
		OperationID:   rec.OperationID,
		RecordDate:    formatDate(rec.RecordDate),
		InvoiceNumber: rec.InvoiceNumber,
		NetAmount:     rec.NetAmount.String(),
		TaxRate:       rec.TaxRate.String(),
		TaxAmount:     rec.TaxAmount.String(),
		CreatedAt:     rec.CreatedAt,
	})
}
