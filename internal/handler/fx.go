package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type fxService interface {
	Resolve(ctx context.Context, date time.Time) (*domain.Rate, error)
	UpsertDailyRate(ctx context.Context, date time.Time, rate decimal.Decimal) error
	UpsertMonthlyRate(ctx context.Context, year int, month time.Month, rate decimal.Decimal) error
	MonthlyRates(ctx context.Context, year int) ([]domain.MonthlyRate, error)
}

type FXHandler struct {
	fx fxService
}

func NewFXHandler(fxSvc fxService) *FXHandler {
	return &FXHandler{fx: fxSvc}
}

type fxRateResponse struct {
	Date          string `json:"date"`
	Rate          string `json:"rate"`
	Source        string `json:"source"`
	EffectiveDate string `json:"effective_date"`
}

type setRateRequest struct {
	Rate string `json:"rate"`
}

type monthlyRateDTO struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *FXHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	var fields []FieldError
	date := parseDateField("date", r.URL.Query().Get("date"), &fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rate, err := h.fx.Resolve(r.Context(), date)
	if err != nil {
		logging.FromContext(r.Context()).Warn("fx rate lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, fxRateResponse{
		Date:          formatDate(date),
		Rate:          rate.Value.String(),
		Source:        string(rate.Source),
		EffectiveDate: formatDate(rate.EffectiveDate),
	})
}

func (h *FXHandler) SetDaily(w http.ResponseWriter, r *http.Request) {
	var fields []FieldError
	date := parseDateField("date", r.PathValue("date"), &fields)
	rate, ok := decodeRate(w, r, &fields)
	if !ok {
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.fx.UpsertDailyRate(r.Context(), date, rate); err != nil {
		logging.FromContext(r.Context()).Warn("daily rate upsert failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"date": formatDate(date), "rate": rate.String()})
}

func (h *FXHandler) SetMonthly(w http.ResponseWriter, r *http.Request) {
	year, month, fields := yearMonthFromPath(r, true)
	rate, ok := decodeRate(w, r, &fields)
	if !ok {
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.fx.UpsertMonthlyRate(r.Context(), year, month, rate); err != nil {
		logging.FromContext(r.Context()).Warn("monthly rate upsert failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	first, _ := calendar.MonthBounds(year, month)
	RespondSuccess(w, http.StatusOK, map[string]any{"year": year, "month": int(month), "effective_date": formatDate(first), "rate": rate.String()})
}

func (h *FXHandler) ListMonthly(w http.ResponseWriter, r *http.Request) {
	year, _, fields := yearMonthFromPath(r, false)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rates, err := h.fx.MonthlyRates(r.Context(), year)
	if err != nil {
		logging.FromContext(r.Context()).Warn("monthly rates lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]monthlyRateDTO, len(rates))
	for i, m := range rates {
		dtos[i] = monthlyRateDTO{Year: m.Year, Month: int(m.Month), Rate: m.Rate.String(), UpdatedAt: m.UpdatedAt}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

// decodeRate reports false once it has already written an error response.
func decodeRate(w http.ResponseWriter, r *http.Request, fields *[]FieldError) (decimal.Decimal, bool) {
	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return decimal.Zero, false
	}
	return parseAmountField("rate", req.Rate, fields), true
}
