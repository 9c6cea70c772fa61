package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/balance"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type balanceService interface {
	BalanceAsOf(ctx context.Context, ids []uuid.UUID, date time.Time) (decimal.Decimal, error)
	AccountBalancesAsOf(ctx context.Context, ids []uuid.UUID, date time.Time) ([]balance.AccountBalance, error)
	DailySeries(ctx context.Context, ids []uuid.UUID, from, to time.Time) ([]balance.Point, error)
}

type BalanceHandler struct {
	balances balanceService
}

func NewBalanceHandler(balances balanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

type balanceResponse struct {
	AsOf     string              `json:"as_of"`
	Balance  *string             `json:"balance,omitempty"`
	Accounts []accountBalanceDTO `json:"accounts,omitempty"`
}

type accountBalanceDTO struct {
	AccountID uuid.UUID `json:"account_id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
}

type pointDTO struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

// AsOf returns the end-of-day balance of the selected accounts. With
// breakdown=true it returns one line per account instead of a total, which
// also works for accounts held in different currencies.
func (h *BalanceHandler) AsOf(w http.ResponseWriter, r *http.Request) {
	ids, fields := accountIDsFromQuery(r)
	asOf := parseDateField("as_of", r.URL.Query().Get("as_of"), &fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	resp := balanceResponse{AsOf: formatDate(asOf)}
	log := logging.FromContext(r.Context())

	if r.URL.Query().Get("breakdown") == "true" {
		lines, err := h.balances.AccountBalancesAsOf(r.Context(), ids, asOf)
		if err != nil {
			log.Warn("balance breakdown failed", "error", err)
			RespondDomainError(w, err)
			return
		}
		resp.Accounts = make([]accountBalanceDTO, len(lines))
		for i, l := range lines {
			resp.Accounts[i] = accountBalanceDTO{AccountID: l.AccountID, Currency: string(l.Currency), Balance: l.Balance.String()}
		}
		RespondSuccess(w, http.StatusOK, resp)
		return
	}

	total, err := h.balances.BalanceAsOf(r.Context(), ids, asOf)
	if err != nil {
		log.Warn("balance query failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	s := total.String()
	resp.Balance = &s
	RespondSuccess(w, http.StatusOK, resp)
}

func (h *BalanceHandler) Daily(w http.ResponseWriter, r *http.Request) {
	ids, fields := accountIDsFromQuery(r)
	from := parseDateField("from", r.URL.Query().Get("from"), &fields)
	to := parseDateField("to", r.URL.Query().Get("to"), &fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	points, err := h.balances.DailySeries(r.Context(), ids, from, to)
	if err != nil {
		logging.FromContext(r.Context()).Warn("daily series failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]pointDTO, len(points))
	for i, p := range points {
		dtos[i] = pointDTO{Date: formatDate(p.Date), Balance: p.Balance.String()}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
