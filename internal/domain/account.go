package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// ReportingCurrency is the currency every movement is normalized into.
const ReportingCurrency = CurrencyARS

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyARS, CurrencyUSD:
		return true
	default:
		return false
	}
}

type AccountKind string

const (
	AccountKindCashARS       AccountKind = "cash_ars"
	AccountKindCashUSD       AccountKind = "cash_usd"
	AccountKindSavingsARS    AccountKind = "savings_ars"
	AccountKindSavingsUSD    AccountKind = "savings_usd"
	AccountKindBank          AccountKind = "bank"
	AccountKindDigitalWallet AccountKind = "digital_wallet"
)

func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindCashARS, AccountKindCashUSD,
		AccountKindSavingsARS, AccountKindSavingsUSD,
		AccountKindBank, AccountKindDigitalWallet:
		return true
	default:
		return false
	}
}

// ImpliedCurrency returns the currency fixed by the kind, if any. Bank and
// wallet accounts may hold either currency.
func (k AccountKind) ImpliedCurrency() (Currency, bool) {
	switch k {
	case AccountKindCashARS, AccountKindSavingsARS:
		return CurrencyARS, true
	case AccountKindCashUSD, AccountKindSavingsUSD:
		return CurrencyUSD, true
	default:
		return "", false
	}
}

type Account struct {
	ID             uuid.UUID
	AgencyID       *uuid.UUID
	Name           string
	Kind           AccountKind
	Currency       Currency
	InitialBalance decimal.Decimal
	Active         bool
	CreatedAt      time.Time
}

// Accepts reports whether a movement in currency c may be posted to the
// account. Foreign movements are only accepted by reporting-currency
// accounts, where they are carried at their reporting equivalent.
func (a *Account) Accepts(c Currency) bool {
	return c == a.Currency || a.Currency == ReportingCurrency
}
