package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money is stored with.
const AmountScale int32 = 4

// FitsScale reports whether d is representable at AmountScale without
// rounding.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}

type MovementKind string

const (
	MovementKindIncome          MovementKind = "INCOME"
	MovementKindExpense         MovementKind = "EXPENSE"
	MovementKindCommission      MovementKind = "COMMISSION"
	MovementKindOperatorPayment MovementKind = "OPERATOR_PAYMENT"
	MovementKindFXGain          MovementKind = "FX_GAIN"
	MovementKindFXLoss          MovementKind = "FX_LOSS"
)

func (k MovementKind) IsValid() bool {
	return k.Sign() != 0
}

// Sign is +1 for kinds that increase a balance, -1 for kinds that decrease
// it and 0 for unknown kinds.
func (k MovementKind) Sign() int {
	switch k {
	case MovementKindIncome, MovementKindFXGain:
		return 1
	case MovementKindExpense, MovementKindCommission, MovementKindOperatorPayment, MovementKindFXLoss:
		return -1
	default:
		return 0
	}
}

// Offsetting returns the kind used to reverse a movement of kind k.
func (k MovementKind) Offsetting() MovementKind {
	switch k {
	case MovementKindIncome:
		return MovementKindExpense
	case MovementKindFXGain:
		return MovementKindFXLoss
	case MovementKindFXLoss:
		return MovementKindFXGain
	default:
		return MovementKindIncome
	}
}

type Movement struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	Kind               MovementKind
	Currency           Currency
	Amount             decimal.Decimal
	AmountReporting    decimal.Decimal
	ExchangeRate       *decimal.Decimal
	OccurredAt         time.Time
	PaymentID          *uuid.UUID
	OperationID        *uuid.UUID
	ReversesMovementID *uuid.UUID
	Description        string
	CreatedAt          time.Time
}

// SignedEffect is the amount the movement adds to a balance held in
// accountCurrency. Same-currency accounts fold the native amount, every other
// account folds the reporting equivalent.
func (m *Movement) SignedEffect(accountCurrency Currency) decimal.Decimal {
	amount := m.AmountReporting
	if m.Currency == accountCurrency {
		amount = m.Amount
	}
	if m.Kind.Sign() < 0 {
		return amount.Neg()
	}
	return amount
}
