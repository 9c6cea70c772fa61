package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxSide string

const (
	TaxSideSales     TaxSide = "sales"
	TaxSidePurchases TaxSide = "purchases"
)

func (s TaxSide) IsValid() bool {
	return s == TaxSideSales || s == TaxSidePurchases
}

type TaxRecord struct {
	ID            uuid.UUID
	Side          TaxSide
	OperationID   *uuid.UUID
	RecordDate    time.Time
	InvoiceNumber string
	NetAmount     decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	CreatedAt     time.Time
}

type TaxSummary struct {
	Year         int
	Month        time.Month
	SalesTax     decimal.Decimal
	PurchasesTax decimal.Decimal
	NetPayable   decimal.Decimal
}
