package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// RecurringDefinition is the template of a periodic provider payment.
// StartDate and EndDate are civil dates (midnight UTC).
type RecurringDefinition struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Counterparty string
	Description  string
	Amount       decimal.Decimal
	Currency     Currency
	Frequency    Frequency
	StartDate    time.Time
	EndDate      *time.Time
	Active       bool
	CreatedAt    time.Time
}

// Obligation is one materialized period of a RecurringDefinition. At most one
// exists per (DefinitionID, PeriodStart).
type Obligation struct {
	ID           uuid.UUID
	DefinitionID uuid.UUID
	PeriodStart  time.Time
	Amount       decimal.Decimal
	Currency     Currency
	MovementID   *uuid.UUID
	CreatedAt    time.Time
}
