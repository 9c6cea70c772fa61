package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateSource string

const (
	RateSourceMonthly RateSource = "monthly_override"
	RateSourceDaily   RateSource = "daily"
)

// DailyRate converts one unit of the foreign currency into the reporting
// currency from RateDate onwards, until a later daily rate supersedes it.
type DailyRate struct {
	RateDate  time.Time
	Rate      decimal.Decimal
	UpdatedAt time.Time
}

type MonthlyRate struct {
	Year      int
	Month     time.Month
	Rate      decimal.Decimal
	UpdatedAt time.Time
}

// Rate is the outcome of a resolution: the value applied and where it came
// from. EffectiveDate is the daily rate's date, or the first day of the
// overridden month.
type Rate struct {
	Value         decimal.Decimal
	Source        RateSource
	EffectiveDate time.Time
}
