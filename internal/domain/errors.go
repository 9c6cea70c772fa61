package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account inactive")
	ErrDefinitionNotFound  = errors.New("recurring definition not found")
	ErrRateNotFound        = errors.New("exchange rate not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidRate         = errors.New("rate must be greater than zero")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidAccountKind  = errors.New("invalid account kind")
	ErrInvalidMovementKind = errors.New("invalid movement kind")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrAlreadyReversed     = errors.New("movement already reversed")
	ErrInvalidRequest      = errors.New("invalid request")
)

// MissingRateError names the account a write was for and the civil date no
// rate could be resolved for. It matches ErrRateNotFound with errors.Is.
type MissingRateError struct {
	AccountID uuid.UUID
	Date      time.Time
	Err       error
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("account %s: no rate for %s: %v", e.AccountID, e.Date.Format(time.DateOnly), e.Err)
}

func (e *MissingRateError) Unwrap() error { return e.Err }
