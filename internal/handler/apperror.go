package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrForbidden        = &AppError{http.StatusForbidden, "FORBIDDEN", "Role not allowed for this operation"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrAccountNotFound       = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrAccountInactive       = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", "Account is inactive"}
	ErrDefinitionNotFound    = &AppError{http.StatusNotFound, "DEFINITION_NOT_FOUND", "Recurring definition not found"}
	ErrRateNotFound          = &AppError{http.StatusUnprocessableEntity, "RATE_NOT_FOUND", "No exchange rate available for the date"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero with at most 4 decimal places"}
	ErrInvalidRate           = &AppError{http.StatusBadRequest, "INVALID_RATE", "Rate is out of range"}
	ErrInvalidCurrency       = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidAccountKind    = &AppError{http.StatusBadRequest, "INVALID_ACCOUNT_KIND", "Invalid account kind"}
	ErrInvalidMovementKind   = &AppError{http.StatusBadRequest, "INVALID_MOVEMENT_KIND", "Invalid movement kind"}
	ErrCurrencyMismatch      = &AppError{http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Currency mismatch"}
	ErrInvalidPeriod         = &AppError{http.StatusBadRequest, "INVALID_PERIOD", "Invalid date or period"}
	ErrInvalidFrequency      = &AppError{http.StatusBadRequest, "INVALID_FREQUENCY", "Invalid frequency"}
	ErrAlreadyReversed       = &AppError{http.StatusConflict, "ALREADY_REVERSED", "Movement was already reversed"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInFlight   = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_FLIGHT", "A request with this Idempotency-Key is still being processed"}
	ErrSchedulerTimeout      = &AppError{http.StatusGatewayTimeout, "SCHEDULER_TIMEOUT", "Scheduler run exceeded its time budget"}
)
