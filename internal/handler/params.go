package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func uuidFromPath(r *http.Request, name string) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// accountIDsFromQuery accepts repeated account_id parameters and
// comma-separated lists.
func accountIDsFromQuery(r *http.Request) ([]uuid.UUID, []FieldError) {
	var ids []uuid.UUID
	for _, v := range r.URL.Query()["account_id"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, []FieldError{{Field: "account_id", Message: "must be a UUID"}}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseDateField(field, value string, errs *[]FieldError) time.Time {
	if value == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return time.Time{}
	}
	d, err := calendar.Parse(value)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be YYYY-MM-DD"})
		return time.Time{}
	}
	return d
}

func parseAmountField(field, value string, errs *[]FieldError) decimal.Decimal {
	if value == "" {
		*errs = append(*errs, FieldError{Field: field, Message: "required"})
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be a decimal string"})
		return decimal.Zero
	}
	return d
}

func yearMonthFromPath(r *http.Request, withMonth bool) (int, time.Month, []FieldError) {
	var errs []FieldError
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		errs = append(errs, FieldError{Field: "year", Message: "must be an integer"})
	}
	if !withMonth {
		return year, 0, errs
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		errs = append(errs, FieldError{Field: "month", Message: "must be 1-12"})
	}
	return year, time.Month(month), errs
}

func pageFromQuery(r *http.Request) (int, int, []FieldError) {
	var errs []FieldError
	limit, offset := defaultPageSize, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			errs = append(errs, FieldError{Field: "limit", Message: "must be 1-500"})
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be >= 0"})
		}
		offset = n
	}
	return limit, offset, errs
}

func formatDate(t time.Time) string {
	return t.Format(calendar.Layout)
}

func formatOptionalDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
