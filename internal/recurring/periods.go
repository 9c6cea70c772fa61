package recurring

import (
	"fmt"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

// NthPeriod returns the start of the n-th period (0 = start date). Month based
// frequencies are computed from the start date every time so a clamped month
// never shifts the day of the following ones (Jan 31, Feb 29, Mar 31).
func NthPeriod(start time.Time, freq domain.Frequency, n int) (time.Time, error) {
	start = calendar.Truncate(start)
	switch freq {
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 7*n), nil
	case domain.FrequencyBiweekly:
		return start.AddDate(0, 0, 14*n), nil
	case domain.FrequencyMonthly:
		return calendar.AddMonthsClamped(start, n), nil
	case domain.FrequencyQuarterly:
		return calendar.AddMonthsClamped(start, 3*n), nil
	case domain.FrequencyYearly:
		return calendar.AddMonthsClamped(start, 12*n), nil
	default:
		return time.Time{}, fmt.Errorf("frequency %q: %w", freq, domain.ErrInvalidFrequency)
	}
}

// DuePeriods lists every period start of def that falls on or before today
// and on or before its end date, oldest first.
func DuePeriods(def *domain.RecurringDefinition, today time.Time) ([]time.Time, error) {
	limit := calendar.Truncate(today)
	if def.EndDate != nil && def.EndDate.Before(limit) {
		limit = calendar.Truncate(*def.EndDate)
	}

	var periods []time.Time
	for n := 0; ; n++ {
		p, err := NthPeriod(def.StartDate, def.Frequency, n)
		if err != nil {
			return nil, err
		}
		if p.After(limit) {
			return periods, nil
		}
		periods = append(periods, p)
	}
}
