package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/recurring"
)

type schedulerRunner interface {
	Today() time.Time
	RunForDate(ctx context.Context, today time.Time) (*recurring.Report, error)
}

type CronHandler struct {
	scheduler schedulerRunner
}

func NewCronHandler(scheduler schedulerRunner) *CronHandler {
	return &CronHandler{scheduler: scheduler}
}

type runErrorDTO struct {
	DefinitionID uuid.UUID `json:"definition_id"`
	Period       *string   `json:"period"`
	Error        string    `json:"error"`
}

type runReportDTO struct {
	RunDate        string        `json:"run_date"`
	Definitions    int           `json:"definitions"`
	GeneratedCount int           `json:"generated_count"`
	SkippedCount   int           `json:"skipped_count"`
	Failed         bool          `json:"failed"`
	Errors         []runErrorDTO `json:"errors"`
	DurationMS     int64         `json:"duration_ms"`
}

func toRunReportDTO(rep *recurring.Report) runReportDTO {
	dto := runReportDTO{
		RunDate:        formatDate(rep.RunDate),
		Definitions:    rep.Definitions,
		GeneratedCount: rep.GeneratedCount,
		SkippedCount:   rep.SkippedCount,
		Failed:         rep.Failed(),
		Errors:         make([]runErrorDTO, len(rep.Errors)),
		DurationMS:     rep.Duration.Milliseconds(),
	}
	for i, e := range rep.Errors {
		dto.Errors[i] = runErrorDTO{DefinitionID: e.DefinitionID, Error: e.Err.Error()}
		if e.Period != nil {
			p := formatDate(*e.Period)
			dto.Errors[i].Period = &p
		}
	}
	return dto
}

// RunRecurring triggers one scheduler run for ?date= or today in the ledger
// zone. Per-definition failures are part of a 200 response.
func (h *CronHandler) RunRecurring(w http.ResponseWriter, r *http.Request) {
	today := h.scheduler.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		var fields []FieldError
		today = parseDateField("date", v, &fields)
		if len(fields) > 0 {
			RespondValidationError(w, fields)
			return
		}
	}

	report, err := h.scheduler.RunForDate(r.Context(), today)
	if err != nil {
		log := logging.FromContext(r.Context())
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("scheduler run timed out", "error", err)
			RespondAppError(w, ErrSchedulerTimeout, nil)
			return
		}
		log.Error("scheduler run failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toRunReportDTO(report))
}
