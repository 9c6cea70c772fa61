package recurring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/ledger"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

type definitionLister interface {
	ListActive(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error)
}

type obligationRepository interface {
	Claim(ctx context.Context, tx *sql.Tx, o *domain.Obligation) (bool, error)
	AttachMovement(ctx context.Context, tx *sql.Tx, obligationID, movementID uuid.UUID) error
	Periods(ctx context.Context, definitionID uuid.UUID) ([]time.Time, error)
}

type movementRecorder interface {
	RecordTx(ctx context.Context, tx *sql.Tx, req ledger.RecordRequest) (*domain.Movement, error)
}

type obligationPublisher interface {
	PublishGenerated(ctx context.Context, def *domain.RecurringDefinition, o *domain.Obligation) error
}

type txRunner func(ctx context.Context, fn func(tx *sql.Tx) error) error

// DefinitionError records why one definition, or one of its periods, was not
// generated. Period is nil when the definition failed as a whole.
type DefinitionError struct {
	DefinitionID uuid.UUID
	Period       *time.Time
	Err          error
}

func (e DefinitionError) Error() string {
	if e.Period != nil {
		return fmt.Sprintf("definition %s period %s: %v", e.DefinitionID, e.Period.Format(calendar.Layout), e.Err)
	}
	return fmt.Sprintf("definition %s: %v", e.DefinitionID, e.Err)
}

func (e DefinitionError) Unwrap() error { return e.Err }

type Report struct {
	RunDate        time.Time
	Definitions    int
	GeneratedCount int
	SkippedCount   int
	Errors         []DefinitionError
	Duration       time.Duration
}

// Failed reports whether any definition or period could not be generated.
func (r *Report) Failed() bool { return len(r.Errors) > 0 }

type SchedulerConfig struct {
	Workers int
	Timeout time.Duration
}

// Scheduler materializes due periods of every active definition into an
// obligation plus an OPERATOR_PAYMENT movement. Re-running it for any date
// never creates a second obligation for the same (definition, period): the
// claim is an insert guarded by the table's unique key and commits in the
// same transaction as the movement.
type Scheduler struct {
	definitions definitionLister
	obligations obligationRepository
	ledger      movementRecorder
	publisher   obligationPublisher
	withTx      txRunner
	loc         *time.Location
	cfg         SchedulerConfig
	now         func() time.Time
}

func NewScheduler(
	definitions definitionLister,
	obligations obligationRepository,
	recorder movementRecorder,
	publisher obligationPublisher,
	db *sql.DB,
	loc *time.Location,
	cfg SchedulerConfig,
) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		definitions: definitions,
		obligations: obligations,
		ledger:      recorder,
		publisher:   publisher,
		withTx: func(ctx context.Context, fn func(tx *sql.Tx) error) error {
			return repository.WithTx(ctx, db, fn)
		},
		loc: loc,
		cfg: cfg,
		now: time.Now,
	}
}

// Today is the current civil date in the ledger's location.
func (s *Scheduler) Today() time.Time {
	return calendar.Of(s.now(), s.loc)
}

// RunForDate generates every period due on or before today. Failures are
// isolated per definition and returned in the report; the error return is
// reserved for failures that prevent the run from starting at all.
func (s *Scheduler) RunForDate(ctx context.Context, today time.Time) (*Report, error) {
	started := s.now()
	today = calendar.Truncate(today)
	ctx = logging.With(ctx, "run_date", today.Format(calendar.Layout))
	logger := logging.FromContext(ctx)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	defs, err := s.definitions.ListActive(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("RunForDate: %w", err)
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("RunForDate: worker pool: %w", err)
	}
	defer pool.Release()

	report := &Report{RunDate: today, Definitions: len(defs)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	merge := func(r definitionResult) {
		mu.Lock()
		defer mu.Unlock()
		report.GeneratedCount += r.generated
		report.SkippedCount += r.skipped
		report.Errors = append(report.Errors, r.errs...)
	}

	for i := range defs {
		def := defs[i]
		if ctx.Err() != nil {
			merge(definitionResult{errs: []DefinitionError{{DefinitionID: def.ID, Err: ctx.Err()}}})
			continue
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			merge(s.runDefinition(ctx, &def, today))
		})
		if err != nil {
			wg.Done()
			merge(definitionResult{errs: []DefinitionError{{DefinitionID: def.ID, Err: err}}})
		}
	}
	wg.Wait()

	report.Duration = s.now().Sub(started)
	logger.Info("recurring run finished",
		"definitions", report.Definitions,
		"generated", report.GeneratedCount,
		"skipped", report.SkippedCount,
		"errors", len(report.Errors),
		"duration", report.Duration,
	)
	return report, nil
}

type definitionResult struct {
	generated int
	skipped   int
	errs      []DefinitionError
}

func (s *Scheduler) runDefinition(ctx context.Context, def *domain.RecurringDefinition, today time.Time) definitionResult {
	ctx = logging.With(ctx, "definition_id", def.ID)
	logger := logging.FromContext(ctx)
	var res definitionResult

	fail := func(period *time.Time, err error) {
		if period != nil {
			logger.Error("recurring period failed", "period", period.Format(calendar.Layout), "error", err)
		} else {
			logger.Error("recurring definition failed", "error", err)
		}
		res.errs = append(res.errs, DefinitionError{DefinitionID: def.ID, Period: period, Err: err})
	}

	due, err := DuePeriods(def, today)
	if err != nil {
		fail(nil, err)
		return res
	}
	if len(due) == 0 {
		return res
	}

	done, err := s.obligations.Periods(ctx, def.ID)
	if err != nil {
		fail(nil, err)
		return res
	}
	existing := make(map[time.Time]struct{}, len(done))
	for _, p := range done {
		existing[p] = struct{}{}
	}

	for _, period := range due {
		if _, ok := existing[period]; ok {
			res.skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			fail(&period, err)
			return res
		}

		created, err := s.generate(ctx, def, period)
		if err != nil {
			fail(&period, err)
			continue
		}
		if created {
			res.generated++
		} else {
			res.skipped++
		}
	}
	return res
}

// generate claims one period and books its movement atomically. It reports
// false when another run already owns the period.
func (s *Scheduler) generate(ctx context.Context, def *domain.RecurringDefinition, period time.Time) (bool, error) {
	o := &domain.Obligation{
		ID:           uuid.New(),
		DefinitionID: def.ID,
		PeriodStart:  period,
		Amount:       def.Amount,
		Currency:     def.Currency,
		CreatedAt:    s.now().UTC(),
	}

	claimed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.obligations.Claim(ctx, tx, o)
		if err != nil || !ok {
			return err
		}

		m, err := s.ledger.RecordTx(ctx, tx, ledger.RecordRequest{
			AccountID:   def.AccountID,
			Kind:        domain.MovementKindOperatorPayment,
			Amount:      def.Amount,
			Currency:    def.Currency,
			OccurredAt:  calendar.StartOfDay(period, s.loc),
			Description: describe(def, period),
		})
		if err != nil {
			return err
		}
		if err := s.obligations.AttachMovement(ctx, tx, o.ID, m.ID); err != nil {
			return err
		}
		o.MovementID = &m.ID
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	logging.FromContext(ctx).Info("obligation generated",
		"obligation_id", o.ID,
		"period", period.Format(calendar.Layout),
		"movement_id", o.MovementID,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishGenerated(ctx, def, o); err != nil && !errors.Is(err, context.Canceled) {
			logging.FromContext(ctx).Warn("obligation event not published", "obligation_id", o.ID, "error", err)
		}
	}
	return true, nil
}

func describe(def *domain.RecurringDefinition, period time.Time) string {
	label := def.Counterparty
	if def.Description != "" {
		label += ": " + def.Description
	}
	return fmt.Sprintf("%s (%s)", label, period.Format(calendar.Layout))
}
