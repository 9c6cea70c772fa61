package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/calendar"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

// KafkaWriter is the subset of *kafka.Writer the producer needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const EventObligationGenerated = "obligation.generated"

// ObligationEvent tells the due-alert collaborator that a period was
// materialized. Dates are civil dates in YYYY-MM-DD form.
type ObligationEvent struct {
	Type         string          `json:"type"`
	ObligationID uuid.UUID       `json:"obligation_id"`
	DefinitionID uuid.UUID       `json:"definition_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	MovementID   *uuid.UUID      `json:"movement_id,omitempty"`
	Counterparty string          `json:"counterparty"`
	PeriodStart  string          `json:"period_start"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     domain.Currency `json:"currency"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

type ObligationProducer struct {
	writer KafkaWriter
	topic  string
}

// NewObligationProducer returns nil when no brokers are configured. A nil
// producer accepts and drops every event.
func NewObligationProducer(brokers []string, topic string, timeout time.Duration) (*ObligationProducer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	if topic == "" {
		return nil, fmt.Errorf("NewObligationProducer: topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           timeout,
	}
	return &ObligationProducer{writer: writer, topic: topic}, nil
}

func (p *ObligationProducer) PublishGenerated(ctx context.Context, def *domain.RecurringDefinition, o *domain.Obligation) error {
	if p == nil {
		return nil
	}

	event := ObligationEvent{
		Type:         EventObligationGenerated,
		ObligationID: o.ID,
		DefinitionID: def.ID,
		AccountID:    def.AccountID,
		MovementID:   o.MovementID,
		Counterparty: def.Counterparty,
		PeriodStart:  o.PeriodStart.Format(calendar.Layout),
		Amount:       o.Amount,
		Currency:     o.Currency,
		OccurredAt:   o.CreatedAt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("PublishGenerated: marshal: %w", err)
	}

	// Keyed by definition so one definition's periods stay ordered.
	msg := kafka.Message{Key: []byte(def.ID.String()), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("PublishGenerated: topic %s: %w", p.topic, err)
	}

	logging.FromContext(ctx).Debug("obligation event published",
		"topic", p.topic,
		"obligation_id", o.ID,
	)
	return nil
}

func (p *ObligationProducer) Close() error {
	if p == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("Close: topic %s: %w", p.topic, err)
	}
	return nil
}
