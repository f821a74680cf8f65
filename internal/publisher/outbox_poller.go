package publisher

import (
	"context"
	"log/slog"
	"time"

	d "github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OrdersTopic = "orders-placed"
	batchSize   = 100
)

var tracer = otel.Tracer("storefront/publisher")

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*d.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id string) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller forwards committed order events to Kafka. Delivery is at
// least once: an event whose publish succeeded but whose mark failed is sent
// again on the next tick, so consumers dedupe on event_id.
type OutboxPoller struct {
	tick   time.Duration
	repo   OutboxRepository
	writer MessageWriter
	logger *slog.Logger
	done   chan struct{}
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrdersTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}
}

func NewOutboxPoller(repo OutboxRepository, writer MessageWriter, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		tick:   time.Second,
		repo:   repo,
		writer: writer,
		logger: logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Start runs the poller in the background until ctx is done.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		p.Run(ctx)
	}()
}

// Close waits for a started poller to return, then closes the writer. The
// context given to Start must be cancelled first.
func (p *OutboxPoller) Close() {
	if p.done != nil {
		<-p.done
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close kafka writer", "error", err)
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnpublishedEvents(ctx, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventPublished(ctx, event.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark event as published", "event_id", event.ID, "error", err)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *d.OutboxEvent) error {
	ctx, span := tracer.Start(ctx, "send "+OrdersTopic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", OrdersTopic),
			attribute.String("messaging.kafka.message.key", event.AggregateID),
		),
	)
	defer span.End()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps events of one order ordered
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
