package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Publisher interface {
	PublishLinkGenerated(ctx context.Context, link *links.Link) error
	Close() error
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishLinkGenerated(context.Context, *links.Link) error { return nil }

func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	now          func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, topic, writeTimeout)
}

func newKafkaPublisher(w messageWriter, topic string, writeTimeout time.Duration) *KafkaPublisher {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &KafkaPublisher{
		writer:       w,
		topic:        topic,
		writeTimeout: writeTimeout,
		now:          time.Now,
	}
}

// PublishLinkGenerated writes one message keyed by the short key, carrying
// the caller's trace context in the headers.
func (p *KafkaPublisher) PublishLinkGenerated(ctx context.Context, link *links.Link) error {
	ctx, span := otel.Tracer("events").Start(ctx, "kafka.publish link.generated",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("messaging.kafka.message_key", link.Key),
		),
	)
	defer span.End()

	value, err := json.Marshal(newLinkGenerated(link, p.now()))
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(link.Key),
		Value:   value,
		Time:    p.now().UTC(),
		Headers: carrierToKafkaHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newLinkGenerated(link *links.Link, at time.Time) LinkGenerated {
	ev := LinkGenerated{
		EventID:    uuid.NewString(),
		Key:        link.Key,
		URL:        link.URL,
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
	}
	if link.Owner != nil {
		ev.OwnerType = link.Owner.Type
		ev.OwnerID = link.Owner.ID
	}
	if link.ExpiresAt != nil {
		s := link.ExpiresAt.UTC().Format(time.RFC3339Nano)
		ev.ExpiresAt = &s
	}
	return ev
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}
