package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"servipago/internal/usecase/interfaces"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTopic = "payment-events"

// KafkaNotificationSink publishes payment lifecycle events to Kafka. The
// notification service consumes the topic and fans out to users; delivery
// here is best effort and never blocks a payment outcome.

type KafkaNotificationSink struct {
	producer sarama.SyncProducer
	topic    string
}

var _ interfaces.INotificationSink = (*KafkaNotificationSink)(nil)

// NewKafkaNotificationSink connects a sync producer to KAFKA_BROKER and
// publishes to KAFKA_TOPIC (default payment-events).
func NewKafkaNotificationSink() (*KafkaNotificationSink, error) {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER not set")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer([]string{broker}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	log.Printf("[notifications][kafka] producer initialized broker=%s", broker)

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = defaultTopic
	}
	return &KafkaNotificationSink{producer: producer, topic: topic}, nil
}

func (s *KafkaNotificationSink) Publish(ctx context.Context, n interfaces.PaymentNotification) error {
	eventJSON, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(n.PaymentID),
		Value: sarama.StringEncoder(eventJSON),
	}

	// Propagate the trace so the notification consumer joins the same trace.
	carrier := make(saramaHeaderCarrier, 0)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = []sarama.RecordHeader(carrier)

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	traceID := ""
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
	}
	log.Printf("[notifications][kafka] published event=%s payment_id=%s partition=%d offset=%d trace_id=%s",
		n.EventType, n.PaymentID, partition, offset, traceID)

	return nil
}

func (s *KafkaNotificationSink) Close() error {
	return s.producer.Close()
}

// saramaHeaderCarrier implements the TextMapCarrier interface over Kafka
// record headers.
type saramaHeaderCarrier []sarama.RecordHeader

func (c saramaHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *saramaHeaderCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c saramaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
