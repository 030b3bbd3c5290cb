package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"servipago/internal/usecase/interfaces"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestKafkaSinkPublish(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	defer producer.Close()

	sink := &KafkaNotificationSink{producer: producer, topic: "payment-events"}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n interfaces.PaymentNotification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.EventType != interfaces.EventPaymentCompleted {
			t.Errorf("expected event %s, got %s", interfaces.EventPaymentCompleted, n.EventType)
		}
		if n.PaymentID != "pay-1" {
			t.Errorf("expected payment pay-1, got %s", n.PaymentID)
		}
		return nil
	})

	err := sink.Publish(context.Background(), interfaces.PaymentNotification{
		EventType:  interfaces.EventPaymentCompleted,
		PaymentID:  "pay-1",
		BookingID:  "book-1",
		Amount:     59_500,
		Currency:   "COP",
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestKafkaSinkPublishError(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	defer producer.Close()

	sink := &KafkaNotificationSink{producer: producer, topic: "payment-events"}
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := sink.Publish(context.Background(), interfaces.PaymentNotification{
		EventType: interfaces.EventPaymentFailed,
		PaymentID: "pay-2",
	})
	if err == nil {
		t.Fatal("expected publish error")
	}
}

func TestNewKafkaSinkRequiresBroker(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "")
	if _, err := NewKafkaNotificationSink(); err == nil {
		t.Fatal("expected error without KAFKA_BROKER")
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	if err := (LogNotificationSink{}).Publish(context.Background(), interfaces.PaymentNotification{
		EventType: interfaces.EventPaymentRefunded,
		PaymentID: "pay-3",
	}); err != nil {
		t.Fatalf("log sink should not fail, got %v", err)
	}
}
