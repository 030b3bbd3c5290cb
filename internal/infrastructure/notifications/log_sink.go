package notifications

import (
	"context"
	"log"

	"servipago/internal/usecase/interfaces"
)

// LogNotificationSink is the fallback when no broker is configured. Events
// still land in the service log so local runs show the full flow.

type LogNotificationSink struct{}

var _ interfaces.INotificationSink = LogNotificationSink{}

func (LogNotificationSink) Publish(_ context.Context, n interfaces.PaymentNotification) error {
	log.Printf("[notifications][log] event=%s payment_id=%s booking_id=%s amount=%d %s",
		n.EventType, n.PaymentID, n.BookingID, n.Amount, n.Currency)
	return nil
}
