package interfaces

import (
	"context"
	"time"
)

// Notification event types.
const (
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
	EventPaymentRefunded  = "payment_refunded"
)

// PaymentNotification is the fire-and-forget event published after payment
// state changes. Consumers (email, push) live outside this service.
type PaymentNotification struct {
	EventType      string    `json:"event_type"`
	PaymentID      string    `json:"payment_id"`
	BookingID      string    `json:"booking_id"`
	ClientID       string    `json:"client_id"`
	ProfessionalID string    `json:"professional_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	InvoiceNumber  string    `json:"invoice_number,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// INotificationSink delivers payment notifications. Publish failures are
// logged by callers and never roll back payment state.
type INotificationSink interface {
	Publish(ctx context.Context, n PaymentNotification) error
}
