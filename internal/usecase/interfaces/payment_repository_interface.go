package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"servipago/internal/domain/entities"
)

// IPaymentRepository abstracts DynamoDB persistence for Payment.
//
// Status transitions are conditional writes: the Mark* methods only apply
// when the stored status still allows the transition, which keeps terminal
// states sticky no matter which path (sync response, webhook, sweep) runs
// last. When the condition fails they return a zero Payment with a nil
// error; callers decide whether that is a no-op or a conflict.
//
// ClaimBooking/ReleaseBooking manage the one-active-payment-per-booking
// claim item. A claim survives payment completion, which is what enforces
// at most one completed payment per booking.

type IPaymentRepository interface {
	Create(ctx context.Context, p entities.Payment) (entities.Payment, error)
	GetByID(ctx context.Context, id string) (entities.Payment, error)
	GetByProviderTx(ctx context.Context, provider, providerTxID string) (entities.Payment, error)
	ListByBookingID(ctx context.Context, bookingID string) ([]entities.Payment, error)

	MarkProcessing(ctx context.Context, id string) (entities.Payment, error)
	AttachProviderTx(ctx context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error)
	MarkCompleted(ctx context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error)
	MarkFailed(ctx context.Context, id, reason string) (entities.Payment, error)
	UpdateRefund(ctx context.Context, id string, refund entities.Refund) (entities.Payment, error)

	ListStuck(ctx context.Context, olderThan time.Time, limit int32) ([]entities.Payment, error)

	ClaimBooking(ctx context.Context, bookingID, paymentID string) (bool, error)
	ReleaseBooking(ctx context.Context, bookingID, paymentID string) error
}
