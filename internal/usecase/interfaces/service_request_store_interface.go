package interfaces

import (
	"context"

	"servipago/internal/domain/entities"
)

// IServiceRequestStore is the payments-core view of the booking store.
// The store owns the booking lifecycle; this interface only reads bookings
// and flips their payment-status field after payment events.

type IServiceRequestStore interface {
	GetByID(ctx context.Context, id string) (entities.ServiceRequest, error)
	SetPaymentStatus(ctx context.Context, id string, state entities.BookingPaymentState) (entities.ServiceRequest, error)
}
