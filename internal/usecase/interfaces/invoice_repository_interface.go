package interfaces

import (
	"context"

	"servipago/internal/domain/entities"
)

// IInvoiceRepository abstracts DynamoDB persistence for Invoice.
//
// Create is conditional on the payment id being unused, so two concurrent
// attempts to invoice the same payment collapse into one document; the
// losing writer gets a zero Invoice with a nil error. Status moves follow
// the same conditional-update convention as payments.
//
// NextNumber atomically increments the monthly counter for a "YYYYMM"
// period and returns the new sequence value. Concurrent callers always
// observe distinct, increasing values.

type IInvoiceRepository interface {
	Create(ctx context.Context, inv entities.Invoice) (entities.Invoice, error)
	GetByPaymentID(ctx context.Context, paymentID string) (entities.Invoice, error)
	GetByNumber(ctx context.Context, number string) (entities.Invoice, error)

	MarkPaid(ctx context.Context, paymentID string) (entities.Invoice, error)
	MarkRefunded(ctx context.Context, paymentID string) (entities.Invoice, error)
	Cancel(ctx context.Context, paymentID string) (entities.Invoice, error)

	NextNumber(ctx context.Context, period string) (int64, error)
}
