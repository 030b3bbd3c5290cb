package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"servipago/internal/domain/entities"
)

// Canonical provider outcome vocabulary. Every gateway adapter normalizes
// its own status strings into these before returning.
const (
	ChargeStatusApproved = "approved"
	ChargeStatusDeclined = "declined"
	ChargeStatusPending  = "pending"
)

// ChargeRequest carries everything an adapter needs to submit a charge.
// Amount is the full collected total in minor units.
type ChargeRequest struct {
	PaymentID   string
	BookingID   string
	ClientID    string
	Method      entities.PaymentMethod
	Amount      int64
	Currency    string
	Description string
}

type ChargeResult struct {
	ProviderTxID string
	Status       string
	Raw          json.RawMessage
}

type RefundResult struct {
	ProviderRefundID string
	Status           string
	Raw              json.RawMessage
}

// IPaymentGateway abstracts an external payment provider.
//
// VerifyWebhookSignature authenticates a raw callback before anything else
// happens with it; implementations must not touch storage.
// NormalizeStatus maps a provider status string, as delivered in webhooks,
// into the canonical vocabulary above.
type IPaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, providerTxID string, amount int64) (RefundResult, error)
	VerifyWebhookSignature(header http.Header, body []byte) error
	NormalizeStatus(status string) string
}

// IPaymentGatewayResolver resolves the gateway adapter for a provider key.
type IPaymentGatewayResolver interface {
	ForProvider(key string) (IPaymentGateway, bool)
}
