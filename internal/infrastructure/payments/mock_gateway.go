package payments

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"servipago/internal/usecase/interfaces"
)

// MockGateway is the in-process stand-in used when PAYMENT_GATEWAY_MOCK is
// enabled. Charges approve deterministically and refunds always complete,
// so the full lifecycle can be exercised without provider credentials.
//
// Webhook callbacks are verified with X-Signature, an HMAC-SHA256 over the
// raw body using the provider's mock secret.

type MockGateway struct {
	provider      string
	webhookSecret string
}

var _ interfaces.IPaymentGateway = (*MockGateway)(nil)

func NewMockGateway(provider, webhookSecret string) *MockGateway {
	return &MockGateway{provider: provider, webhookSecret: webhookSecret}
}

func (g *MockGateway) Charge(_ context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
	id := g.provider + "-" + strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw, err := json.Marshal(map[string]any{
		"id":            id,
		"status":        "approved",
		"status_detail": "accredited",
		"reference":     req.PaymentID,
		"amount":        req.Amount,
		"currency":      req.Currency,
		"date_created":  now,
		"date_approved": now,
	})
	if err != nil {
		return interfaces.ChargeResult{}, err
	}

	log.Printf("[payment][gateway] mock charge success provider=%s provider_tx_id=%s", g.provider, id)
	return interfaces.ChargeResult{
		ProviderTxID: id,
		Status:       interfaces.ChargeStatusApproved,
		Raw:          raw,
	}, nil
}

func (g *MockGateway) Refund(_ context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error) {
	id := "refund-" + providerTxID

	raw, err := json.Marshal(map[string]any{
		"id":             id,
		"transaction_id": providerTxID,
		"amount":         amount,
		"status":         "approved",
	})
	if err != nil {
		return interfaces.RefundResult{}, err
	}

	log.Printf("[payment][gateway] mock refund success provider=%s refund_id=%s", g.provider, id)
	return interfaces.RefundResult{
		ProviderRefundID: id,
		Status:           interfaces.ChargeStatusApproved,
		Raw:              raw,
	}, nil
}

func (g *MockGateway) VerifyWebhookSignature(header http.Header, body []byte) error {
	return verifyHex(g.webhookSecret, body, header.Get("X-Signature"))
}

func (g *MockGateway) NormalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "approved", "accredited":
		return interfaces.ChargeStatusApproved
	case "declined", "rejected", "failed":
		return interfaces.ChargeStatusDeclined
	default:
		return interfaces.ChargeStatusPending
	}
}
