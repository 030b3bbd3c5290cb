package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"servipago/internal/usecase/interfaces"
)

const defaultWompiBaseURL = "https://sandbox.wompi.co/v1"

// WompiGateway charges through Wompi's REST transactions API. Wompi has no
// Go SDK; requests go straight over net/http with the private key as a
// bearer token.
//
// Webhook callbacks carry X-Wompi-Timestamp and X-Wompi-Signature, the
// signature being an HMAC-SHA256 over "{timestamp}.{body}".

type WompiGateway struct {
	httpClient    *http.Client
	baseURL       string
	privateKey    string
	webhookSecret string
}

var _ interfaces.IPaymentGateway = (*WompiGateway)(nil)

func NewWompiGateway(privateKey, webhookSecret string) *WompiGateway {
	base := os.Getenv("WOMPI_BASE_URL")
	if base == "" {
		base = defaultWompiBaseURL
	}
	return &WompiGateway{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       base,
		privateKey:    privateKey,
		webhookSecret: webhookSecret,
	}
}

type wompiTransactionRequest struct {
	AmountInCents int64       `json:"amount_in_cents"`
	Currency      string      `json:"currency"`
	Reference     string      `json:"reference"`
	PaymentMethod wompiMethod `json:"payment_method"`
}

type wompiMethod struct {
	Type string `json:"type"`
}

type wompiTransactionData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type wompiEnvelope struct {
	Data  wompiTransactionData `json:"data"`
	Error *struct {
		Type   string `json:"type"`
		Reason string `json:"reason,omitempty"`
	} `json:"error,omitempty"`
}

func (g *WompiGateway) Charge(ctx context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
	log.Printf("[payment][gateway] wompi charge start payment_id=%s amount=%d method=%s", req.PaymentID, req.Amount, req.Method)

	body := wompiTransactionRequest{
		// Wompi bills COP in cents; our minor unit is the peso.
		AmountInCents: req.Amount * 100,
		Currency:      req.Currency,
		Reference:     req.PaymentID,
		PaymentMethod: wompiMethod{Type: wompiMethodType(string(req.Method))},
	}

	env, raw, err := g.post(ctx, "/transactions", body)
	if err != nil {
		log.Printf("[payment][gateway] wompi charge failed err=%v", err)
		return interfaces.ChargeResult{}, err
	}
	log.Printf("[payment][gateway] wompi charge done provider_tx_id=%s provider_status=%s", env.Data.ID, env.Data.Status)

	return interfaces.ChargeResult{
		ProviderTxID: env.Data.ID,
		Status:       wompiNormalizeStatus(env.Data.Status),
		Raw:          raw,
	}, nil
}

func (g *WompiGateway) Refund(ctx context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error) {
	log.Printf("[payment][gateway] wompi refund start provider_tx_id=%s amount=%d", providerTxID, amount)

	body := map[string]any{
		"transaction_id":  providerTxID,
		"amount_in_cents": amount * 100,
	}
	env, raw, err := g.post(ctx, "/refunds", body)
	if err != nil {
		log.Printf("[payment][gateway] wompi refund failed err=%v", err)
		return interfaces.RefundResult{}, err
	}
	log.Printf("[payment][gateway] wompi refund done refund_id=%s status=%s", env.Data.ID, env.Data.Status)

	return interfaces.RefundResult{
		ProviderRefundID: env.Data.ID,
		Status:           wompiNormalizeStatus(env.Data.Status),
		Raw:              raw,
	}, nil
}

// VerifyWebhookSignature authenticates the event before anything else reads
// it. Never touches storage.
func (g *WompiGateway) VerifyWebhookSignature(header http.Header, body []byte) error {
	if g == nil || g.webhookSecret == "" {
		return ErrInvalidWebhookSignature
	}
	ts := header.Get("X-Wompi-Timestamp")
	sig := header.Get("X-Wompi-Signature")
	if ts == "" || sig == "" {
		return ErrInvalidWebhookSignature
	}
	signed := append([]byte(ts+"."), body...)
	return verifyHex(g.webhookSecret, signed, sig)
}

func (g *WompiGateway) NormalizeStatus(status string) string {
	return wompiNormalizeStatus(status)
}

func (g *WompiGateway) post(ctx context.Context, path string, payload any) (wompiEnvelope, json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return wompiEnvelope{}, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return wompiEnvelope{}, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.privateKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return wompiEnvelope{}, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return wompiEnvelope{}, nil, err
	}

	var env wompiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return wompiEnvelope{}, nil, fmt.Errorf("wompi: bad response (http %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return wompiEnvelope{}, nil, fmt.Errorf("wompi: %s (http %d)", env.Error.Type, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return wompiEnvelope{}, nil, fmt.Errorf("wompi: http %d", resp.StatusCode)
	}
	return env, raw, nil
}

func wompiMethodType(method string) string {
	switch method {
	case "pse":
		return "PSE"
	case "nequi":
		return "NEQUI"
	default:
		return "CARD"
	}
}

func wompiNormalizeStatus(status string) string {
	switch status {
	case "APPROVED":
		return interfaces.ChargeStatusApproved
	case "DECLINED", "VOIDED", "ERROR":
		return interfaces.ChargeStatusDeclined
	default:
		// PENDING and anything unknown stays pending until the webhook lands.
		return interfaces.ChargeStatusPending
	}
}
