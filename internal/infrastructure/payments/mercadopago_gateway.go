package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"servipago/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
var ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")

// MercadoPagoGateway charges through the official Mercado Pago SDK.
//
// Webhook callbacks are authenticated with the x-signature scheme: the
// "v1" value is an HMAC-SHA256 over "id:{id};request-id:{rid};ts:{ts};".

type MercadoPagoGateway struct {
	client        payment.Client
	refunds       refund.Client
	webhookSecret string
}

var _ interfaces.IPaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(accessToken, webhookSecret string) (*MercadoPagoGateway, error) {
	if accessToken == "" {
		log.Printf("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		log.Printf("[payment][gateway] failed creating mercadopago sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[payment][gateway] mercadopago client initialized")

	return &MercadoPagoGateway{
		client:        payment.NewClient(cfg),
		refunds:       refund.NewClient(cfg),
		webhookSecret: webhookSecret,
	}, nil
}

func (g *MercadoPagoGateway) Charge(ctx context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
	if g == nil || g.client == nil {
		log.Printf("[payment][gateway] mercadopago gateway not configured")
		return interfaces.ChargeResult{}, ErrMercadoPagoGatewayNotConfigured
	}
	log.Printf("[payment][gateway] mercadopago charge start payment_id=%s amount=%d", req.PaymentID, req.Amount)

	mpReq := payment.Request{
		TransactionAmount: float64(req.Amount),
		Description:       req.Description,
		PaymentMethodID:   mpPaymentMethodID(string(req.Method)),
		ExternalReference: req.PaymentID,
		Metadata: map[string]any{
			"payment_id": req.PaymentID,
			"booking_id": req.BookingID,
		},
	}

	resp, err := g.client.Create(ctx, mpReq)
	if err != nil {
		log.Printf("[payment][gateway] mercadopago sdk create failed err=%v", err)
		return interfaces.ChargeResult{}, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] mercadopago response marshal failed err=%v", err)
		return interfaces.ChargeResult{}, err
	}
	log.Printf("[payment][gateway] mercadopago charge done provider_tx_id=%d provider_status=%s", resp.ID, resp.Status)

	return interfaces.ChargeResult{
		ProviderTxID: fmt.Sprintf("%d", resp.ID),
		Status:       mpNormalizeStatus(resp.Status),
		Raw:          raw,
	}, nil
}

func (g *MercadoPagoGateway) Refund(ctx context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error) {
	if g == nil || g.refunds == nil {
		return interfaces.RefundResult{}, ErrMercadoPagoGatewayNotConfigured
	}

	paymentID, err := strconv.Atoi(providerTxID)
	if err != nil {
		return interfaces.RefundResult{}, fmt.Errorf("mercadopago refund: bad provider tx id %q: %w", providerTxID, err)
	}
	log.Printf("[payment][gateway] mercadopago refund start provider_tx_id=%s amount=%d", providerTxID, amount)

	var resp *refund.Response
	if amount > 0 {
		resp, err = g.refunds.CreatePartialRefund(ctx, paymentID, float64(amount))
	} else {
		resp, err = g.refunds.Create(ctx, paymentID)
	}
	if err != nil {
		log.Printf("[payment][gateway] mercadopago sdk refund failed err=%v", err)
		return interfaces.RefundResult{}, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return interfaces.RefundResult{}, err
	}
	log.Printf("[payment][gateway] mercadopago refund done refund_id=%d status=%s", resp.ID, resp.Status)

	return interfaces.RefundResult{
		ProviderRefundID: fmt.Sprintf("%d", resp.ID),
		Status:           mpNormalizeStatus(resp.Status),
		Raw:              raw,
	}, nil
}

// VerifyWebhookSignature checks the x-signature header before the callback
// body is trusted in any way. Never reads storage.
func (g *MercadoPagoGateway) VerifyWebhookSignature(header http.Header, body []byte) error {
	if g == nil || g.webhookSecret == "" {
		return ErrInvalidWebhookSignature
	}

	ts, v1 := parseMPSignatureHeader(header.Get("x-signature"))
	if ts == "" || v1 == "" {
		return ErrInvalidWebhookSignature
	}

	var evt struct {
		TransactionID string `json:"transactionId"`
		Data          struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &evt)
	id := evt.Data.ID
	if id == "" {
		id = evt.TransactionID
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", id, header.Get("x-request-id"), ts)
	return verifyHex(g.webhookSecret, []byte(manifest), v1)
}

func (g *MercadoPagoGateway) NormalizeStatus(status string) string {
	return mpNormalizeStatus(status)
}

// parseMPSignatureHeader splits "ts=...,v1=..." into its parts.
func parseMPSignatureHeader(raw string) (ts, v1 string) {
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

func mpPaymentMethodID(method string) string {
	switch method {
	case "pse":
		return "pse"
	case "nequi":
		return "nequi"
	default:
		return "credit_card"
	}
}

func mpNormalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "approved", "accredited":
		return interfaces.ChargeStatusApproved
	case "rejected", "cancelled", "charged_back":
		return interfaces.ChargeStatusDeclined
	default:
		// pending, in_process, in_mediation, authorized
		return interfaces.ChargeStatusPending
	}
}
