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

const defaultPayUBaseURL = "https://sandbox.api.payulatam.com/payments-api/4.0/service.cgi"

// PayUGateway charges through the PayU Latam payments API. The API is a
// single command endpoint; charges and refunds are both SUBMIT_TRANSACTION
// calls with different transaction types.
//
// Webhook callbacks carry X-Payu-Signature, an HMAC-SHA256 over the raw
// body.

type PayUGateway struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	apiLogin      string
	webhookSecret string
}

var _ interfaces.IPaymentGateway = (*PayUGateway)(nil)

func NewPayUGateway(apiKey, apiLogin, webhookSecret string) *PayUGateway {
	base := os.Getenv("PAYU_BASE_URL")
	if base == "" {
		base = defaultPayUBaseURL
	}
	return &PayUGateway{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       base,
		apiKey:        apiKey,
		apiLogin:      apiLogin,
		webhookSecret: webhookSecret,
	}
}

type payuRequest struct {
	Language    string           `json:"language"`
	Command     string           `json:"command"`
	Merchant    payuMerchant     `json:"merchant"`
	Transaction *payuTransaction `json:"transaction,omitempty"`
	Test        bool             `json:"test"`
}

type payuMerchant struct {
	APIKey   string `json:"apiKey"`
	APILogin string `json:"apiLogin"`
}

type payuTransaction struct {
	Order               *payuOrder `json:"order,omitempty"`
	Type                string     `json:"type"`
	PaymentMethod       string     `json:"paymentMethod,omitempty"`
	PaymentCountry      string     `json:"paymentCountry,omitempty"`
	ParentTransactionID string     `json:"parentTransactionId,omitempty"`
	Reason              string     `json:"reason,omitempty"`
}

type payuOrder struct {
	ReferenceCode    string               `json:"referenceCode"`
	Description      string               `json:"description,omitempty"`
	AdditionalValues map[string]payuValue `json:"additionalValues,omitempty"`
}

type payuValue struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type payuResponse struct {
	Code                string `json:"code"`
	Error               string `json:"error,omitempty"`
	TransactionResponse *struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
		ResponseCode  string `json:"responseCode,omitempty"`
	} `json:"transactionResponse,omitempty"`
}

func (g *PayUGateway) Charge(ctx context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
	log.Printf("[payment][gateway] payu charge start payment_id=%s amount=%d method=%s", req.PaymentID, req.Amount, req.Method)

	body := payuRequest{
		Language: "es",
		Command:  "SUBMIT_TRANSACTION",
		Merchant: payuMerchant{APIKey: g.apiKey, APILogin: g.apiLogin},
		Transaction: &payuTransaction{
			Order: &payuOrder{
				ReferenceCode: req.PaymentID,
				Description:   req.Description,
				AdditionalValues: map[string]payuValue{
					"TX_VALUE": {Value: req.Amount, Currency: req.Currency},
				},
			},
			Type:           "AUTHORIZATION_AND_CAPTURE",
			PaymentMethod:  payuPaymentMethod(string(req.Method)),
			PaymentCountry: "CO",
		},
	}

	resp, raw, err := g.post(ctx, body)
	if err != nil {
		log.Printf("[payment][gateway] payu charge failed err=%v", err)
		return interfaces.ChargeResult{}, err
	}
	log.Printf("[payment][gateway] payu charge done provider_tx_id=%s state=%s", resp.TransactionResponse.TransactionID, resp.TransactionResponse.State)

	return interfaces.ChargeResult{
		ProviderTxID: resp.TransactionResponse.TransactionID,
		Status:       payuNormalizeState(resp.TransactionResponse.State),
		Raw:          raw,
	}, nil
}

func (g *PayUGateway) Refund(ctx context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error) {
	log.Printf("[payment][gateway] payu refund start provider_tx_id=%s amount=%d", providerTxID, amount)

	body := payuRequest{
		Language: "es",
		Command:  "SUBMIT_TRANSACTION",
		Merchant: payuMerchant{APIKey: g.apiKey, APILogin: g.apiLogin},
		Transaction: &payuTransaction{
			Type:                "REFUND",
			ParentTransactionID: providerTxID,
			Reason:              "requested by marketplace",
		},
	}

	resp, raw, err := g.post(ctx, body)
	if err != nil {
		log.Printf("[payment][gateway] payu refund failed err=%v", err)
		return interfaces.RefundResult{}, err
	}
	log.Printf("[payment][gateway] payu refund done refund_id=%s state=%s", resp.TransactionResponse.TransactionID, resp.TransactionResponse.State)

	return interfaces.RefundResult{
		ProviderRefundID: resp.TransactionResponse.TransactionID,
		Status:           payuNormalizeState(resp.TransactionResponse.State),
		Raw:              raw,
	}, nil
}

// VerifyWebhookSignature authenticates the event before anything else reads
// it. Never touches storage.
func (g *PayUGateway) VerifyWebhookSignature(header http.Header, body []byte) error {
	if g == nil || g.webhookSecret == "" {
		return ErrInvalidWebhookSignature
	}
	return verifyHex(g.webhookSecret, body, header.Get("X-Payu-Signature"))
}

func (g *PayUGateway) NormalizeStatus(status string) string {
	return payuNormalizeState(status)
}

func (g *PayUGateway) post(ctx context.Context, payload payuRequest) (payuResponse, json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return payuResponse{}, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return payuResponse{}, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return payuResponse{}, nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return payuResponse{}, nil, err
	}

	var resp payuResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return payuResponse{}, nil, fmt.Errorf("payu: bad response (http %d): %w", httpResp.StatusCode, err)
	}
	if resp.Code != "SUCCESS" {
		return payuResponse{}, nil, fmt.Errorf("payu: %s %s", resp.Code, resp.Error)
	}
	if resp.TransactionResponse == nil {
		return payuResponse{}, nil, fmt.Errorf("payu: response without transactionResponse")
	}
	return resp, raw, nil
}

func payuPaymentMethod(method string) string {
	switch method {
	case "pse":
		return "PSE"
	case "nequi":
		return "NEQUI"
	default:
		return "CREDIT_CARD"
	}
}

func payuNormalizeState(state string) string {
	switch state {
	case "APPROVED":
		return interfaces.ChargeStatusApproved
	case "DECLINED", "ERROR", "EXPIRED":
		return interfaces.ChargeStatusDeclined
	default:
		// PENDING and SUBMITTED resolve through the confirmation webhook.
		return interfaces.ChargeStatusPending
	}
}
