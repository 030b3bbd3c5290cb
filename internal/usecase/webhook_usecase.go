package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"servipago/internal/adapter/http/middleware"
	"servipago/internal/domain/entities"
	"servipago/internal/usecase/interfaces"
)

var (
	ErrUnknownWebhookProvider  = errors.New("unknown webhook provider")
	ErrWebhookSignatureInvalid = errors.New("invalid webhook signature")
)

// webhookEvent is the payload shape providers are configured to send:
// the provider transaction id, the provider's own status string, and our
// payment id echoed back through metadata.
type webhookEvent struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Metadata      struct {
		PaymentID string `json:"paymentId"`
	} `json:"metadata"`
}

// IWebhookUseCase reconciles asynchronous provider callbacks with stored
// payments.
//
// Process verifies the signature before anything else touches storage.
// Events for unknown payments or already settled payments are acknowledged
// as no-ops; only internal failures surface as errors so the provider
// retries.

type IWebhookUseCase interface {
	Process(ctx context.Context, provider string, header http.Header, body []byte) error
}

type WebhookUseCase struct {
	repo     interfaces.IPaymentRepository
	payments IPaymentUseCase
	gateways interfaces.IPaymentGatewayResolver
}

var _ IWebhookUseCase = (*WebhookUseCase)(nil)

func NewWebhookUseCase(repo interfaces.IPaymentRepository, payments IPaymentUseCase, gateways interfaces.IPaymentGatewayResolver) *WebhookUseCase {
	return &WebhookUseCase{repo: repo, payments: payments, gateways: gateways}
}

func (u *WebhookUseCase) Process(ctx context.Context, provider string, header http.Header, body []byte) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	gateway, ok := u.gateways.ForProvider(provider)
	if !ok {
		// Same response as a bad signature so probing reveals nothing.
		middleware.RecordWebhookReceived(provider, "unknown_provider")
		log.Printf("[webhook][usecase] security event: callback for unknown provider=%q", provider)
		return ErrUnknownWebhookProvider
	}
	if err := gateway.VerifyWebhookSignature(header, body); err != nil {
		middleware.RecordWebhookReceived(provider, "bad_signature")
		log.Printf("[webhook][usecase] security event: signature rejected provider=%s err=%v", provider, err)
		return ErrWebhookSignatureInvalid
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		// Authentic but unparseable; acknowledge so the provider stops
		// retrying a body we will never understand.
		middleware.RecordWebhookReceived(provider, "malformed")
		log.Printf("[webhook][usecase] malformed body provider=%s err=%v", provider, err)
		return nil
	}

	p, err := u.lookupPayment(ctx, provider, evt)
	if err != nil {
		middleware.RecordWebhookReceived(provider, "error")
		return err
	}
	if p.ID == "" {
		middleware.RecordWebhookReceived(provider, "unknown_payment")
		log.Printf("[webhook][usecase] no payment for event provider=%s tx=%q payment_id=%q", provider, evt.TransactionID, evt.Metadata.PaymentID)
		return nil
	}
	if p.Status.Terminal() {
		middleware.RecordWebhookReceived(provider, "noop")
		log.Printf("[webhook][usecase] event for settled payment payment_id=%s status=%s", p.ID, p.Status)
		return nil
	}

	switch gateway.NormalizeStatus(evt.Status) {
	case interfaces.ChargeStatusApproved:
		if _, err := u.payments.CompleteFromProvider(ctx, p.ID, evt.TransactionID, json.RawMessage(body)); err != nil {
			middleware.RecordWebhookReceived(provider, "error")
			return err
		}
		middleware.RecordWebhookReceived(provider, "completed")
	case interfaces.ChargeStatusDeclined:
		if _, err := u.payments.FailFromProvider(ctx, p.ID, failureProviderDecline); err != nil {
			middleware.RecordWebhookReceived(provider, "error")
			return err
		}
		middleware.RecordWebhookReceived(provider, "failed")
	default:
		// Still in flight at the provider; nothing to settle yet.
		middleware.RecordWebhookReceived(provider, "pending")
	}
	return nil
}

// lookupPayment resolves the event to a stored payment, preferring the
// metadata payment id and falling back to the provider transaction index.
func (u *WebhookUseCase) lookupPayment(ctx context.Context, provider string, evt webhookEvent) (entities.Payment, error) {
	if id := strings.TrimSpace(evt.Metadata.PaymentID); id != "" {
		p, err := u.repo.GetByID(ctx, id)
		if err != nil || p.ID != "" {
			return p, err
		}
	}
	if tx := strings.TrimSpace(evt.TransactionID); tx != "" {
		return u.repo.GetByProviderTx(ctx, provider, tx)
	}
	return entities.Payment{}, nil
}
