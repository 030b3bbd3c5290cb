package entities

import (
	"encoding/json"
	"time"
)

// DefaultCurrency is the only settlement currency supported today.
// Amounts are integer minor units (Colombian pesos).
const DefaultCurrency = "COP"

// PaymentStatus represents the payment lifecycle.
//
// completed and failed are terminal. Once a payment reaches a terminal
// status no later event (sync response or webhook) may change it.

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// PaymentMethod is the collection instrument chosen by the client.

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPSE        PaymentMethod = "pse"
	PaymentMethodNequi      PaymentMethod = "nequi"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(raw) {
	case PaymentMethodCreditCard, PaymentMethodPSE, PaymentMethodNequi:
		return PaymentMethod(raw), true
	}
	return "", false
}

// RefundStatus tracks the single refund sub-record of a payment.
//
// A failed refund may be retried; a completed refund is final.

type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

type Refund struct {
	Status           RefundStatus `json:"status"`
	Amount           int64        `json:"amount,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	ProviderRefundID string       `json:"provider_refund_id,omitempty"`
	CompletedAt      time.Time    `json:"completed_at,omitempty"`
}

// Payment is the brokered payment persisted by the payments core.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (booking_id-index): booking_id
//   - GSI2 (provider_tx-index): provider_tx ("{provider}#{provider_tx_id}")
//   - GSI3 (status-updated_at-index): status / updated_at, used by the stuck sweep
//
// Money fields are integer minor units and satisfy:
//   - Total  == Amount + TaxAmount
//   - Payout == Amount - PlatformFee
//
// ProviderRaw keeps the provider response body (JSON) for audit only; it is
// never returned through the API.

type Payment struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	ClientID       string `json:"client_id"`
	ProfessionalID string `json:"professional_id"`

	Amount      int64  `json:"amount"`
	PlatformFee int64  `json:"platform_fee"`
	TaxAmount   int64  `json:"tax_amount"`
	ProviderFee int64  `json:"provider_fee"`
	Total       int64  `json:"total"`
	Payout      int64  `json:"payout"`
	Currency    string `json:"currency"`

	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`

	Provider      string          `json:"provider"`
	ProviderTxID  string          `json:"provider_tx_id,omitempty"`
	ProviderRaw   json.RawMessage `json:"provider_raw,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`

	Refund Refund `json:"refund"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// CanTransitionTo reports whether moving to target is a legal lifecycle step.
func (p Payment) CanTransitionTo(target PaymentStatus) bool {
	switch p.Status {
	case PaymentStatusPending:
		return target == PaymentStatusProcessing || target == PaymentStatusCompleted || target == PaymentStatusFailed
	case PaymentStatusProcessing:
		return target == PaymentStatusCompleted || target == PaymentStatusFailed
	default:
		// completed/failed are sticky.
		return false
	}
}

func (p *Payment) MarkProcessing(now time.Time) {
	p.Status = PaymentStatusProcessing
	p.UpdatedAt = now
}

func (p *Payment) MarkCompleted(providerTxID string, raw json.RawMessage, now time.Time) {
	p.Status = PaymentStatusCompleted
	if providerTxID != "" {
		p.ProviderTxID = providerTxID
	}
	if len(raw) > 0 {
		p.ProviderRaw = raw
	}
	p.CompletedAt = now
	p.UpdatedAt = now
}

func (p *Payment) MarkFailed(reason string, now time.Time) {
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.UpdatedAt = now
}

// Refundable reports whether a new refund attempt may start. Only completed
// payments without a pending or completed refund qualify.
func (p Payment) Refundable() bool {
	if p.Status != PaymentStatusCompleted {
		return false
	}
	switch p.Refund.Status {
	case "", RefundStatusNone, RefundStatusFailed:
		return true
	}
	return false
}

// RefundableAmount is the maximum amount a new refund may claim.
func (p Payment) RefundableAmount() int64 {
	if !p.Refundable() {
		return 0
	}
	return p.Total
}

func (p *Payment) BeginRefund(amount int64, reason string, now time.Time) {
	p.Refund = Refund{
		Status: RefundStatusPending,
		Amount: amount,
		Reason: reason,
	}
	p.UpdatedAt = now
}

func (p *Payment) CompleteRefund(providerRefundID string, now time.Time) {
	p.Refund.Status = RefundStatusCompleted
	p.Refund.ProviderRefundID = providerRefundID
	p.Refund.CompletedAt = now
	p.UpdatedAt = now
}

func (p *Payment) FailRefund(reason string, now time.Time) {
	p.Refund.Status = RefundStatusFailed
	p.Refund.Reason = reason
	p.UpdatedAt = now
}

// FullyRefunded reports whether the whole charged total was returned.
func (p Payment) FullyRefunded() bool {
	return p.Refund.Status == RefundStatusCompleted && p.Refund.Amount >= p.Total
}
