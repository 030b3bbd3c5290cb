package response

import (
	"time"

	"servipago/internal/domain/entities"
)

// RefundResponse is the refund sub-record of a payment.
type RefundResponse struct {
	Status           string     `json:"status"`
	Amount           int64      `json:"amount,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	ProviderRefundID string     `json:"provider_refund_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// PaymentResponse is the API view of a payment. The stored raw provider
// payload never leaves the service.
type PaymentResponse struct {
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

	Method        string `json:"method"`
	Status        string `json:"status"`
	Provider      string `json:"provider"`
	ProviderTxID  string `json:"provider_tx_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	Refund *RefundResponse `json:"refund,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func FromPayment(p entities.Payment) PaymentResponse {
	res := PaymentResponse{
		ID:             p.ID,
		BookingID:      p.BookingID,
		ClientID:       p.ClientID,
		ProfessionalID: p.ProfessionalID,

		Amount:      p.Amount,
		PlatformFee: p.PlatformFee,
		TaxAmount:   p.TaxAmount,
		ProviderFee: p.ProviderFee,
		Total:       p.Total,
		Payout:      p.Payout,
		Currency:    p.Currency,

		Method:        string(p.Method),
		Status:        string(p.Status),
		Provider:      p.Provider,
		ProviderTxID:  p.ProviderTxID,
		FailureReason: p.FailureReason,

		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if !p.CompletedAt.IsZero() {
		completedAt := p.CompletedAt
		res.CompletedAt = &completedAt
	}
	if p.Refund.Status != "" && p.Refund.Status != entities.RefundStatusNone {
		refund := RefundResponse{
			Status:           string(p.Refund.Status),
			Amount:           p.Refund.Amount,
			Reason:           p.Refund.Reason,
			ProviderRefundID: p.Refund.ProviderRefundID,
		}
		if !p.Refund.CompletedAt.IsZero() {
			refundedAt := p.Refund.CompletedAt
			refund.CompletedAt = &refundedAt
		}
		res.Refund = &refund
	}
	return res
}

func FromPayments(list []entities.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, FromPayment(p))
	}
	return out
}

// BookingSnapshot reflects the booking payment state the lifecycle wrote
// for the charge outcome. The lifecycle is the only writer of that field,
// so the outcome determines it without a second read.
type BookingSnapshot struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
}

// PaymentCreateResponse is the create endpoint body: the payment summary
// plus the booking snapshot.
type PaymentCreateResponse struct {
	PaymentResponse
	Booking BookingSnapshot `json:"booking"`
}

func FromCreatedPayment(p entities.Payment) PaymentCreateResponse {
	state := entities.BookingUnpaid
	if p.Status == entities.PaymentStatusCompleted {
		state = entities.BookingPaid
	}
	return PaymentCreateResponse{
		PaymentResponse: FromPayment(p),
		Booking:         BookingSnapshot{ID: p.BookingID, PaymentStatus: string(state)},
	}
}

// RefundResultResponse is the refund endpoint body: the updated refund
// sub-record plus enough of the payment to anchor it.
type RefundResultResponse struct {
	PaymentID     string         `json:"payment_id"`
	PaymentStatus string         `json:"payment_status"`
	Refund        RefundResponse `json:"refund"`
}

func FromRefundedPayment(p entities.Payment) RefundResultResponse {
	res := RefundResultResponse{
		PaymentID:     p.ID,
		PaymentStatus: string(p.Status),
		Refund: RefundResponse{
			Status:           string(p.Refund.Status),
			Amount:           p.Refund.Amount,
			Reason:           p.Refund.Reason,
			ProviderRefundID: p.Refund.ProviderRefundID,
		},
	}
	if !p.Refund.CompletedAt.IsZero() {
		refundedAt := p.Refund.CompletedAt
		res.Refund.CompletedAt = &refundedAt
	}
	return res
}
