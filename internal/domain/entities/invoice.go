package entities

import "time"

// InvoiceStatus represents the lifecycle of an invoice.
//
// cancelled and refunded are terminal. Payment-backed invoices move
// issued -> paid during payment completion; refunded only follows a full
// payment refund.

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

// Invoice is the legal document generated for a completed payment.
//
// Storage model (DynamoDB):
//   - PK: payment_id (one invoice per payment)
//   - GSI1 (number-index): number
//
// Number is "{YYYYMM}{seq:04d}" where seq is a per-month counter, e.g.
// 2026080042. Amounts are integer minor units and satisfy:
//
//	Taxable == Subtotal - Discount
//	Total   == Taxable + IVAAmount - RetentionAmount
//
// IVARate and RetentionRate keep the decimal rates used at issuance so the
// document stays auditable when defaults change.

type Invoice struct {
	PaymentID      string `json:"payment_id"`
	ID             string `json:"id"`
	Number         string `json:"number"`
	BookingID      string `json:"booking_id"`
	ClientID       string `json:"client_id"`
	ProfessionalID string `json:"professional_id"`

	Subtotal        int64  `json:"subtotal"`
	Discount        int64  `json:"discount"`
	Taxable         int64  `json:"taxable"`
	IVAAmount       int64  `json:"iva_amount"`
	RetentionAmount int64  `json:"retention_amount"`
	PlatformFee     int64  `json:"platform_fee"`
	Total           int64  `json:"total"`
	IVARate         string `json:"iva_rate"`
	RetentionRate   string `json:"retention_rate"`
	Currency        string `json:"currency"`

	Status   InvoiceStatus `json:"status"`
	IssuedAt time.Time     `json:"issued_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// Cancellable reports whether the invoice may still be voided. Paid invoices
// are settled documents and can only move to refunded.
func (i Invoice) Cancellable() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusIssued
}
