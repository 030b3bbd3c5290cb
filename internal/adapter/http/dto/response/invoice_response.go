package response

import (
	"time"

	"servipago/internal/domain/entities"
)

type InvoiceResponse struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	PaymentID      string `json:"payment_id"`
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

	Status   string    `json:"status"`
	IssuedAt time.Time `json:"issued_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromInvoice(inv entities.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		PaymentID:      inv.PaymentID,
		BookingID:      inv.BookingID,
		ClientID:       inv.ClientID,
		ProfessionalID: inv.ProfessionalID,

		Subtotal:        inv.Subtotal,
		Discount:        inv.Discount,
		Taxable:         inv.Taxable,
		IVAAmount:       inv.IVAAmount,
		RetentionAmount: inv.RetentionAmount,
		PlatformFee:     inv.PlatformFee,
		Total:           inv.Total,
		IVARate:         inv.IVARate,
		RetentionRate:   inv.RetentionRate,
		Currency:        inv.Currency,

		Status:   string(inv.Status),
		IssuedAt: inv.IssuedAt,

		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}
