package routes

import (
	"servipago/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathPayments = "/payments"
	PathBookings = "/bookings"
	PathInvoices = "/invoices"
	PathWebhooks = "/webhooks"
)

func addPaymentRoutes(rg *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, invoiceHandler *handlers.InvoiceHandler) {
	payments := rg.Group(PathPayments)
	{
		payments.POST("", paymentHandler.CreatePayment)
		payments.GET("/:payment_id", paymentHandler.GetPaymentByID)
		payments.POST("/:payment_id/refund", paymentHandler.RefundPayment)
		payments.GET("/:payment_id/invoice", invoiceHandler.GetInvoiceByPaymentID)
		payments.PATCH("/:payment_id/invoice/cancel", invoiceHandler.CancelInvoice)
	}

	bookings := rg.Group(PathBookings)
	{
		bookings.GET("/:booking_id/payments", paymentHandler.ListPaymentsByBookingID)
	}

	invoices := rg.Group(PathInvoices)
	{
		invoices.GET("/:number", invoiceHandler.GetInvoiceByNumber)
	}
}

func addWebhookRoutes(rg *gin.RouterGroup, webhookHandler *handlers.WebhookHandler) {
	webhooks := rg.Group(PathWebhooks)
	{
		// Providers call back here; signature checks happen before any lookup.
		webhooks.POST("/:provider", webhookHandler.ReceiveProviderWebhook)
	}
}
