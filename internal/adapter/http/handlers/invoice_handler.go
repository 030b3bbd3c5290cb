package handlers

import (
	"errors"
	"log"
	"net/http"
	response "servipago/internal/adapter/http/dto/response"
	"servipago/internal/usecase"
	"servipago/pkg"
	"strings"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles HTTP requests for invoices. Authentication is an
// outer concern; the gateway forwards the caller identity in X-Actor-ID and
// X-Actor-Role and this handler enforces the ownership rule on top of it.

type InvoiceHandler struct {
	usecase usecase.IInvoiceUseCase
}

func NewInvoiceHandler(uc usecase.IInvoiceUseCase) *InvoiceHandler {
	return &InvoiceHandler{usecase: uc}
}

// GetInvoiceByPaymentID returns the invoice issued for a payment.
func (h *InvoiceHandler) GetInvoiceByPaymentID(c *gin.Context) {
	paymentID := c.Param("payment_id")
	actor := actorFromHeaders(c)
	log.Printf("[invoice][handler] get-by-payment start payment_id=%s actor_role=%s", paymentID, actor.Role)

	invoice, err := h.usecase.GetForPayment(c.Request.Context(), actor, paymentID)
	if err != nil {
		log.Printf("[invoice][handler] get-by-payment failed payment_id=%s err=%v", paymentID, err)
		appErr := mapInvoiceError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromInvoice(invoice))
}

// GetInvoiceByNumber returns an invoice by its sequential number.
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	number := c.Param("number")
	actor := actorFromHeaders(c)
	log.Printf("[invoice][handler] get-by-number start number=%s actor_role=%s", number, actor.Role)

	invoice, err := h.usecase.GetByNumber(c.Request.Context(), actor, number)
	if err != nil {
		log.Printf("[invoice][handler] get-by-number failed number=%s err=%v", number, err)
		appErr := mapInvoiceError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromInvoice(invoice))
}

// CancelInvoice voids the invoice of a payment. Admin only.
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	paymentID := c.Param("payment_id")
	actor := actorFromHeaders(c)
	log.Printf("[invoice][handler] cancel start payment_id=%s actor_role=%s", paymentID, actor.Role)

	invoice, err := h.usecase.Cancel(c.Request.Context(), actor, paymentID)
	if err != nil {
		log.Printf("[invoice][handler] cancel failed payment_id=%s err=%v", paymentID, err)
		appErr := mapInvoiceError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[invoice][handler] cancel success payment_id=%s number=%s", paymentID, invoice.Number)

	c.JSON(http.StatusOK, response.FromInvoice(invoice))
}

func actorFromHeaders(c *gin.Context) usecase.Actor {
	return usecase.Actor{
		ID:   strings.TrimSpace(c.GetHeader("X-Actor-ID")),
		Role: strings.ToLower(strings.TrimSpace(c.GetHeader("X-Actor-Role"))),
	}
}

func mapInvoiceError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidPaymentID), errors.Is(err, usecase.ErrInvalidInvoiceNumber):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvoiceAccessDenied):
		return pkg.NewDomainErrorSimple("INVOICE_ACCESS_DENIED", "Not allowed to access this invoice", http.StatusForbidden)
	case errors.Is(err, usecase.ErrInvoiceNotFound):
		return pkg.NewDomainErrorSimple("INVOICE_NOT_FOUND", "Invoice not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvoiceNotCancellable):
		return pkg.NewDomainErrorSimple("INVOICE_NOT_CANCELLABLE", "Invoice not cancellable", http.StatusConflict)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
