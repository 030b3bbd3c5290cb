package handlers

import (
	"errors"
	"log"
	"net/http"
	request "servipago/internal/adapter/http/dto/request"
	response "servipago/internal/adapter/http/dto/response"
	"servipago/internal/domain/pricing"
	"servipago/internal/domain/providers"
	"servipago/internal/usecase"
	"servipago/pkg"

	"github.com/gin-gonic/gin"
)

var errInvalidPaymentPayload = pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)

// PaymentHandler handles HTTP requests for the payment lifecycle.

type PaymentHandler struct {
	usecase usecase.IPaymentUseCase
}

func NewPaymentHandler(uc usecase.IPaymentUseCase) *PaymentHandler {
	return &PaymentHandler{usecase: uc}
}

// CreatePayment charges a booking through the selected provider.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var payload request.PaymentCreateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidPaymentPayload.HTTPStatus, errInvalidPaymentPayload.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] create start booking_id=%s method=%s", payload.BookingID, payload.Method)

	created, err := h.usecase.Create(c.Request.Context(), payload.BookingID, payload.Method, payload.Currency)
	if err != nil {
		log.Printf("[payment][handler] create failed booking_id=%s err=%v", payload.BookingID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] create success booking_id=%s payment_id=%s status=%s", payload.BookingID, created.ID, created.Status)

	c.JSON(http.StatusCreated, response.FromCreatedPayment(created))
}

// GetPaymentByID returns one payment. The stored raw provider payload is
// never part of the response.
func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	paymentID := c.Param("payment_id")
	log.Printf("[payment][handler] get start payment_id=%s", paymentID)

	payment, err := h.usecase.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		log.Printf("[payment][handler] get failed payment_id=%s err=%v", paymentID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromPayment(payment))
}

// ListPaymentsByBookingID returns every payment attempt for a booking,
// newest first.
func (h *PaymentHandler) ListPaymentsByBookingID(c *gin.Context) {
	bookingID := c.Param("booking_id")
	log.Printf("[payment][handler] list start booking_id=%s", bookingID)

	payments, err := h.usecase.ListByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		log.Printf("[payment][handler] list failed booking_id=%s err=%v", bookingID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromPayments(payments))
}

// RefundPayment refunds a completed payment, full when amount is omitted.
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	var payload request.RefundRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidPaymentPayload.HTTPStatus, errInvalidPaymentPayload.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] refund start payment_id=%s amount=%d", paymentID, payload.Amount)

	refunded, err := h.usecase.Refund(c.Request.Context(), paymentID, payload.Reason, payload.Amount)
	if err != nil {
		log.Printf("[payment][handler] refund failed payment_id=%s err=%v", paymentID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] refund success payment_id=%s refund_status=%s", refunded.ID, refunded.Refund.Status)

	c.JSON(http.StatusOK, response.FromRefundedPayment(refunded))
}

func mapPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidBookingID), errors.Is(err, usecase.ErrInvalidPaymentID), errors.Is(err, usecase.ErrInvalidRefundReason):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidPaymentMethod), errors.Is(err, pricing.ErrUnsupportedMethod):
		return pkg.NewDomainErrorSimple("UNSUPPORTED_METHOD", "Unsupported payment method", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidCurrency):
		return pkg.NewDomainErrorSimple("UNSUPPORTED_CURRENCY", "Unsupported currency", http.StatusBadRequest)
	case errors.Is(err, pricing.ErrInvalidAmount), errors.Is(err, usecase.ErrInvalidRefundAmount):
		return pkg.NewDomainErrorSimple("INVALID_AMOUNT", "Invalid amount", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrBookingNotFound):
		return pkg.NewDomainErrorSimple("BOOKING_NOT_FOUND", "Booking not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrPaymentNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrBookingAlreadyPaid):
		return pkg.NewDomainErrorSimple("BOOKING_ALREADY_PAID", "Booking already paid", http.StatusConflict)
	case errors.Is(err, usecase.ErrBookingNotPayable):
		return pkg.NewDomainErrorSimple("BOOKING_NOT_PAYABLE", "Booking not payable", http.StatusConflict)
	case errors.Is(err, usecase.ErrPaymentInFlight):
		return pkg.NewDomainErrorSimple("PAYMENT_IN_PROGRESS", "Payment already in progress for this booking", http.StatusConflict)
	case errors.Is(err, usecase.ErrPaymentNotRefundable):
		return pkg.NewDomainErrorSimple("PAYMENT_NOT_REFUNDABLE", "Payment not refundable", http.StatusConflict)
	case errors.Is(err, usecase.ErrRefundInProgress):
		return pkg.NewDomainErrorSimple("REFUND_IN_PROGRESS", "Refund already in progress", http.StatusConflict)
	case errors.Is(err, usecase.ErrRefundAlreadyCompleted):
		return pkg.NewDomainErrorSimple("REFUND_ALREADY_COMPLETED", "Refund already completed", http.StatusConflict)
	case errors.Is(err, usecase.ErrGatewayTimeout):
		return pkg.NewDomainErrorSimple("GATEWAY_TIMEOUT", "Payment provider timed out", http.StatusBadGateway)
	case errors.Is(err, usecase.ErrGatewayUnavailable), errors.Is(err, providers.ErrNoProviderAvailable):
		return pkg.NewDomainErrorSimple("GATEWAY_UNAVAILABLE", "Payment provider unavailable", http.StatusBadGateway)
	case errors.Is(err, usecase.ErrGatewayRejected):
		return pkg.NewDomainErrorSimple("PAYMENT_REJECTED", "Payment rejected by provider", http.StatusBadGateway)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
