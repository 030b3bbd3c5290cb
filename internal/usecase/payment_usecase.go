package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"servipago/internal/adapter/http/middleware"
	"servipago/internal/domain/entities"
	"servipago/internal/domain/pricing"
	"servipago/internal/domain/providers"
	"servipago/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidPaymentID       = errors.New("invalid payment id")
	ErrInvalidBookingID       = errors.New("invalid booking_id")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidCurrency        = errors.New("unsupported currency")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingNotPayable      = errors.New("booking not payable")
	ErrBookingAlreadyPaid     = errors.New("booking already paid")
	ErrPaymentInFlight        = errors.New("payment already in progress for booking")
	ErrGatewayTimeout         = errors.New("payment gateway timeout")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrGatewayRejected        = errors.New("payment rejected by provider")
	ErrPaymentNotRefundable   = errors.New("payment not refundable")
	ErrRefundInProgress       = errors.New("refund already in progress")
	ErrRefundAlreadyCompleted = errors.New("refund already completed")
	ErrInvalidRefundAmount    = errors.New("invalid refund amount")
	ErrInvalidRefundReason    = errors.New("invalid refund reason")
)

const (
	defaultChargeTimeout = 30 * time.Second
	defaultRefundTimeout = 30 * time.Second

	failureGatewayTimeout  = "gateway_timeout"
	failureGatewayError    = "gateway_unavailable"
	failureProviderDecline = "provider_declined"
)

// IPaymentUseCase encapsulates the payment lifecycle.
//
// Create charges a booking through the selected provider and settles the
// synchronous outcome. CompleteFromProvider and FailFromProvider apply
// asynchronous outcomes (webhooks, sweeper) and are idempotent against
// terminal payments.

type IPaymentUseCase interface {
	Create(ctx context.Context, bookingID, method, currency string) (entities.Payment, error)
	GetByID(ctx context.Context, id string) (entities.Payment, error)
	ListByBookingID(ctx context.Context, bookingID string) ([]entities.Payment, error)
	Refund(ctx context.Context, paymentID, reason string, amount int64) (entities.Payment, error)
	CompleteFromProvider(ctx context.Context, paymentID, providerTxID string, raw json.RawMessage) (entities.Payment, error)
	FailFromProvider(ctx context.Context, paymentID, reason string) (entities.Payment, error)
}

type PaymentUseCase struct {
	repo     interfaces.IPaymentRepository
	bookings interfaces.IServiceRequestStore
	invoices IInvoiceUseCase
	registry *providers.Registry
	gateways interfaces.IPaymentGatewayResolver
	sink     interfaces.INotificationSink

	commissionRate decimal.Decimal
	ivaRate        decimal.Decimal
	chargeTimeout  time.Duration
	refundTimeout  time.Duration
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

func NewPaymentUseCase(
	repo interfaces.IPaymentRepository,
	bookings interfaces.IServiceRequestStore,
	invoices IInvoiceUseCase,
	registry *providers.Registry,
	gateways interfaces.IPaymentGatewayResolver,
	sink interfaces.INotificationSink,
) *PaymentUseCase {
	return &PaymentUseCase{
		repo:     repo,
		bookings: bookings,
		invoices: invoices,
		registry: registry,
		gateways: gateways,
		sink:     sink,

		commissionRate: pricing.RateFromEnv("PLATFORM_COMMISSION_RATE", pricing.DefaultCommissionRate),
		ivaRate:        pricing.RateFromEnv("INVOICE_IVA_RATE", pricing.DefaultIVARate),
		chargeTimeout:  durationFromEnv("PAYMENT_CHARGE_TIMEOUT", defaultChargeTimeout),
		refundTimeout:  durationFromEnv("PAYMENT_REFUND_TIMEOUT", defaultRefundTimeout),
	}
}

// Create collects the booking amount plus IVA from the client. The booking
// is claimed before any money moves so at most one payment can ever
// complete per booking, no matter how many attempts race.
func (u *PaymentUseCase) Create(ctx context.Context, bookingID, method, currency string) (entities.Payment, error) {
	log.Printf("[payment][usecase] create start booking_id=%q method=%q", bookingID, method)

	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return entities.Payment{}, ErrInvalidBookingID
	}
	m, ok := entities.ParsePaymentMethod(strings.TrimSpace(method))
	if !ok {
		log.Printf("[payment][usecase] invalid method booking_id=%s method=%q", bookingID, method)
		return entities.Payment{}, ErrInvalidPaymentMethod
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != "" && currency != entities.DefaultCurrency {
		return entities.Payment{}, ErrInvalidCurrency
	}

	booking, err := u.bookings.GetByID(ctx, bookingID)
	if err != nil {
		log.Printf("[payment][usecase] failed loading booking booking_id=%s err=%v", bookingID, err)
		return entities.Payment{}, err
	}
	if booking.ID == "" {
		return entities.Payment{}, ErrBookingNotFound
	}
	if booking.PaymentStatus == entities.BookingPaid || booking.PaymentStatus == entities.BookingRefunded {
		return entities.Payment{}, ErrBookingAlreadyPaid
	}
	if !booking.Payable() {
		log.Printf("[payment][usecase] booking not payable booking_id=%s status=%s", bookingID, booking.Status)
		return entities.Payment{}, ErrBookingNotPayable
	}

	sel, err := u.registry.Select(m, booking.Amount)
	if err != nil {
		log.Printf("[payment][usecase] provider selection failed booking_id=%s method=%s err=%v", bookingID, m, err)
		return entities.Payment{}, err
	}
	fees, err := pricing.ComputeFees(sel.Descriptor, m, booking.Amount)
	if err != nil {
		return entities.Payment{}, err
	}
	platformFee := pricing.PlatformFee(booking.Amount, u.commissionRate)
	taxes := pricing.ComputeTaxes(booking.Amount, u.ivaRate, decimal.Zero)

	now := time.Now().UTC()
	p := entities.Payment{
		ID:             uuid.NewString(),
		BookingID:      bookingID,
		ClientID:       booking.ClientID,
		ProfessionalID: booking.ProfessionalID,

		Amount:      booking.Amount,
		PlatformFee: platformFee,
		TaxAmount:   taxes.IVA,
		ProviderFee: fees.Total,
		Total:       booking.Amount + taxes.IVA,
		Payout:      booking.Amount - platformFee,
		Currency:    entities.DefaultCurrency,

		Method:   m,
		Status:   entities.PaymentStatusPending,
		Provider: sel.Descriptor.Key,
		Refund:   entities.Refund{Status: entities.RefundStatusNone},

		CreatedAt: now,
		UpdatedAt: now,
	}
	log.Printf("[payment][usecase] charging booking_id=%s payment_id=%s provider=%s fallback=%t total=%d",
		bookingID, p.ID, p.Provider, sel.Fallback, p.Total)

	claimed, err := u.repo.ClaimBooking(ctx, bookingID, p.ID)
	if err != nil {
		return entities.Payment{}, err
	}
	if !claimed {
		log.Printf("[payment][usecase] booking claim denied booking_id=%s payment_id=%s", bookingID, p.ID)
		return entities.Payment{}, ErrPaymentInFlight
	}

	if _, err := u.repo.Create(ctx, p); err != nil {
		if rerr := u.repo.ReleaseBooking(ctx, bookingID, p.ID); rerr != nil {
			log.Printf("[payment][usecase] claim release failed booking_id=%s payment_id=%s err=%v", bookingID, p.ID, rerr)
		}
		return entities.Payment{}, err
	}
	if _, err := u.repo.MarkProcessing(ctx, p.ID); err != nil {
		// Row stays pending; the sweeper fails it and frees the claim.
		return entities.Payment{}, err
	}

	gateway, ok := u.gateways.ForProvider(p.Provider)
	if !ok {
		u.failCharge(ctx, p.ID, failureGatewayError)
		return entities.Payment{}, ErrGatewayUnavailable
	}

	chargeCtx, cancel := context.WithTimeout(ctx, u.chargeTimeout)
	defer cancel()
	res, err := gateway.Charge(chargeCtx, interfaces.ChargeRequest{
		PaymentID:   p.ID,
		BookingID:   p.BookingID,
		ClientID:    p.ClientID,
		Method:      p.Method,
		Amount:      p.Total,
		Currency:    p.Currency,
		Description: "Servicio " + p.BookingID,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[payment][usecase] gateway timeout payment_id=%s provider=%s", p.ID, p.Provider)
			u.failCharge(ctx, p.ID, failureGatewayTimeout)
			return entities.Payment{}, ErrGatewayTimeout
		}
		log.Printf("[payment][usecase] gateway failed payment_id=%s provider=%s err=%v", p.ID, p.Provider, err)
		u.failCharge(ctx, p.ID, failureGatewayError)
		return entities.Payment{}, ErrGatewayUnavailable
	}

	switch res.Status {
	case interfaces.ChargeStatusApproved:
		return u.CompleteFromProvider(ctx, p.ID, res.ProviderTxID, res.Raw)
	case interfaces.ChargeStatusPending:
		// Charge in flight at the provider; the webhook settles it.
		attached, err := u.repo.AttachProviderTx(ctx, p.ID, p.Provider, res.ProviderTxID, res.Raw)
		if err != nil {
			return entities.Payment{}, err
		}
		if attached.ID == "" {
			return u.GetByID(ctx, p.ID)
		}
		log.Printf("[payment][usecase] charge pending payment_id=%s provider_tx_id=%s", p.ID, res.ProviderTxID)
		return attached, nil
	default:
		log.Printf("[payment][usecase] charge declined payment_id=%s provider_tx_id=%s", p.ID, res.ProviderTxID)
		u.failCharge(ctx, p.ID, failureProviderDecline)
		return entities.Payment{}, ErrGatewayRejected
	}
}

func (u *PaymentUseCase) GetByID(ctx context.Context, id string) (entities.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Payment{}, ErrInvalidPaymentID
	}

	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.Payment{}, err
	}
	if p.ID == "" {
		return entities.Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (u *PaymentUseCase) ListByBookingID(ctx context.Context, bookingID string) ([]entities.Payment, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return u.repo.ListByBookingID(ctx, bookingID)
}

// Refund returns the charged total (or part of it) to the client. A refund
// that covers the full total also flips the invoice and the booking to
// refunded.
func (u *PaymentUseCase) Refund(ctx context.Context, paymentID, reason string, amount int64) (entities.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return entities.Payment{}, ErrInvalidPaymentID
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return entities.Payment{}, ErrInvalidRefundReason
	}

	p, err := u.repo.GetByID(ctx, paymentID)
	if err != nil {
		return entities.Payment{}, err
	}
	if p.ID == "" {
		return entities.Payment{}, ErrPaymentNotFound
	}
	if p.Status != entities.PaymentStatusCompleted {
		return entities.Payment{}, ErrPaymentNotRefundable
	}
	switch p.Refund.Status {
	case entities.RefundStatusPending:
		return entities.Payment{}, ErrRefundInProgress
	case entities.RefundStatusCompleted:
		return entities.Payment{}, ErrRefundAlreadyCompleted
	}
	if amount < 0 {
		return entities.Payment{}, ErrInvalidRefundAmount
	}
	if amount == 0 {
		amount = p.Total
	}
	if amount > p.RefundableAmount() {
		return entities.Payment{}, ErrInvalidRefundAmount
	}
	log.Printf("[payment][usecase] refund start payment_id=%s amount=%d reason=%q", paymentID, amount, reason)

	pending, err := u.repo.UpdateRefund(ctx, p.ID, entities.Refund{
		Status: entities.RefundStatusPending,
		Amount: amount,
		Reason: reason,
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if pending.ID == "" {
		return entities.Payment{}, ErrPaymentNotRefundable
	}

	gateway, ok := u.gateways.ForProvider(p.Provider)
	if !ok {
		u.failRefund(ctx, p.ID, amount, reason)
		return entities.Payment{}, ErrGatewayUnavailable
	}

	refundCtx, cancel := context.WithTimeout(ctx, u.refundTimeout)
	defer cancel()
	res, err := gateway.Refund(refundCtx, p.ProviderTxID, amount)
	if err != nil {
		u.failRefund(ctx, p.ID, amount, reason)
		if errors.Is(err, context.DeadlineExceeded) {
			return entities.Payment{}, ErrGatewayTimeout
		}
		log.Printf("[payment][usecase] refund gateway failed payment_id=%s err=%v", paymentID, err)
		return entities.Payment{}, ErrGatewayUnavailable
	}
	if res.Status == interfaces.ChargeStatusDeclined {
		log.Printf("[payment][usecase] refund declined payment_id=%s refund_id=%s", paymentID, res.ProviderRefundID)
		u.failRefund(ctx, p.ID, amount, reason)
		return entities.Payment{}, ErrGatewayRejected
	}

	done, err := u.repo.UpdateRefund(ctx, p.ID, entities.Refund{
		Status:           entities.RefundStatusCompleted,
		Amount:           amount,
		Reason:           reason,
		ProviderRefundID: res.ProviderRefundID,
		CompletedAt:      time.Now().UTC(),
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if done.ID == "" {
		return u.GetByID(ctx, p.ID)
	}

	if done.FullyRefunded() {
		if _, err := u.invoices.MarkRefunded(ctx, p.ID); err != nil {
			log.Printf("[payment][usecase] invoice refund flip failed payment_id=%s err=%v", paymentID, err)
		}
		if _, err := u.bookings.SetPaymentStatus(ctx, p.BookingID, entities.BookingRefunded); err != nil {
			log.Printf("[payment][usecase] booking refund flip failed booking_id=%s err=%v", p.BookingID, err)
		}
	}
	u.notify(ctx, done, interfaces.EventPaymentRefunded, amount, reason, "")
	middleware.RecordPaymentProcessed("refunded")
	log.Printf("[payment][usecase] refund success payment_id=%s refund_id=%s amount=%d", paymentID, res.ProviderRefundID, amount)

	return done, nil
}

// CompleteFromProvider settles a payment as completed and runs the
// completion steps in order: booking flip, invoice, notification. Safe to
// call repeatedly; a payment already terminal is returned unchanged.
func (u *PaymentUseCase) CompleteFromProvider(ctx context.Context, paymentID, providerTxID string, raw json.RawMessage) (entities.Payment, error) {
	p, err := u.repo.GetByID(ctx, paymentID)
	if err != nil {
		return entities.Payment{}, err
	}
	if p.ID == "" {
		return entities.Payment{}, ErrPaymentNotFound
	}
	if p.Status.Terminal() {
		return p, nil
	}

	completed, err := u.repo.MarkCompleted(ctx, paymentID, p.Provider, providerTxID, raw)
	if err != nil {
		return entities.Payment{}, err
	}
	if completed.ID == "" {
		// Lost the transition race; whatever won is the truth.
		return u.GetByID(ctx, paymentID)
	}

	if _, err := u.bookings.SetPaymentStatus(ctx, completed.BookingID, entities.BookingPaid); err != nil {
		log.Printf("[payment][usecase] booking paid flip failed booking_id=%s payment_id=%s err=%v", completed.BookingID, completed.ID, err)
	}

	invoiceNumber := ""
	inv, err := u.invoices.CreateForPayment(ctx, completed)
	if err != nil {
		log.Printf("[payment][usecase] invoice creation failed payment_id=%s err=%v", completed.ID, err)
	} else {
		invoiceNumber = inv.Number
	}

	u.notify(ctx, completed, interfaces.EventPaymentCompleted, completed.Total, "", invoiceNumber)
	middleware.RecordPaymentProcessed(string(entities.PaymentStatusCompleted))
	log.Printf("[payment][usecase] completed payment_id=%s provider_tx_id=%s invoice=%s", completed.ID, providerTxID, invoiceNumber)

	return completed, nil
}

// FailFromProvider settles a payment as failed and frees the booking claim
// so the client can retry. Safe to call repeatedly.
func (u *PaymentUseCase) FailFromProvider(ctx context.Context, paymentID, reason string) (entities.Payment, error) {
	p, err := u.repo.GetByID(ctx, paymentID)
	if err != nil {
		return entities.Payment{}, err
	}
	if p.ID == "" {
		return entities.Payment{}, ErrPaymentNotFound
	}
	if p.Status.Terminal() {
		return p, nil
	}

	failed, err := u.repo.MarkFailed(ctx, paymentID, reason)
	if err != nil {
		return entities.Payment{}, err
	}
	if failed.ID == "" {
		return u.GetByID(ctx, paymentID)
	}

	if err := u.repo.ReleaseBooking(ctx, failed.BookingID, failed.ID); err != nil {
		log.Printf("[payment][usecase] claim release failed booking_id=%s payment_id=%s err=%v", failed.BookingID, failed.ID, err)
	}
	u.notify(ctx, failed, interfaces.EventPaymentFailed, failed.Total, reason, "")
	middleware.RecordPaymentProcessed(string(entities.PaymentStatusFailed))
	log.Printf("[payment][usecase] failed payment_id=%s reason=%s", failed.ID, reason)

	return failed, nil
}

func (u *PaymentUseCase) failCharge(ctx context.Context, paymentID, reason string) {
	if _, err := u.FailFromProvider(ctx, paymentID, reason); err != nil {
		log.Printf("[payment][usecase] fail bookkeeping error payment_id=%s reason=%s err=%v", paymentID, reason, err)
	}
}

func (u *PaymentUseCase) failRefund(ctx context.Context, paymentID string, amount int64, reason string) {
	if _, err := u.repo.UpdateRefund(ctx, paymentID, entities.Refund{
		Status: entities.RefundStatusFailed,
		Amount: amount,
		Reason: reason,
	}); err != nil {
		log.Printf("[payment][usecase] refund fail bookkeeping error payment_id=%s err=%v", paymentID, err)
	}
}

func (u *PaymentUseCase) notify(ctx context.Context, p entities.Payment, eventType string, amount int64, reason, invoiceNumber string) {
	if u.sink == nil {
		return
	}
	n := interfaces.PaymentNotification{
		EventType:      eventType,
		PaymentID:      p.ID,
		BookingID:      p.BookingID,
		ClientID:       p.ClientID,
		ProfessionalID: p.ProfessionalID,
		Amount:         amount,
		Currency:       p.Currency,
		InvoiceNumber:  invoiceNumber,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}
	if err := u.sink.Publish(ctx, n); err != nil {
		log.Printf("[payment][usecase] notification publish failed payment_id=%s event=%s err=%v", p.ID, eventType, err)
	}
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("[payment][usecase] invalid duration in %s=%q; using default %s", key, raw, def)
		return def
	}
	return d
}
