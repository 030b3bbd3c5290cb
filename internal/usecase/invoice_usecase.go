package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"servipago/internal/adapter/http/middleware"
	"servipago/internal/domain/entities"
	"servipago/internal/domain/pricing"
	"servipago/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrInvalidInvoiceNumber  = errors.New("invalid invoice number")
	ErrInvoiceAccessDenied   = errors.New("invoice access denied")
	ErrInvoiceNotCancellable = errors.New("invoice not cancellable")
)

// Actor roles accepted on invoice reads.
const (
	RoleAdmin        = "admin"
	RoleClient       = "client"
	RoleProfessional = "professional"
)

// Actor identifies the caller an invoice operation runs for. Authentication
// happens upstream; handlers pass the identity through as-is.
type Actor struct {
	ID   string
	Role string
}

// IInvoiceUseCase issues and serves invoices.
//
// CreateForPayment is idempotent per payment: concurrent calls for the same
// payment converge on one document. Reads are scoped to the invoice's
// client, its professional, or an admin.

type IInvoiceUseCase interface {
	CreateForPayment(ctx context.Context, p entities.Payment) (entities.Invoice, error)
	GetForPayment(ctx context.Context, actor Actor, paymentID string) (entities.Invoice, error)
	GetByNumber(ctx context.Context, actor Actor, number string) (entities.Invoice, error)
	Cancel(ctx context.Context, actor Actor, paymentID string) (entities.Invoice, error)
	MarkRefunded(ctx context.Context, paymentID string) (entities.Invoice, error)
}

type InvoiceUseCase struct {
	repo interfaces.IInvoiceRepository

	ivaRate       decimal.Decimal
	retentionRate decimal.Decimal
}

var _ IInvoiceUseCase = (*InvoiceUseCase)(nil)

func NewInvoiceUseCase(repo interfaces.IInvoiceRepository) *InvoiceUseCase {
	return &InvoiceUseCase{
		repo:          repo,
		ivaRate:       pricing.RateFromEnv("INVOICE_IVA_RATE", pricing.DefaultIVARate),
		retentionRate: pricing.ClampRetention(pricing.RateFromEnv("INVOICE_RETENTION_RATE", pricing.DefaultRetentionRate)),
	}
}

// CreateForPayment issues the invoice for a completed payment and marks it
// paid. The invoice number is "{YYYYMM}{seq:04d}" with a per-month counter.
func (u *InvoiceUseCase) CreateForPayment(ctx context.Context, p entities.Payment) (entities.Invoice, error) {
	if strings.TrimSpace(p.ID) == "" {
		return entities.Invoice{}, ErrInvalidPaymentID
	}

	existing, err := u.repo.GetByPaymentID(ctx, p.ID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if existing.PaymentID != "" {
		return existing, nil
	}

	amounts, err := pricing.ComputeInvoiceAmounts(p.Amount, 0, u.ivaRate, u.retentionRate)
	if err != nil {
		return entities.Invoice{}, err
	}

	now := time.Now().UTC()
	period := now.Format("200601")
	seq, err := u.repo.NextNumber(ctx, period)
	if err != nil {
		return entities.Invoice{}, err
	}
	number := fmt.Sprintf("%s%04d", period, seq)

	inv := entities.Invoice{
		PaymentID:      p.ID,
		ID:             uuid.NewString(),
		Number:         number,
		BookingID:      p.BookingID,
		ClientID:       p.ClientID,
		ProfessionalID: p.ProfessionalID,

		Subtotal:        amounts.Subtotal,
		Discount:        amounts.Discount,
		Taxable:         amounts.Taxable,
		IVAAmount:       amounts.IVA,
		RetentionAmount: amounts.Retention,
		PlatformFee:     p.PlatformFee,
		Total:           amounts.Total,
		IVARate:         u.ivaRate.String(),
		RetentionRate:   u.retentionRate.String(),
		Currency:        p.Currency,

		Status:   entities.InvoiceStatusIssued,
		IssuedAt: now,

		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := u.repo.Create(ctx, inv)
	if err != nil {
		return entities.Invoice{}, err
	}
	if created.PaymentID == "" {
		// Lost the race to a concurrent completion; the winner's document
		// stands and the burned sequence number leaves a gap.
		return u.repo.GetByPaymentID(ctx, p.ID)
	}
	middleware.RecordInvoiceIssued()
	log.Printf("[invoice][usecase] issued number=%s payment_id=%s total=%d", number, p.ID, amounts.Total)

	paid, err := u.repo.MarkPaid(ctx, p.ID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if paid.PaymentID == "" {
		return created, nil
	}
	return paid, nil
}

func (u *InvoiceUseCase) GetForPayment(ctx context.Context, actor Actor, paymentID string) (entities.Invoice, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return entities.Invoice{}, ErrInvalidPaymentID
	}

	inv, err := u.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.PaymentID == "" {
		return entities.Invoice{}, ErrInvoiceNotFound
	}
	if err := authorizeInvoice(actor, inv); err != nil {
		return entities.Invoice{}, err
	}
	return inv, nil
}

func (u *InvoiceUseCase) GetByNumber(ctx context.Context, actor Actor, number string) (entities.Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return entities.Invoice{}, ErrInvalidInvoiceNumber
	}

	inv, err := u.repo.GetByNumber(ctx, number)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.PaymentID == "" {
		return entities.Invoice{}, ErrInvoiceNotFound
	}
	if err := authorizeInvoice(actor, inv); err != nil {
		return entities.Invoice{}, err
	}
	return inv, nil
}

// Cancel voids an unsettled invoice. Admin only; paid invoices can no
// longer be cancelled, only refunded through the payment.
func (u *InvoiceUseCase) Cancel(ctx context.Context, actor Actor, paymentID string) (entities.Invoice, error) {
	if actor.Role != RoleAdmin {
		return entities.Invoice{}, ErrInvoiceAccessDenied
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return entities.Invoice{}, ErrInvalidPaymentID
	}

	inv, err := u.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.PaymentID == "" {
		return entities.Invoice{}, ErrInvoiceNotFound
	}
	if !inv.Cancellable() {
		return entities.Invoice{}, ErrInvoiceNotCancellable
	}

	cancelled, err := u.repo.Cancel(ctx, paymentID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if cancelled.PaymentID == "" {
		// Raced with a settlement; the stored status decides.
		return entities.Invoice{}, ErrInvoiceNotCancellable
	}
	log.Printf("[invoice][usecase] cancelled number=%s payment_id=%s actor=%s", cancelled.Number, paymentID, actor.ID)
	return cancelled, nil
}

// MarkRefunded flips a paid invoice to refunded after a full payment refund.
func (u *InvoiceUseCase) MarkRefunded(ctx context.Context, paymentID string) (entities.Invoice, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return entities.Invoice{}, ErrInvalidPaymentID
	}

	inv, err := u.repo.MarkRefunded(ctx, paymentID)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.PaymentID == "" {
		cur, err := u.repo.GetByPaymentID(ctx, paymentID)
		if err != nil {
			return entities.Invoice{}, err
		}
		if cur.PaymentID == "" {
			return entities.Invoice{}, ErrInvoiceNotFound
		}
		return cur, nil
	}
	log.Printf("[invoice][usecase] refunded number=%s payment_id=%s", inv.Number, paymentID)
	return inv, nil
}

func authorizeInvoice(actor Actor, inv entities.Invoice) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleClient:
		if actor.ID != "" && actor.ID == inv.ClientID {
			return nil
		}
	case RoleProfessional:
		if actor.ID != "" && actor.ID == inv.ProfessionalID {
			return nil
		}
	}
	return ErrInvoiceAccessDenied
}
