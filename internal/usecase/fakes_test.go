package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"servipago/internal/domain/entities"
	"servipago/internal/usecase/interfaces"
)

// In-memory doubles honoring the same conditional-write contracts as the
// DynamoDB repositories: failed conditions yield a zero value with a nil
// error. The concurrency tests run against these.

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]entities.Payment
	claims   map[string]string
}

var _ interfaces.IPaymentRepository = (*fakePaymentRepo)(nil)

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: map[string]entities.Payment{},
		claims:   map[string]string{},
	}
}

func (f *fakePaymentRepo) Create(_ context.Context, p entities.Payment) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.payments[p.ID]; exists {
		return entities.Payment{}, errors.New("payment id already exists")
	}
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id string) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id], nil
}

func (f *fakePaymentRepo) GetByProviderTx(_ context.Context, provider, providerTxID string) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.Provider == provider && p.ProviderTxID == providerTxID {
			return p, nil
		}
	}
	return entities.Payment{}, nil
}

func (f *fakePaymentRepo) ListByBookingID(_ context.Context, bookingID string) ([]entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Payment
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) MarkProcessing(_ context.Context, id string) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status != entities.PaymentStatusPending {
		return entities.Payment{}, nil
	}
	p.MarkProcessing(time.Now().UTC())
	f.payments[id] = p
	return p, nil
}

func (f *fakePaymentRepo) AttachProviderTx(_ context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status != entities.PaymentStatusProcessing {
		return entities.Payment{}, nil
	}
	p.Provider = provider
	p.ProviderTxID = providerTxID
	if len(raw) > 0 {
		p.ProviderRaw = raw
	}
	p.UpdatedAt = time.Now().UTC()
	f.payments[id] = p
	return p, nil
}

func (f *fakePaymentRepo) MarkCompleted(_ context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status.Terminal() {
		return entities.Payment{}, nil
	}
	p.Provider = provider
	p.MarkCompleted(providerTxID, raw, time.Now().UTC())
	f.payments[id] = p
	return p, nil
}

func (f *fakePaymentRepo) MarkFailed(_ context.Context, id, reason string) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status.Terminal() {
		return entities.Payment{}, nil
	}
	p.MarkFailed(reason, time.Now().UTC())
	f.payments[id] = p
	return p, nil
}

func (f *fakePaymentRepo) UpdateRefund(_ context.Context, id string, refund entities.Refund) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.Status != entities.PaymentStatusCompleted {
		return entities.Payment{}, nil
	}
	p.Refund = refund
	p.UpdatedAt = time.Now().UTC()
	f.payments[id] = p
	return p, nil
}

func (f *fakePaymentRepo) ListStuck(_ context.Context, olderThan time.Time, _ int32) ([]entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Payment
	for _, p := range f.payments {
		if !p.Status.Terminal() && p.UpdatedAt.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) ClaimBooking(_ context.Context, bookingID, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.claims[bookingID]; exists {
		return false, nil
	}
	f.claims[bookingID] = paymentID
	return true, nil
}

func (f *fakePaymentRepo) ReleaseBooking(_ context.Context, bookingID, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims[bookingID] == paymentID {
		delete(f.claims, bookingID)
	}
	return nil
}

func (f *fakePaymentRepo) get(id string) entities.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[id]
}

func (f *fakePaymentRepo) claimHolder(bookingID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.claims[bookingID]
	return id, ok
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]entities.Invoice
	counters map[string]int64
}

var _ interfaces.IInvoiceRepository = (*fakeInvoiceRepo)(nil)

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: map[string]entities.Invoice{},
		counters: map[string]int64{},
	}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv entities.Invoice) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.invoices[inv.PaymentID]; exists {
		return entities.Invoice{}, nil
	}
	f.invoices[inv.PaymentID] = inv
	return inv, nil
}

func (f *fakeInvoiceRepo) GetByPaymentID(_ context.Context, paymentID string) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[paymentID], nil
}

func (f *fakeInvoiceRepo) GetByNumber(_ context.Context, number string) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return entities.Invoice{}, nil
}

func (f *fakeInvoiceRepo) MarkPaid(_ context.Context, paymentID string) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[paymentID]
	if !ok || inv.Status != entities.InvoiceStatusIssued {
		return entities.Invoice{}, nil
	}
	inv.Status = entities.InvoiceStatusPaid
	inv.UpdatedAt = time.Now().UTC()
	f.invoices[paymentID] = inv
	return inv, nil
}

func (f *fakeInvoiceRepo) MarkRefunded(_ context.Context, paymentID string) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[paymentID]
	if !ok || inv.Status != entities.InvoiceStatusPaid {
		return entities.Invoice{}, nil
	}
	inv.Status = entities.InvoiceStatusRefunded
	inv.UpdatedAt = time.Now().UTC()
	f.invoices[paymentID] = inv
	return inv, nil
}

func (f *fakeInvoiceRepo) Cancel(_ context.Context, paymentID string) (entities.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[paymentID]
	if !ok || !inv.Cancellable() {
		return entities.Invoice{}, nil
	}
	inv.Status = entities.InvoiceStatusCancelled
	inv.UpdatedAt = time.Now().UTC()
	f.invoices[paymentID] = inv
	return inv, nil
}

func (f *fakeInvoiceRepo) NextNumber(_ context.Context, period string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[period]++
	return f.counters[period], nil
}

func (f *fakeInvoiceRepo) counter(period string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[period]
}

func (f *fakeInvoiceRepo) get(paymentID string) entities.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[paymentID]
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]entities.ServiceRequest
	getErr   error
}

var _ interfaces.IServiceRequestStore = (*fakeBookingStore)(nil)

func newFakeBookingStore(bookings ...entities.ServiceRequest) *fakeBookingStore {
	f := &fakeBookingStore{bookings: map[string]entities.ServiceRequest{}}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookingStore) GetByID(_ context.Context, id string) (entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return entities.ServiceRequest{}, f.getErr
	}
	return f.bookings[id], nil
}

func (f *fakeBookingStore) SetPaymentStatus(_ context.Context, id string, state entities.BookingPaymentState) (entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return entities.ServiceRequest{}, errors.New("service request not found: " + id)
	}
	b.PaymentStatus = state
	b.UpdatedAt = time.Now().UTC()
	f.bookings[id] = b
	return b, nil
}

func (f *fakeBookingStore) get(id string) entities.ServiceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id]
}

// fakeGateway scripts provider behavior per test.
type fakeGateway struct {
	chargeFn  func(ctx context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error)
	refundFn  func(ctx context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error)
	verifyErr error
}

var _ interfaces.IPaymentGateway = (*fakeGateway)(nil)

func approvingGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) Charge(ctx context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
	if g.chargeFn != nil {
		return g.chargeFn(ctx, req)
	}
	return interfaces.ChargeResult{
		ProviderTxID: "tx-" + req.PaymentID,
		Status:       interfaces.ChargeStatusApproved,
		Raw:          json.RawMessage(`{"status":"APPROVED"}`),
	}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, providerTxID string, amount int64) (interfaces.RefundResult, error) {
	if g.refundFn != nil {
		return g.refundFn(ctx, providerTxID, amount)
	}
	return interfaces.RefundResult{
		ProviderRefundID: "refund-" + providerTxID,
		Status:           interfaces.ChargeStatusApproved,
	}, nil
}

func (g *fakeGateway) VerifyWebhookSignature(http.Header, []byte) error {
	return g.verifyErr
}

func (g *fakeGateway) NormalizeStatus(status string) string {
	switch status {
	case "APPROVED":
		return interfaces.ChargeStatusApproved
	case "DECLINED":
		return interfaces.ChargeStatusDeclined
	default:
		return interfaces.ChargeStatusPending
	}
}

type fakeResolver struct {
	gateways map[string]interfaces.IPaymentGateway
}

var _ interfaces.IPaymentGatewayResolver = (*fakeResolver)(nil)

func resolverFor(key string, gw interfaces.IPaymentGateway) *fakeResolver {
	return &fakeResolver{gateways: map[string]interfaces.IPaymentGateway{key: gw}}
}

func (r *fakeResolver) ForProvider(key string) (interfaces.IPaymentGateway, bool) {
	gw, ok := r.gateways[key]
	return gw, ok
}

type fakeSink struct {
	mu     sync.Mutex
	events []interfaces.PaymentNotification
	err    error
}

var _ interfaces.INotificationSink = (*fakeSink)(nil)

func (s *fakeSink) Publish(_ context.Context, n interfaces.PaymentNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, n)
	return nil
}

func (s *fakeSink) byType(eventType string) []interfaces.PaymentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interfaces.PaymentNotification
	for _, n := range s.events {
		if n.EventType == eventType {
			out = append(out, n)
		}
	}
	return out
}

// fakeLifecycle records the settlement calls the webhook reconciler makes.
type fakeLifecycle struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]string

	completeErr error
	failErr     error
}

var _ IPaymentUseCase = (*fakeLifecycle)(nil)

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{failed: map[string]string{}}
}

func (f *fakeLifecycle) Create(context.Context, string, string, string) (entities.Payment, error) {
	return entities.Payment{}, errors.New("not implemented")
}

func (f *fakeLifecycle) GetByID(context.Context, string) (entities.Payment, error) {
	return entities.Payment{}, errors.New("not implemented")
}

func (f *fakeLifecycle) ListByBookingID(context.Context, string) ([]entities.Payment, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLifecycle) Refund(context.Context, string, string, int64) (entities.Payment, error) {
	return entities.Payment{}, errors.New("not implemented")
}

func (f *fakeLifecycle) CompleteFromProvider(_ context.Context, paymentID, _ string, _ json.RawMessage) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return entities.Payment{}, f.completeErr
	}
	f.completed = append(f.completed, paymentID)
	return entities.Payment{ID: paymentID, Status: entities.PaymentStatusCompleted}, nil
}

func (f *fakeLifecycle) FailFromProvider(_ context.Context, paymentID, reason string) (entities.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return entities.Payment{}, f.failErr
	}
	f.failed[paymentID] = reason
	return entities.Payment{ID: paymentID, Status: entities.PaymentStatusFailed}, nil
}
