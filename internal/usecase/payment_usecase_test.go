package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"servipago/internal/domain/entities"
	"servipago/internal/domain/providers"
	"servipago/internal/usecase/interfaces"
	mock_interfaces "servipago/internal/usecase/interfaces/mocks"

	"go.uber.org/mock/gomock"
)

type paymentRig struct {
	repo     *fakePaymentRepo
	bookings *fakeBookingStore
	invoices *fakeInvoiceRepo
	sink     *fakeSink
	gateway  *fakeGateway
	uc       *PaymentUseCase
}

func newPaymentRig(t *testing.T, bookings ...entities.ServiceRequest) *paymentRig {
	t.Helper()
	registry := testRegistry(t)

	repo := newFakePaymentRepo()
	store := newFakeBookingStore(bookings...)
	invRepo := newFakeInvoiceRepo()
	sink := &fakeSink{}
	gw := approvingGateway()
	resolver := &fakeResolver{gateways: map[string]interfaces.IPaymentGateway{
		providers.ProviderWompi:       gw,
		providers.ProviderMercadoPago: gw,
		providers.ProviderPayU:        gw,
	}}

	uc := NewPaymentUseCase(repo, store, NewInvoiceUseCase(invRepo), registry, resolver, sink)
	return &paymentRig{repo: repo, bookings: store, invoices: invRepo, sink: sink, gateway: gw, uc: uc}
}

func testRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	t.Setenv("PAYMENT_GATEWAY_MOCK", "1")
	registry, err := providers.LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return registry
}

func payableBooking(id string, amount int64) entities.ServiceRequest {
	return entities.ServiceRequest{
		ID:             id,
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		Status:         entities.ServiceRequestStatusAccepted,
		PaymentStatus:  entities.BookingUnpaid,
		Amount:         amount,
		Currency:       entities.DefaultCurrency,
	}
}

func TestPaymentUseCase_Create_Validations(t *testing.T) {
	t.Run("empty booking id", func(t *testing.T) {
		rig := newPaymentRig(t)
		_, err := rig.uc.Create(context.Background(), "  ", "pse", "")
		if !errors.Is(err, ErrInvalidBookingID) {
			t.Fatalf("expected ErrInvalidBookingID, got %v", err)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		rig := newPaymentRig(t)
		_, err := rig.uc.Create(context.Background(), "bk-1", "bitcoin", "")
		if !errors.Is(err, ErrInvalidPaymentMethod) {
			t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
		}
	})

	t.Run("unsupported currency", func(t *testing.T) {
		rig := newPaymentRig(t)
		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "USD")
		if !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("expected ErrInvalidCurrency, got %v", err)
		}
	})

	t.Run("cop accepted case-insensitively", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		if _, err := rig.uc.Create(context.Background(), "bk-1", "pse", "cop"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestPaymentUseCase_Create_BookingChecks(t *testing.T) {
	t.Run("store error propagates", func(t *testing.T) {
		rig := newPaymentRig(t)
		rig.bookings.getErr = errors.New("store down")
		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err == nil || err.Error() != "store down" {
			t.Fatalf("expected store down, got %v", err)
		}
	})

	t.Run("booking not found", func(t *testing.T) {
		rig := newPaymentRig(t)
		_, err := rig.uc.Create(context.Background(), "bk-missing", "pse", "")
		if !errors.Is(err, ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		b := payableBooking("bk-1", 50_000)
		b.PaymentStatus = entities.BookingPaid
		rig := newPaymentRig(t, b)
		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrBookingAlreadyPaid) {
			t.Fatalf("expected ErrBookingAlreadyPaid, got %v", err)
		}
	})

	t.Run("refunded booking stays closed", func(t *testing.T) {
		b := payableBooking("bk-1", 50_000)
		b.PaymentStatus = entities.BookingRefunded
		rig := newPaymentRig(t, b)
		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrBookingAlreadyPaid) {
			t.Fatalf("expected ErrBookingAlreadyPaid, got %v", err)
		}
	})

	t.Run("not payable status", func(t *testing.T) {
		for _, status := range []entities.ServiceRequestStatus{
			entities.ServiceRequestStatusPending,
			entities.ServiceRequestStatusCancelled,
		} {
			b := payableBooking("bk-1", 50_000)
			b.Status = status
			rig := newPaymentRig(t, b)
			_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
			if !errors.Is(err, ErrBookingNotPayable) {
				t.Fatalf("status %s: expected ErrBookingNotPayable, got %v", status, err)
			}
		}
	})
}

func TestPaymentUseCase_Create_ApprovedFlow(t *testing.T) {
	rig := newPaymentRig(t, payableBooking("bk-1", 50_000))

	var charged interfaces.ChargeRequest
	rig.gateway.chargeFn = func(_ context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
		charged = req
		return interfaces.ChargeResult{ProviderTxID: "wompi-tx-9", Status: interfaces.ChargeStatusApproved}, nil
	}

	p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "COP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != entities.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}
	if p.Provider != providers.ProviderWompi {
		t.Fatalf("expected wompi for pse, got %s", p.Provider)
	}
	if p.Amount != 50_000 || p.PlatformFee != 5_000 || p.TaxAmount != 9_500 {
		t.Fatalf("unexpected amounts: %+v", p)
	}
	if p.ProviderFee != 1_650 {
		t.Fatalf("expected wompi pse fee 1650, got %d", p.ProviderFee)
	}
	if p.Total != p.Amount+p.TaxAmount {
		t.Fatalf("total invariant broken: %+v", p)
	}
	if p.Payout != p.Amount-p.PlatformFee {
		t.Fatalf("payout invariant broken: %+v", p)
	}
	if p.Total != 59_500 || p.Payout != 45_000 {
		t.Fatalf("unexpected totals: total=%d payout=%d", p.Total, p.Payout)
	}
	if charged.Amount != p.Total {
		t.Fatalf("gateway must charge the full total, got %d", charged.Amount)
	}
	if p.ProviderTxID != "wompi-tx-9" || p.CompletedAt.IsZero() {
		t.Fatalf("provider tx not recorded: %+v", p)
	}

	if got := rig.bookings.get("bk-1").PaymentStatus; got != entities.BookingPaid {
		t.Fatalf("booking should be paid, got %s", got)
	}
	inv := rig.invoices.get(p.ID)
	if inv.PaymentID == "" || inv.Status != entities.InvoiceStatusPaid {
		t.Fatalf("invoice not issued+paid: %+v", inv)
	}
	if inv.Subtotal != 50_000 || inv.IVAAmount != 9_500 || inv.Total != 59_500 {
		t.Fatalf("invoice amounts wrong: %+v", inv)
	}

	events := rig.sink.byType(interfaces.EventPaymentCompleted)
	if len(events) != 1 || events[0].InvoiceNumber != inv.Number || events[0].Amount != p.Total {
		t.Fatalf("unexpected completed events: %+v", events)
	}
	if _, held := rig.repo.claimHolder("bk-1"); !held {
		t.Fatalf("claim must survive completion")
	}
}

func TestPaymentUseCase_Create_ClaimContention(t *testing.T) {
	t.Run("claim already held", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		if ok, _ := rig.repo.ClaimBooking(context.Background(), "bk-1", "other-payment"); !ok {
			t.Fatalf("seed claim failed")
		}
		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrPaymentInFlight) {
			t.Fatalf("expected ErrPaymentInFlight, got %v", err)
		}
	})

	t.Run("concurrent creates settle exactly one payment", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))

		const attempts = 8
		errs := make(chan error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		successes := 0
		for err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrPaymentInFlight), errors.Is(err, ErrBookingAlreadyPaid):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if successes != 1 {
			t.Fatalf("expected exactly one success, got %d", successes)
		}

		completed := 0
		for _, p := range rig.repo.payments {
			if p.Status == entities.PaymentStatusCompleted {
				completed++
			}
		}
		if completed != 1 {
			t.Fatalf("expected exactly one completed payment, got %d", completed)
		}
	})
}

func TestPaymentUseCase_Create_GatewayOutcomes(t *testing.T) {
	t.Run("timeout fails with gateway_timeout and frees the claim", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		rig.gateway.chargeFn = func(context.Context, interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			return interfaces.ChargeResult{}, context.DeadlineExceeded
		}

		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrGatewayTimeout) {
			t.Fatalf("expected ErrGatewayTimeout, got %v", err)
		}

		stored := singlePayment(t, rig.repo)
		if stored.Status != entities.PaymentStatusFailed || stored.FailureReason != "gateway_timeout" {
			t.Fatalf("unexpected stored payment: %+v", stored)
		}
		if _, held := rig.repo.claimHolder("bk-1"); held {
			t.Fatalf("claim must be released on failure")
		}
		if got := rig.bookings.get("bk-1").PaymentStatus; got != entities.BookingUnpaid {
			t.Fatalf("booking must stay unpaid, got %s", got)
		}
		if events := rig.sink.byType(interfaces.EventPaymentFailed); len(events) != 1 {
			t.Fatalf("expected one failed event, got %d", len(events))
		}
	})

	t.Run("transport error fails with gateway_unavailable", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		rig.gateway.chargeFn = func(context.Context, interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			return interfaces.ChargeResult{}, errors.New("connection reset")
		}

		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if stored := singlePayment(t, rig.repo); stored.FailureReason != "gateway_unavailable" {
			t.Fatalf("unexpected failure reason: %q", stored.FailureReason)
		}
	})

	t.Run("decline frees the claim for a retry", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		declined := true
		rig.gateway.chargeFn = func(_ context.Context, req interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			if declined {
				declined = false
				return interfaces.ChargeResult{ProviderTxID: "tx-declined", Status: interfaces.ChargeStatusDeclined}, nil
			}
			return interfaces.ChargeResult{ProviderTxID: "tx-ok", Status: interfaces.ChargeStatusApproved}, nil
		}

		_, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if !errors.Is(err, ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got %v", err)
		}

		retry, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("retry after decline should work: %v", err)
		}
		if retry.Status != entities.PaymentStatusCompleted {
			t.Fatalf("expected completed retry, got %s", retry.Status)
		}
	})

	t.Run("pending stays processing with provider tx attached", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		rig.gateway.chargeFn = func(context.Context, interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			return interfaces.ChargeResult{ProviderTxID: "tx-async", Status: interfaces.ChargeStatusPending}, nil
		}

		p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Status != entities.PaymentStatusProcessing || p.ProviderTxID != "tx-async" {
			t.Fatalf("unexpected payment: %+v", p)
		}
		if _, held := rig.repo.claimHolder("bk-1"); !held {
			t.Fatalf("claim must stay held while the charge is in flight")
		}
		if inv := rig.invoices.get(p.ID); inv.PaymentID != "" {
			t.Fatalf("no invoice before completion")
		}
	})
}

func TestPaymentUseCase_Create_RepositoryFailures(t *testing.T) {
	t.Run("create error releases the claim", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		registry := testRegistry(t)
		repo := mock_interfaces.NewMockIPaymentRepository(ctrl)
		store := newFakeBookingStore(payableBooking("bk-1", 50_000))
		uc := NewPaymentUseCase(repo, store, nil, registry, resolverFor(providers.ProviderWompi, approvingGateway()), nil)

		repo.EXPECT().ClaimBooking(gomock.Any(), "bk-1", gomock.Any()).Return(true, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(entities.Payment{}, errors.New("db write failed"))
		repo.EXPECT().ReleaseBooking(gomock.Any(), "bk-1", gomock.Any()).Return(nil)

		_, err := uc.Create(context.Background(), "bk-1", "pse", "")
		if err == nil || err.Error() != "db write failed" {
			t.Fatalf("expected db write failed, got %v", err)
		}
	})

	t.Run("mark processing error keeps the claim for the sweeper", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		registry := testRegistry(t)
		repo := mock_interfaces.NewMockIPaymentRepository(ctrl)
		store := newFakeBookingStore(payableBooking("bk-1", 50_000))
		uc := NewPaymentUseCase(repo, store, nil, registry, resolverFor(providers.ProviderWompi, approvingGateway()), nil)

		repo.EXPECT().ClaimBooking(gomock.Any(), "bk-1", gomock.Any()).Return(true, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p entities.Payment) (entities.Payment, error) { return p, nil })
		repo.EXPECT().MarkProcessing(gomock.Any(), gomock.Any()).Return(entities.Payment{}, errors.New("db update failed"))

		_, err := uc.Create(context.Background(), "bk-1", "pse", "")
		if err == nil || err.Error() != "db update failed" {
			t.Fatalf("expected db update failed, got %v", err)
		}
	})
}

func TestPaymentUseCase_Refund(t *testing.T) {
	completedPayment := func(t *testing.T, rig *paymentRig) entities.Payment {
		t.Helper()
		p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return p
	}

	t.Run("full refund flips invoice and booking", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		refunded, err := rig.uc.Refund(context.Background(), p.ID, "client request", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if refunded.Refund.Status != entities.RefundStatusCompleted || refunded.Refund.Amount != p.Total {
			t.Fatalf("unexpected refund: %+v", refunded.Refund)
		}
		if refunded.Refund.ProviderRefundID == "" || refunded.Refund.CompletedAt.IsZero() {
			t.Fatalf("provider refund not recorded: %+v", refunded.Refund)
		}
		if got := rig.invoices.get(p.ID).Status; got != entities.InvoiceStatusRefunded {
			t.Fatalf("invoice should be refunded, got %s", got)
		}
		if got := rig.bookings.get("bk-1").PaymentStatus; got != entities.BookingRefunded {
			t.Fatalf("booking should be refunded, got %s", got)
		}
		events := rig.sink.byType(interfaces.EventPaymentRefunded)
		if len(events) != 1 || events[0].Amount != p.Total {
			t.Fatalf("unexpected refund events: %+v", events)
		}
	})

	t.Run("partial refund keeps invoice and booking settled", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		refunded, err := rig.uc.Refund(context.Background(), p.ID, "damaged item", 10_000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if refunded.Refund.Amount != 10_000 || refunded.FullyRefunded() {
			t.Fatalf("unexpected refund: %+v", refunded.Refund)
		}
		if got := rig.invoices.get(p.ID).Status; got != entities.InvoiceStatusPaid {
			t.Fatalf("invoice should stay paid, got %s", got)
		}
		if got := rig.bookings.get("bk-1").PaymentStatus; got != entities.BookingPaid {
			t.Fatalf("booking should stay paid, got %s", got)
		}
	})

	t.Run("validations", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		if _, err := rig.uc.Refund(context.Background(), " ", "r", 0); !errors.Is(err, ErrInvalidPaymentID) {
			t.Fatalf("expected ErrInvalidPaymentID, got %v", err)
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "  ", 0); !errors.Is(err, ErrInvalidRefundReason) {
			t.Fatalf("expected ErrInvalidRefundReason, got %v", err)
		}
		if _, err := rig.uc.Refund(context.Background(), "missing", "r", 0); !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "r", -1); !errors.Is(err, ErrInvalidRefundAmount) {
			t.Fatalf("expected ErrInvalidRefundAmount, got %v", err)
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "r", p.Total+1); !errors.Is(err, ErrInvalidRefundAmount) {
			t.Fatalf("expected ErrInvalidRefundAmount for excess, got %v", err)
		}
	})

	t.Run("non-completed payment not refundable", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		rig.gateway.chargeFn = func(context.Context, interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			return interfaces.ChargeResult{ProviderTxID: "tx-async", Status: interfaces.ChargeStatusPending}, nil
		}
		p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if _, err := rig.uc.Refund(context.Background(), p.ID, "r", 0); !errors.Is(err, ErrPaymentNotRefundable) {
			t.Fatalf("expected ErrPaymentNotRefundable, got %v", err)
		}
	})

	t.Run("second refund rejected", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		if _, err := rig.uc.Refund(context.Background(), p.ID, "first", 0); err != nil {
			t.Fatalf("first refund: %v", err)
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "second", 0); !errors.Is(err, ErrRefundAlreadyCompleted) {
			t.Fatalf("expected ErrRefundAlreadyCompleted, got %v", err)
		}
	})

	t.Run("gateway failure marks refund failed and allows retry", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		rig.gateway.refundFn = func(context.Context, string, int64) (interfaces.RefundResult, error) {
			return interfaces.RefundResult{}, errors.New("provider 500")
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "r", 0); !errors.Is(err, ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if got := rig.repo.get(p.ID).Refund.Status; got != entities.RefundStatusFailed {
			t.Fatalf("expected failed refund, got %s", got)
		}

		rig.gateway.refundFn = nil
		retry, err := rig.uc.Refund(context.Background(), p.ID, "r", 0)
		if err != nil {
			t.Fatalf("retry after failed refund: %v", err)
		}
		if retry.Refund.Status != entities.RefundStatusCompleted {
			t.Fatalf("expected completed retry, got %s", retry.Refund.Status)
		}
	})

	t.Run("declined refund", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := completedPayment(t, rig)

		rig.gateway.refundFn = func(context.Context, string, int64) (interfaces.RefundResult, error) {
			return interfaces.RefundResult{ProviderRefundID: "rf-1", Status: interfaces.ChargeStatusDeclined}, nil
		}
		if _, err := rig.uc.Refund(context.Background(), p.ID, "r", 0); !errors.Is(err, ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got %v", err)
		}
		if got := rig.repo.get(p.ID).Refund.Status; got != entities.RefundStatusFailed {
			t.Fatalf("expected failed refund, got %s", got)
		}
	})
}

func TestPaymentUseCase_SettlementIdempotency(t *testing.T) {
	pendingPayment := func(t *testing.T, rig *paymentRig) entities.Payment {
		t.Helper()
		rig.gateway.chargeFn = func(context.Context, interfaces.ChargeRequest) (interfaces.ChargeResult, error) {
			return interfaces.ChargeResult{ProviderTxID: "tx-async", Status: interfaces.ChargeStatusPending}, nil
		}
		p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return p
	}

	t.Run("duplicate completion settles once", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := pendingPayment(t, rig)

		first, err := rig.uc.CompleteFromProvider(context.Background(), p.ID, "tx-async", nil)
		if err != nil || first.Status != entities.PaymentStatusCompleted {
			t.Fatalf("first completion: %v %+v", err, first)
		}
		second, err := rig.uc.CompleteFromProvider(context.Background(), p.ID, "tx-async", nil)
		if err != nil || second.Status != entities.PaymentStatusCompleted {
			t.Fatalf("second completion: %v %+v", err, second)
		}

		period := first.CompletedAt.UTC().Format("200601")
		if got := rig.invoices.counter(period); got != 1 {
			t.Fatalf("expected one invoice number issued, got %d", got)
		}
		if events := rig.sink.byType(interfaces.EventPaymentCompleted); len(events) != 1 {
			t.Fatalf("expected one completed event, got %d", len(events))
		}
	})

	t.Run("completed then failed webhook keeps completed", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := pendingPayment(t, rig)

		if _, err := rig.uc.CompleteFromProvider(context.Background(), p.ID, "tx-async", nil); err != nil {
			t.Fatalf("completion: %v", err)
		}
		after, err := rig.uc.FailFromProvider(context.Background(), p.ID, "provider_declined")
		if err != nil {
			t.Fatalf("late failure must be a no-op: %v", err)
		}
		if after.Status != entities.PaymentStatusCompleted {
			t.Fatalf("terminal status must stick, got %s", after.Status)
		}
		if stored := rig.repo.get(p.ID); stored.Status != entities.PaymentStatusCompleted || stored.FailureReason != "" {
			t.Fatalf("stored payment mutated: %+v", stored)
		}
	})

	t.Run("failed then completed webhook keeps failed", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p := pendingPayment(t, rig)

		if _, err := rig.uc.FailFromProvider(context.Background(), p.ID, "gateway_timeout"); err != nil {
			t.Fatalf("failure: %v", err)
		}
		after, err := rig.uc.CompleteFromProvider(context.Background(), p.ID, "tx-async", nil)
		if err != nil {
			t.Fatalf("late completion must be a no-op: %v", err)
		}
		if after.Status != entities.PaymentStatusFailed {
			t.Fatalf("terminal status must stick, got %s", after.Status)
		}
		if inv := rig.invoices.get(p.ID); inv.PaymentID != "" {
			t.Fatalf("no invoice for a failed payment")
		}
	})

	t.Run("unknown payment", func(t *testing.T) {
		rig := newPaymentRig(t)
		if _, err := rig.uc.CompleteFromProvider(context.Background(), "missing", "tx", nil); !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
		if _, err := rig.uc.FailFromProvider(context.Background(), "missing", "r"); !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
	})
}

func TestPaymentUseCase_Getters(t *testing.T) {
	t.Run("GetByID", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		p, err := rig.uc.Create(context.Background(), "bk-1", "pse", "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if _, err := rig.uc.GetByID(context.Background(), " "); !errors.Is(err, ErrInvalidPaymentID) {
			t.Fatalf("expected ErrInvalidPaymentID, got %v", err)
		}
		if _, err := rig.uc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got %v", err)
		}
		got, err := rig.uc.GetByID(context.Background(), " "+p.ID+" ")
		if err != nil || got.ID != p.ID {
			t.Fatalf("unexpected result err=%v got=%+v", err, got)
		}
	})

	t.Run("ListByBookingID", func(t *testing.T) {
		rig := newPaymentRig(t, payableBooking("bk-1", 50_000))
		if _, err := rig.uc.Create(context.Background(), "bk-1", "pse", ""); err != nil {
			t.Fatalf("create: %v", err)
		}

		if _, err := rig.uc.ListByBookingID(context.Background(), " "); !errors.Is(err, ErrInvalidBookingID) {
			t.Fatalf("expected ErrInvalidBookingID, got %v", err)
		}
		list, err := rig.uc.ListByBookingID(context.Background(), "bk-1")
		if err != nil || len(list) != 1 {
			t.Fatalf("unexpected list err=%v len=%d", err, len(list))
		}
	})
}

func singlePayment(t *testing.T, repo *fakePaymentRepo) entities.Payment {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.payments) != 1 {
		t.Fatalf("expected exactly one payment, got %d", len(repo.payments))
	}
	for _, p := range repo.payments {
		return p
	}
	return entities.Payment{}
}
