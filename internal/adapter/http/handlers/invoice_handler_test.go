package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"servipago/internal/adapter/http/handlers/mocks"
	"servipago/internal/domain/entities"
	"servipago/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func paidInvoice(number, paymentID string) entities.Invoice {
	now := time.Now().UTC()
	return entities.Invoice{
		ID:             "inv-1",
		Number:         number,
		PaymentID:      paymentID,
		BookingID:      "bk-1",
		ClientID:       "client-1",
		ProfessionalID: "pro-1",
		Subtotal:       100_000,
		Taxable:        100_000,
		IVAAmount:      19_000,
		PlatformFee:    10_000,
		Total:          119_000,
		IVARate:        "0.19",
		RetentionRate:  "0",
		Currency:       "COP",
		Status:         entities.InvoiceStatusPaid,
		IssuedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestInvoiceHandler_GetInvoiceByPaymentID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(t *testing.T) (*mocks.MockIInvoiceUseCase, *gin.Engine) {
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		h := NewInvoiceHandler(uc)
		r := gin.New()
		r.GET("/v1/payments/:payment_id/invoice", h.GetInvoiceByPaymentID)
		return uc, r
	}

	t.Run("actor headers reach the use case", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().GetForPayment(gomock.Any(), gomock.Any(), "pay-1").DoAndReturn(
			func(_ context.Context, actor usecase.Actor, paymentID string) (entities.Invoice, error) {
				if actor.ID != "client-1" || actor.Role != "client" {
					t.Errorf("unexpected actor: %+v", actor)
				}
				return paidInvoice("2026080001", paymentID), nil
			})

		req := httptest.NewRequest(http.MethodGet, "/v1/payments/pay-1/invoice", nil)
		req.Header.Set("X-Actor-ID", "client-1")
		req.Header.Set("X-Actor-Role", " Client ")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["number"] != "2026080001" || body["total"] != float64(119_000) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("denied", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().GetForPayment(gomock.Any(), gomock.Any(), "pay-1").Return(entities.Invoice{}, usecase.ErrInvoiceAccessDenied)

		req := httptest.NewRequest(http.MethodGet, "/v1/payments/pay-1/invoice", nil)
		req.Header.Set("X-Actor-ID", "client-2")
		req.Header.Set("X-Actor-Role", "client")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().GetForPayment(gomock.Any(), gomock.Any(), "missing").Return(entities.Invoice{}, usecase.ErrInvoiceNotFound)

		req := httptest.NewRequest(http.MethodGet, "/v1/payments/missing/invoice", nil)
		req.Header.Set("X-Actor-Role", "admin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestInvoiceHandler_GetInvoiceByNumber(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		h := NewInvoiceHandler(uc)

		r := gin.New()
		r.GET("/v1/invoices/:number", h.GetInvoiceByNumber)

		uc.EXPECT().GetByNumber(gomock.Any(), usecase.Actor{ID: "admin-1", Role: "admin"}, "2026080001").Return(paidInvoice("2026080001", "pay-1"), nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/invoices/2026080001", nil)
		req.Header.Set("X-Actor-ID", "admin-1")
		req.Header.Set("X-Actor-Role", "admin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["payment_id"] != "pay-1" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("anonymous denied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		h := NewInvoiceHandler(uc)

		r := gin.New()
		r.GET("/v1/invoices/:number", h.GetInvoiceByNumber)

		uc.EXPECT().GetByNumber(gomock.Any(), usecase.Actor{}, "2026080001").Return(entities.Invoice{}, usecase.ErrInvoiceAccessDenied)

		req := httptest.NewRequest(http.MethodGet, "/v1/invoices/2026080001", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})
}

func TestInvoiceHandler_CancelInvoice(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(t *testing.T) (*mocks.MockIInvoiceUseCase, *gin.Engine) {
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		h := NewInvoiceHandler(uc)
		r := gin.New()
		r.PATCH("/v1/payments/:payment_id/invoice/cancel", h.CancelInvoice)
		return uc, r
	}

	t.Run("non-admin denied", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().Cancel(gomock.Any(), usecase.Actor{ID: "client-1", Role: "client"}, "pay-1").Return(entities.Invoice{}, usecase.ErrInvoiceAccessDenied)

		req := httptest.NewRequest(http.MethodPatch, "/v1/payments/pay-1/invoice/cancel", nil)
		req.Header.Set("X-Actor-ID", "client-1")
		req.Header.Set("X-Actor-Role", "client")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("already settled", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().Cancel(gomock.Any(), gomock.Any(), "pay-1").Return(entities.Invoice{}, usecase.ErrInvoiceNotCancellable)

		req := httptest.NewRequest(http.MethodPatch, "/v1/payments/pay-1/invoice/cancel", nil)
		req.Header.Set("X-Actor-Role", "admin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		uc, r := newRouter(t)

		cancelled := paidInvoice("2026080001", "pay-1")
		cancelled.Status = entities.InvoiceStatusCancelled
		uc.EXPECT().Cancel(gomock.Any(), usecase.Actor{ID: "admin-1", Role: "admin"}, "pay-1").Return(cancelled, nil)

		req := httptest.NewRequest(http.MethodPatch, "/v1/payments/pay-1/invoice/cancel", nil)
		req.Header.Set("X-Actor-ID", "admin-1")
		req.Header.Set("X-Actor-Role", "admin")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "cancelled" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestMapInvoiceError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{usecase.ErrInvalidPaymentID, http.StatusBadRequest},
		{usecase.ErrInvalidInvoiceNumber, http.StatusBadRequest},
		{usecase.ErrInvoiceAccessDenied, http.StatusForbidden},
		{usecase.ErrInvoiceNotFound, http.StatusNotFound},
		{usecase.ErrInvoiceNotCancellable, http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		got := mapInvoiceError(tc.err)
		if got.HTTPStatus != tc.code {
			t.Fatalf("for err %v expected %d got %d", tc.err, tc.code, got.HTTPStatus)
		}
	}
}
