package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"servipago/internal/adapter/http/handlers/mocks"
	"servipago/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

type failingReadCloser struct{}

func (failingReadCloser) Read(_ []byte) (int, error) { return 0, errors.New("read error") }
func (failingReadCloser) Close() error               { return nil }

func TestWebhookHandler_ReceiveProviderWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(t *testing.T) (*mocks.MockIWebhookUseCase, *gin.Engine) {
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)
		uc := mocks.NewMockIWebhookUseCase(ctrl)
		h := NewWebhookHandler(uc)
		r := gin.New()
		r.POST("/v1/webhooks/:provider", h.ReceiveProviderWebhook)
		return uc, r
	}

	t.Run("forwards raw body and headers", func(t *testing.T) {
		uc, r := newRouter(t)

		raw := `{"transactionId":"tx-1","status":"APPROVED","metadata":{"paymentId":"pay-1"}}`
		uc.EXPECT().Process(gomock.Any(), "wompi", gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, provider string, header http.Header, body []byte) error {
				if string(body) != raw {
					t.Errorf("body altered before processing: %s", body)
				}
				if header.Get("X-Event-Signature") != "sig-1" {
					t.Errorf("signature header not forwarded")
				}
				return nil
			})

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/wompi", bytes.NewBufferString(raw))
		req.Header.Set("X-Event-Signature", "sig-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "ok" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("bad signature and unknown provider answer identically", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().Process(gomock.Any(), "wompi", gomock.Any(), gomock.Any()).Return(usecase.ErrWebhookSignatureInvalid)
		uc.EXPECT().Process(gomock.Any(), "stripe", gomock.Any(), gomock.Any()).Return(usecase.ErrUnknownWebhookProvider)

		first := httptest.NewRecorder()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v1/webhooks/wompi", bytes.NewBufferString("{}")))
		second := httptest.NewRecorder()
		r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewBufferString("{}")))

		if first.Code != http.StatusUnauthorized || second.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401/401, got %d/%d", first.Code, second.Code)
		}
		if first.Body.String() != second.Body.String() {
			t.Fatalf("responses differ: %s vs %s", first.Body.String(), second.Body.String())
		}
	})

	t.Run("settlement error asks for a retry", func(t *testing.T) {
		uc, r := newRouter(t)

		uc.EXPECT().Process(gomock.Any(), "wompi", gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/wompi", bytes.NewBufferString("{}"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})

	t.Run("unreadable body", func(t *testing.T) {
		_, r := newRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/wompi", nil)
		req.Body = failingReadCloser{}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestMapWebhookError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{usecase.ErrUnknownWebhookProvider, http.StatusUnauthorized},
		{usecase.ErrWebhookSignatureInvalid, http.StatusUnauthorized},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		got := mapWebhookError(tc.err)
		if got.HTTPStatus != tc.code {
			t.Fatalf("for err %v expected %d got %d", tc.err, tc.code, got.HTTPStatus)
		}
	}
}
