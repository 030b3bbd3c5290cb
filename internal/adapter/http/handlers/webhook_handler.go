package handlers

import (
	"errors"
	"log"
	"net/http"
	"servipago/internal/usecase"
	"servipago/pkg"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives provider callbacks. It hands the raw body and
// headers to the use case untouched so signature verification sees exactly
// the bytes the provider signed.

type WebhookHandler struct {
	usecase usecase.IWebhookUseCase
}

func NewWebhookHandler(uc usecase.IWebhookUseCase) *WebhookHandler {
	return &WebhookHandler{usecase: uc}
}

// ReceiveProviderWebhook processes one provider event. The response is 200
// or 401 and carries nothing a caller could use to probe payment state.
func (h *WebhookHandler) ReceiveProviderWebhook(c *gin.Context) {
	provider := c.Param("provider")

	raw, err := c.GetRawData()
	if err != nil {
		log.Printf("[webhook][handler] body read failed provider=%s err=%v", provider, err)
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	if err := h.usecase.Process(c.Request.Context(), provider, c.Request.Header, raw); err != nil {
		appErr := mapWebhookError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func mapWebhookError(err error) *pkg.AppError {
	switch {
	// Unknown provider and bad signature answer identically.
	case errors.Is(err, usecase.ErrUnknownWebhookProvider), errors.Is(err, usecase.ErrWebhookSignatureInvalid):
		return pkg.NewDomainErrorSimple("UNAUTHORIZED", "Invalid signature", http.StatusUnauthorized)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
