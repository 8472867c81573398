package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	"github.com/planmoni/planmoni-backend/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Svc    *services.WebhookService
	Secret string
	Log    *zap.Logger
}

func NewWebhookHandler(svc *services.WebhookService, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Svc: svc, Secret: secret, Log: log}
}

// Paystack verifies the signature over the raw body before anything is decoded.
func (h *WebhookHandler) Paystack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unreadable body", nil)
		return
	}
	if len(body) > maxWebhookBody {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "body too large", nil)
		return
	}
	if !paystack.Verify(body, r.Header.Get(paystack.SignatureHeader), h.Secret) {
		h.Log.Warn("webhook signature rejected", zap.String("remote", r.RemoteAddr))
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature", nil)
		return
	}

	var wh paystack.Webhook
	if err := json.Unmarshal(body, &wh); err != nil || wh.Event == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed webhook payload", nil)
		return
	}

	outcome, err := h.Svc.Handle(r.Context(), wh)
	if err != nil {
		serviceError(w, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
