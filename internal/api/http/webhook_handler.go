package http

import (
	"io"
	"net/http"

	"franchise-ledger-backend/internal/gateway"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/service"
)

// Provider payloads are small; anything bigger than this is not a webhook.
const maxWebhookBody = 1 << 20

// WebhookHandler receives asynchronous payment events from the provider. The
// signature is checked against the raw body before anything is parsed;
// processing failures return 500 so the provider redelivers.
type WebhookHandler struct {
	verifier   *gateway.SignatureVerifier
	reconciler service.ReconcilerService
}

func NewWebhookHandler(verifier *gateway.SignatureVerifier, reconciler service.ReconcilerService) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler}
}

func (h *WebhookHandler) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}
	defer r.Body.Close()

	if err := h.verifier.Verify(payload, r.Header.Get(gateway.SignatureHeader)); err != nil {
		logger.WarnContext(r.Context(), "webhook signature rejected", "error", err)
		writeError(w, r, err)
		return
	}

	event, err := gateway.ParseEvent(payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed event payload"})
		return
	}

	if err := h.reconciler.HandleEvent(r.Context(), event); err != nil {
		// 500 asks the provider to redeliver; reconciliation is idempotent
		// so the retry is safe.
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"received": event.ID})
}
