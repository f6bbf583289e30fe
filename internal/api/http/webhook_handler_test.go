package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/gateway"
)

type stubReconciler struct {
	err    error
	events []*gateway.Event
}

func (s *stubReconciler) HandleEvent(_ context.Context, event *gateway.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func signedRequest(t *testing.T, secret string, at time.Time, payload []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
	sig := gateway.ComputeSignature([]byte(secret), at.Unix(), payload)
	req.Header.Set(gateway.SignatureHeader, fmt.Sprintf("t=%d,v1=%s", at.Unix(), sig))
	return req
}

func TestWebhookHandler_HandlePaymentEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	secret := "whsec_test"
	verifier := gateway.NewSignatureVerifier(secret, 5*time.Minute, clock.NewFrozen(now))

	payload, err := json.Marshal(map[string]interface{}{
		"id":      "evt_1",
		"type":    gateway.EventPaymentSucceeded,
		"created": now.Unix(),
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "pi_123",
				"amount":   75000,
				"currency": "eur",
				"status":   "succeeded",
			},
		},
	})
	assert.NoError(t, err)

	t.Run("VerifiedEventIsAcknowledged", func(t *testing.T) {
		reconciler := &stubReconciler{}
		handler := NewWebhookHandler(verifier, reconciler)

		rec := httptest.NewRecorder()
		handler.HandlePaymentEvent(rec, signedRequest(t, secret, now, payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "evt_1")
		if assert.Len(t, reconciler.events, 1) {
			assert.Equal(t, "pi_123", reconciler.events[0].Data.Object.ID)
		}
	})

	t.Run("BadSignatureIsRejectedBeforeProcessing", func(t *testing.T) {
		reconciler := &stubReconciler{}
		handler := NewWebhookHandler(verifier, reconciler)

		rec := httptest.NewRecorder()
		handler.HandlePaymentEvent(rec, signedRequest(t, "whsec_wrong", now, payload))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, reconciler.events)
	})

	t.Run("MissingSignatureHeaderIsRejected", func(t *testing.T) {
		reconciler := &stubReconciler{}
		handler := NewWebhookHandler(verifier, reconciler)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.HandlePaymentEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, reconciler.events)
	})

	t.Run("MalformedPayloadIsRejected", func(t *testing.T) {
		reconciler := &stubReconciler{}
		handler := NewWebhookHandler(verifier, reconciler)

		garbage := []byte("{not json")
		rec := httptest.NewRecorder()
		handler.HandlePaymentEvent(rec, signedRequest(t, secret, now, garbage))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, reconciler.events)
	})

	t.Run("ProcessingFailureAsksForRedelivery", func(t *testing.T) {
		reconciler := &stubReconciler{err: errors.New("db down")}
		handler := NewWebhookHandler(verifier, reconciler)

		rec := httptest.NewRecorder()
		handler.HandlePaymentEvent(rec, signedRequest(t, secret, now, payload))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}
