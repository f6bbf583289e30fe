package gateway

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
)

const testSecret = "whsec_test"

func signedHeader(t *testing.T, payload []byte, at time.Time) string {
	t.Helper()
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature([]byte(testSecret), ts, payload))
}

func TestSignatureVerifier(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	verifier := NewSignatureVerifier(testSecret, 5*time.Minute, clk)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	t.Run("ValidSignature", func(t *testing.T) {
		err := verifier.Verify(payload, signedHeader(t, payload, now))
		assert.NoError(t, err)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		err := verifier.Verify(payload, "")
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
	})

	t.Run("TamperedPayload", func(t *testing.T) {
		header := signedHeader(t, payload, now)
		err := verifier.Verify([]byte(`{"id":"evt_1","type":"payment_intent.canceled"}`), header)
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
		assert.Contains(t, sigErr.Reason, "mismatch")
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewSignatureVerifier("whsec_other", 5*time.Minute, clk)
		err := other.Verify(payload, signedHeader(t, payload, now))
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
	})

	t.Run("StaleTimestamp", func(t *testing.T) {
		err := verifier.Verify(payload, signedHeader(t, payload, now.Add(-6*time.Minute)))
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
		assert.Contains(t, sigErr.Reason, "tolerance")
	})

	t.Run("FutureTimestampOutsideTolerance", func(t *testing.T) {
		err := verifier.Verify(payload, signedHeader(t, payload, now.Add(6*time.Minute)))
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		err := verifier.Verify(payload, "t=abc,v1=deadbeef")
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
	})

	t.Run("IncompleteHeader", func(t *testing.T) {
		err := verifier.Verify(payload, "v1=deadbeef")
		var sigErr *domain.SignatureError
		assert.ErrorAs(t, err, &sigErr)
	})
}

func TestParseEvent(t *testing.T) {
	t.Run("SucceededEvent", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_42",
			"type": "payment_intent.succeeded",
			"created": 1700000000,
			"data": {"object": {"id": "pi_123", "amount": 250000, "currency": "eur", "status": "succeeded"}}
		}`)
		ev, err := ParseEvent(payload)
		assert.NoError(t, err)
		assert.Equal(t, "evt_42", ev.ID)
		assert.Equal(t, EventPaymentSucceeded, ev.Type)
		assert.Equal(t, "pi_123", ev.Data.Object.ID)
	})

	t.Run("FailureReasonFromLastPaymentError", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_43",
			"type": "payment_intent.payment_failed",
			"data": {"object": {"id": "pi_124", "last_payment_error": {"code": "card_declined", "message": "Your card was declined."}}}
		}`)
		ev, err := ParseEvent(payload)
		assert.NoError(t, err)
		assert.Equal(t, "Your card was declined.", ev.Data.Object.FailureReason())
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"id":`))
		assert.Error(t, err)
	})

	t.Run("MissingType", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{"id":"evt_44"}`))
		assert.Error(t, err)
	})
}
