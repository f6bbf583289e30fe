package gateway

import (
	"encoding/json"
	"fmt"
)

// Provider event types the reconciler understands. Anything else is ignored.
const (
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventPaymentFailed         = "payment_intent.payment_failed"
	EventPaymentCanceled       = "payment_intent.canceled"
	EventPaymentRequiresAction = "payment_intent.requires_action"
)

// Event is one asynchronous webhook delivery from the payment provider.
// Deliveries are at-least-once and may arrive out of order; the reconciler
// owns the dedup/ordering discipline, not this package.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

// PaymentIntent is the provider-side object embedded in an event. Amount is
// in minor units (cents) as the provider reports it.
type PaymentIntent struct {
	ID               string       `json:"id"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Status           string       `json:"status"`
	LastPaymentError *IntentError `json:"last_payment_error,omitempty"`
}

type IntentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FailureReason returns a human-readable reason for a failed intent.
func (p *PaymentIntent) FailureReason() string {
	if p.LastPaymentError == nil {
		return "payment failed"
	}
	if p.LastPaymentError.Message != "" {
		return p.LastPaymentError.Message
	}
	return p.LastPaymentError.Code
}

// ParseEvent decodes a raw webhook payload. Called only after the signature
// has been verified.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("webhook payload has no event type")
	}
	return &ev, nil
}
