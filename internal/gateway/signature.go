package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
)

// SignatureHeader is the HTTP header carrying the webhook signature, in the
// form "t=<unix>,v1=<hex hmac-sha256 of '<unix>.<body>'>".
const SignatureHeader = "X-Webhook-Signature"

// SignatureVerifier checks webhook signatures and fails closed: any payload
// that cannot be verified is rejected before it reaches the reconciler.
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
	clock     clock.Clock
}

func NewSignatureVerifier(secret string, tolerance time.Duration, clk clock.Clock) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		clock:     clk,
	}
}

// Verify returns a domain.SignatureError unless the header carries a valid,
// fresh signature over payload.
func (v *SignatureVerifier) Verify(payload []byte, header string) error {
	if header == "" {
		return &domain.SignatureError{Reason: "missing signature header"}
	}

	var (
		timestamp int64
		signature string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return &domain.SignatureError{Reason: "malformed timestamp"}
			}
			timestamp = ts
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == 0 || signature == "" {
		return &domain.SignatureError{Reason: "incomplete signature header"}
	}

	age := v.clock.Now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return &domain.SignatureError{Reason: "timestamp outside tolerance"}
	}

	expected := ComputeSignature(v.secret, timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &domain.SignatureError{Reason: "signature mismatch"}
	}
	return nil
}

// ComputeSignature produces the v1 signature for a timestamp and payload.
// Exported so tests and the provider simulator can sign payloads.
func ComputeSignature(secret []byte, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
