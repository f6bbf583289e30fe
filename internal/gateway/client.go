package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/logger"
)

// TransientError marks a gateway failure worth retrying: timeouts, connection
// errors, provider 5xx. It is never recorded as a permanent transaction
// failure.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient gateway error: %v", e.Err)
	}
	return fmt.Sprintf("transient gateway error: status %d", e.StatusCode)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Intent is the provider-side payment intent created for a transaction.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Client talks to the payment provider's REST API.
type Client struct {
	baseURL    string
	secretKey  string
	maxRetries int
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateIntent registers a payment intent for the transaction. Transient
// failures are retried with exponential backoff; after the retry budget the
// last TransientError surfaces so the caller (or its work queue) can retry
// later without marking the transaction failed.
func (c *Client) CreateIntent(ctx context.Context, tx *domain.Transaction) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", minorUnits(tx.Amount))
	form.Set("currency", strings.ToLower(tx.Currency))
	form.Set("metadata[reference]", tx.Reference)
	form.Set("description", tx.Description)
	body := form.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			logger.Debug("Retrying intent creation", "reference", tx.Reference, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		intent, err := c.createIntentOnce(ctx, body)
		if err == nil {
			return intent, nil
		}
		var te *TransientError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) createIntentOnce(ctx context.Context, body string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransientError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway rejected intent: status %d, body %s", resp.StatusCode, data)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}
	return &intent, nil
}

// minorUnits converts a decimal amount to the provider's integer minor units.
func minorUnits(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).String()
}
