package order

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body
const SignatureHeader = "X-Webhook-Signature"

// HTTPDoer is satisfied by *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookDispatcher posts stored orders to a settlement endpoint
type WebhookDispatcher struct {
	client HTTPDoer
	url    string
	secret string
}

// NewWebhookDispatcher creates a dispatcher posting to url. A non-empty
// secret signs every body.
func NewWebhookDispatcher(client HTTPDoer, url, secret string) *WebhookDispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookDispatcher{client: client, url: url, secret: secret}
}

// Dispatch posts order as JSON. Any non-2xx answer is a failure.
func (w *WebhookDispatcher) Dispatch(ctx context.Context, order *Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "failed to encode order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.ID)
	if w.secret != "" {
		req.Header.Set(SignatureHeader, signPayload(w.secret, payload))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
