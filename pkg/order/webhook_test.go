package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookDispatcherSubmits(t *testing.T) {
	type delivery struct {
		body      []byte
		signature string
		key       string
	}
	deliveries := make(chan delivery, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		deliveries <- delivery{body: body, signature: r.Header.Get(SignatureHeader), key: r.Header.Get("Idempotency-Key")}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	manager := newTestManager(t)
	dispatcher := NewWebhookDispatcher(server.Client(), server.URL, "s3cret")
	submitter := NewSubmitter(manager, WithDispatcher(dispatcher))

	order, err := submitter.Submit(context.Background(), alice, settledState(), ethAddress)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, order.Status)

	got := <-deliveries
	var received Order
	require.NoError(t, json.Unmarshal(got.body, &received))
	assert.Equal(t, order.ID, received.ID)
	assert.Equal(t, order.ID, got.key)
	assert.Equal(t, StatusPending, received.Status)
	assert.Equal(t, "0.29412", received.CryptoAmount)
	assert.Equal(t, signPayload("s3cret", got.body), got.signature)
}

func TestWebhookDispatcherRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
		http.Error(w, "desk closed", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	manager := newTestManager(t)
	submitter := NewSubmitter(manager, WithDispatcher(NewWebhookDispatcher(server.Client(), server.URL, "")))

	order, err := submitter.Submit(context.Background(), alice, settledState(), ethAddress)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "desk closed")

	stored, err := manager.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestSignPayload(t *testing.T) {
	// RFC 4231 test case 2
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		signPayload("Jefe", []byte("what do ya want for nothing?")))
}
