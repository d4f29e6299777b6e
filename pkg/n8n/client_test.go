package n8n

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/retry"
)

// fastRetry keeps test retries in the millisecond range.
func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:   2,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestClient_Deliver(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"workflow":"started"}`))
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	contentID := uuid.New()
	scheduled := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	workflowID := "wf-42"
	result, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "shared-secret",
		WorkflowID:    &workflowID,
		Event: &models.TriggerEvent{
			EventType:     "content_ready",
			ContentID:     &contentID,
			ScheduledTime: &scheduled,
			Platforms:     []string{"twitter", "linkedin"},
			Metadata:      map[string]any{"campaign": "spring"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"workflow":"started"}`, result.Body)
	assert.Equal(t, 1, result.Attempts)

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	// Signature must be the hex HMAC-SHA256 of the exact body bytes.
	mac := hmac.New(sha256.New, []byte("shared-secret"))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotHeaders.Get(SignatureHeader))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "content_ready", payload["event_type"])
	assert.Equal(t, contentID.String(), payload["content_id"])
	assert.Equal(t, "2026-03-14T09:30:00Z", payload["scheduled_time"])
	assert.Equal(t, "wf-42", payload["workflow_id"])
	assert.Equal(t, []any{"twitter", "linkedin"}, payload["platforms"])
}

func TestClient_Deliver_OmitsOptionalFields(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	_, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "shared-secret",
		Event:         &models.TriggerEvent{EventType: "schedule_time"},
	})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.NotContains(t, payload, "content_id")
	assert.NotContains(t, payload, "scheduled_time")
	assert.NotContains(t, payload, "platforms")
	assert.NotContains(t, payload, "workflow_id")
}

func TestClient_Deliver_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	result, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "shared-secret",
		Event:         &models.TriggerEvent{EventType: "content_ready"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestClient_Deliver_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad signature"))
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	result, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "wrong-secret",
		Event:         &models.TriggerEvent{EventType: "content_ready"},
	})
	require.Error(t, err)

	assert.Equal(t, 1, attempts, "4xx responses must not be retried")
	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.Contains(t, err.Error(), "status 403")
}

func TestClient_Deliver_RetriesTooManyRequests(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	result, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "shared-secret",
		Event:         &models.TriggerEvent{EventType: "content_ready"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts, "429 is transient and should be retried")
}

func TestClient_Deliver_ExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	result, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    server.URL,
		WebhookSecret: "shared-secret",
		Event:         &models.TriggerEvent{EventType: "content_ready"},
	})
	require.Error(t, err)

	// fastRetry allows 1 initial attempt + 2 retries.
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, http.StatusBadGateway, result.StatusCode)
}

func TestClient_Deliver_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(0, fastRetry(), zap.NewNop())

	_, err := client.Deliver(context.Background(), &Delivery{
		WebhookURL:    url,
		WebhookSecret: "shared-secret",
		Event:         &models.TriggerEvent{EventType: "content_ready"},
	})
	require.Error(t, err)
}

func TestSign(t *testing.T) {
	body := []byte(`{"event_type":"content_ready"}`)

	sig := Sign(body, "shared-secret")
	assert.Len(t, sig, 64, "signature should be a hex-encoded SHA-256 digest")
	assert.Equal(t, sig, Sign(body, "shared-secret"), "signing is deterministic")
	assert.NotEqual(t, sig, Sign(body, "other-secret"))
	assert.NotEqual(t, sig, Sign([]byte(`{}`), "shared-secret"))
}

func TestStatusErrorRetryability(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		err := &statusError{status: tt.status}
		assert.Equal(t, tt.retryable, err.IsRetryable(), "status %d", tt.status)
	}
}
