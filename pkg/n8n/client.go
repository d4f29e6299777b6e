// Package n8n provides a client for delivering trigger payloads to n8n
// workflow webhooks.
package n8n

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/models"
	"github.com/socialflow-inc/socialflow-engine/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for n8n webhook responses.
const DefaultTimeout = 30 * time.Second

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body,
// keyed by the webhook config's shared secret. n8n workflows verify it
// before acting on the payload.
const SignatureHeader = "X-SocialFlow-Signature"

// Delivery describes a single outbound trigger delivery.
type Delivery struct {
	WebhookURL    string
	WebhookSecret string
	WorkflowID    *string
	Event         *models.TriggerEvent
}

// DeliveryResult reports the outcome of a webhook delivery.
type DeliveryResult struct {
	StatusCode int
	Body       string
	Attempts   int
}

// statusError wraps a non-2xx response so retry logic can distinguish
// transient engine failures from permanent rejections.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("n8n returned status %d: %s", e.status, e.body)
}

// IsRetryable reports whether the response status is worth retrying.
// Only server-side failures and throttling are transient.
func (e *statusError) IsRetryable() bool {
	return e.status >= 500 || e.status == http.StatusTooManyRequests
}

// Client delivers signed trigger payloads to n8n webhook endpoints.
type Client struct {
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewClient creates a new n8n delivery client.
// Pass a zero timeout to use DefaultTimeout.
func NewClient(timeout time.Duration, retryCfg *retry.Config, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retryCfg,
		logger:   logger.Named("n8n"),
	}
}

// Deliver posts the trigger event to the webhook URL with an HMAC signature.
// Transient failures are retried with exponential backoff; the returned
// result reflects the final attempt.
func (c *Client) Deliver(ctx context.Context, d *Delivery) (*DeliveryResult, error) {
	payload := map[string]any{
		"event_type": d.Event.EventType,
		"metadata":   d.Event.Metadata,
	}
	if d.Event.ContentID != nil {
		payload["content_id"] = d.Event.ContentID.String()
	}
	if d.Event.ScheduledTime != nil {
		payload["scheduled_time"] = d.Event.ScheduledTime.UTC().Format(time.RFC3339)
	}
	if len(d.Event.Platforms) > 0 {
		payload["platforms"] = d.Event.Platforms
	}
	if d.WorkflowID != nil {
		payload["workflow_id"] = *d.WorkflowID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	signature := Sign(body, d.WebhookSecret)

	c.logger.Info("Delivering trigger to n8n",
		zap.String("url", d.WebhookURL),
		zap.String("event_type", d.Event.EventType))

	result := &DeliveryResult{}
	err = retry.Do(ctx, c.retryCfg, func() error {
		result.Attempts++
		return c.post(ctx, d.WebhookURL, body, signature, result)
	})
	if err != nil {
		c.logger.Error("Trigger delivery failed",
			zap.String("url", d.WebhookURL),
			zap.Int("attempts", result.Attempts),
			zap.Error(err))
		return result, err
	}

	c.logger.Debug("Trigger delivered",
		zap.Int("status", result.StatusCode),
		zap.Int("attempts", result.Attempts))

	return result, nil
}

// post executes one delivery attempt and records the response in result.
func (c *Client) post(ctx context.Context, webhookURL string, body []byte, signature string, result *DeliveryResult) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call n8n: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	result.StatusCode = resp.StatusCode
	result.Body = string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{status: resp.StatusCode, body: string(respBody)}
	}

	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
