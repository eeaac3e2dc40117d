// Package push wraps the external notification gateway: best-effort
// delivery of (token, title, body, data) messages, no receipts.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Gateway delivers a push notification to a device token. Delivery is
// asynchronous on the provider side and best-effort end to end.
type Gateway interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// LogGateway logs notifications instead of delivering them. It is the
// default when no endpoint is configured.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway creates a gateway that only logs.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, token, title, body string, data map[string]string) error {
	g.logger.Info("push notification",
		slog.String("token", token),
		slog.String("title", title),
		slog.String("body", body),
		slog.Any("data", data))
	return nil
}

// WebhookGateway POSTs notifications as JSON to a configured endpoint.
type WebhookGateway struct {
	endpoint string
	client   *http.Client
}

// NewWebhookGateway creates a gateway delivering to the given URL.
func NewWebhookGateway(endpoint string) *WebhookGateway {
	return &WebhookGateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (g *WebhookGateway) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(webhookMessage{Token: token, Title: title, Body: body, Data: data})
	if err != nil {
		return fmt.Errorf("push: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push: gateway responded %s", resp.Status)
	}
	return nil
}
