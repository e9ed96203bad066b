package httpcall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

// WebhookSink delivers user_input_flow results over HTTP.
type WebhookSink struct {
	caller  ports.Caller
	timeout time.Duration
}

// NewWebhookSink creates a sink that posts through the given caller.
func NewWebhookSink(caller ports.Caller) *WebhookSink {
	return &WebhookSink{caller: caller, timeout: 15 * time.Second}
}

// webhookBody is the JSON envelope posted to the configured URL.
type webhookBody struct {
	Answers  map[string]string `json:"answers"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Deliver posts the accumulated answers to the configured webhook.
func (w *WebhookSink) Deliver(ctx context.Context, cfg domain.WebhookConfig, answers map[string]string, metadata map[string]string) error {
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	payload, err := json.Marshal(webhookBody{Answers: answers, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	_, err = w.caller.Do(ctx, ports.CallRequest{
		Method:   method,
		URL:      cfg.URL,
		Headers:  cfg.Headers,
		Body:     string(payload),
		BodyKind: domain.BodyJSON,
		Timeout:  w.timeout,
	})
	if err != nil {
		return fmt.Errorf("webhook delivery to %s failed: %w", cfg.URL, err)
	}
	return nil
}
