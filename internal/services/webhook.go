package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"go.uber.org/zap"
)

const (
	AUDIT_COLOR_INFO    = 0x5865F2
	AUDIT_COLOR_SUCCESS = 0x57F287
	AUDIT_COLOR_WARNING = 0xFEE75C
)

type AuditField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type AuditEvent struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []AuditField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string        `json:"username,omitempty"`
	Embeds   []*AuditEvent `json:"embeds"`
}

// AuditWebhook posts events to a Discord channel webhook.
type AuditWebhook struct {
	url    string
	client *httpclient.Client
}

func NewAuditWebhook(url string) *AuditWebhook {
	backoff := heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(5*time.Second),
		httpclient.WithRetryCount(2),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &AuditWebhook{url, client}
}

func (w *AuditWebhook) Send(ctx context.Context, event *AuditEvent) error {
	if w == nil || w.url == "" {
		return nil
	}

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(&webhookPayload{Username: "HamsterHub", Embeds: []*AuditEvent{event}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook responded %d", res.StatusCode)
	}

	return nil
}

// Announce sends in the background; failures are only logged.
func (w *AuditWebhook) Announce(ctx context.Context, event *AuditEvent) {
	if w == nil || w.url == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()

		if err := w.Send(ctx, event); err != nil {
			zap.S().Warnw("audit webhook", "title", event.Title, "err", err)
		}
	}()
}
