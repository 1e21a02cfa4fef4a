package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/docuflow/docuflow/internal/engine"
)

// LogDispatcher accepts every event and writes it to the log. Useful as a
// default and in development setups without outbound channels.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher { return &LogDispatcher{} }

func (d *LogDispatcher) Dispatch(ctx context.Context, event engine.DispatchEvent) error {
	slog.InfoContext(ctx, "Dispatching event", "channel", event.Channel, "execution_id", event.ExecutionID, "step_id", event.StepID)
	return nil
}

// WebhookDispatcher posts events to configured channel URLs. A 2xx response
// means the dispatch was accepted; downstream delivery and retries belong to
// the receiving system.
type WebhookDispatcher struct {
	client   *http.Client
	channels map[string]string // channel name -> URL
}

func NewWebhookDispatcher(channels map[string]string) *WebhookDispatcher {
	return &WebhookDispatcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		channels: channels,
	}
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, event engine.DispatchEvent) error {
	url, ok := d.channels[event.Channel]
	if !ok {
		return fmt.Errorf("channel %q is not configured", event.Channel)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("channel %q returned status %d", event.Channel, resp.StatusCode)
	}
	slog.InfoContext(ctx, "Webhook dispatch accepted", "channel", event.Channel, "execution_id", event.ExecutionID)
	return nil
}
