package webhook

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher delivers signed payloads to every configured endpoint in
// parallel, sharing context cancellation so one slow consumer cannot pin the
// rest past the timeout.
type Dispatcher struct {
	endpoints []string
	signer    *Signer
	client    *http.Client
	logger    *slog.Logger
}

func NewDispatcher(endpoints []string, signer *Signer, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		signer:    signer,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Deliver posts the payload to all endpoints. The first failure cancels the
// remaining deliveries and is returned to the caller; successful endpoints
// are unaffected.
func (d *Dispatcher) Deliver(ctx context.Context, payload Payload) error {
	if len(d.endpoints) == 0 {
		return nil
	}

	body, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	signature, err := d.signer.Sign(payload)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, endpoint := range d.endpoints {
		g.Go(func() error {
			return d.post(ctx, endpoint, body, signature)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Veriflow-Signature", signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint %s returned %d", endpoint, resp.StatusCode)
	}
	if d.logger != nil {
		d.logger.DebugContext(ctx, "webhook delivered",
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
	}
	return nil
}
