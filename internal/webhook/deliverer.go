// Package webhook performs HTTP delivery of lifecycle events to
// registered subscription endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"product-importer/internal/domain"

	"go.uber.org/zap"
)

// AttemptResult captures one HTTP delivery attempt.
type AttemptResult struct {
	StatusCode int
	Latency    time.Duration
	Err        error
}

// Succeeded reports whether the attempt got a 2xx response.
func (r AttemptResult) Succeeded() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Deliverer posts event envelopes to subscription URLs with bounded
// retry. The retry sequence is an explicit loop (attempt, wait, attempt,
// wait, attempt, terminal failure) so it is testable with a fake clock.
type Deliverer struct {
	client      *http.Client
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeliverer creates a Deliverer. timeout bounds each individual HTTP
// attempt so a hung endpoint cannot occupy a worker indefinitely.
func NewDeliverer(timeout time.Duration, maxAttempts int, backoffBase time.Duration, logger *zap.Logger) *Deliverer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Deliverer{
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleep:       sleepCtx,
	}
}

// Deliver attempts delivery up to maxAttempts times with exponential
// backoff between attempts (base, 2x base, 4x base, ...). Exhaustion is
// terminal: the failure is logged and the event discarded; there is no
// dead-letter queue. Returns the last attempt's result.
func (d *Deliverer) Deliver(ctx context.Context, url string, event domain.Event) AttemptResult {
	var result AttemptResult

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result = d.Attempt(ctx, url, event)
		if result.Succeeded() {
			d.logger.Info("Webhook delivered",
				zap.String("url", url),
				zap.String("event_type", string(event.EventType)),
				zap.Int("attempt", attempt),
			)
			return result
		}

		if attempt == d.maxAttempts {
			break
		}

		delay := d.backoffBase << (attempt - 1)
		d.logger.Warn("Webhook delivery failed, retrying",
			zap.String("url", url),
			zap.String("event_type", string(event.EventType)),
			zap.Int("attempt", attempt),
			zap.Int("status", result.StatusCode),
			zap.Duration("retry_in", delay),
			zap.Error(result.Err),
		)
		if err := d.sleep(ctx, delay); err != nil {
			result.Err = err
			return result
		}
	}

	d.logger.Error("Webhook delivery permanently failed",
		zap.String("url", url),
		zap.String("event_type", string(event.EventType)),
		zap.Int("attempts", d.maxAttempts),
		zap.Int("status", result.StatusCode),
		zap.Error(result.Err),
	)
	return result
}

// Attempt performs exactly one synchronous POST of the event envelope.
// This is also the on-demand test path, bypassing the retry/queue logic.
func (d *Deliverer) Attempt(ctx context.Context, url string, event domain.Event) AttemptResult {
	payload, err := json.Marshal(event)
	if err != nil {
		return AttemptResult{Err: fmt.Errorf("failed to marshal event: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return AttemptResult{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return AttemptResult{Latency: latency, Err: fmt.Errorf("delivery request failed: %w", err)}
	}
	defer resp.Body.Close()

	return AttemptResult{StatusCode: resp.StatusCode, Latency: latency}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
