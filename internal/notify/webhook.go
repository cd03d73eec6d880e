package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/log"
	"github.com/goccy/go-json"
)

const (
	defaultMaxElapsed = 30 * time.Second
	defaultQueueSize  = 256
)

// Payload is the JSON body posted for each notified entry.
type Payload struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Severity  eventlog.Severity `json:"severity"`
	Message   string            `json:"message"`
}

// Webhook posts connection lost and restored entries to a URL.
type Webhook struct {
	url        string
	client     *http.Client
	logger     *log.Logger
	newBackOff func() backoff.BackOff
	queueSize  int
	dropped    atomic.Int64
}

// NewWebhook creates a notifier for url.
func NewWebhook(url string, logger *log.Logger) *Webhook {
	if logger == nil {
		logger = log.Discard()
	}
	return &Webhook{
		url:       url,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		queueSize: defaultQueueSize,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = defaultMaxElapsed
			return b
		},
	}
}

// ShouldNotify reports whether an entry is worth a webhook call. Only
// confirmed outages and recoveries are sent; warnings are too noisy.
func ShouldNotify(e eventlog.Entry) bool {
	return e.Severity == eventlog.SeverityError || e.Severity == eventlog.SeveritySuccess
}

// Run forwards entries from events until ctx is done. Delivery happens on a
// separate goroutine so a slow endpoint never stalls the subscription;
// entries that do not fit in the queue are dropped and logged.
func (w *Webhook) Run(ctx context.Context, events *eventlog.Log) {
	ch, cancel := events.Subscribe(64)
	defer cancel()

	queue := make(chan eventlog.Entry, w.queueSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.deliver(ctx, queue)
	}()
	defer wg.Wait()
	defer close(queue)

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			if !ShouldNotify(entry) {
				continue
			}
			select {
			case queue <- entry:
			default:
				w.dropped.Add(1)
				w.logger.Warn("webhook queue full, dropping entry", map[string]interface{}{
					"entry_id": entry.ID,
					"message":  entry.Message,
				})
			}
		}
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (w *Webhook) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Webhook) deliver(ctx context.Context, queue <-chan eventlog.Entry) {
	for entry := range queue {
		if ctx.Err() != nil {
			continue
		}
		if err := w.Send(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.LogError("notify", err, map[string]interface{}{"entry_id": entry.ID})
		}
	}
}

// Send posts one entry, retrying transient failures with exponential
// backoff. 4xx responses are not retried.
func (w *Webhook) Send(ctx context.Context, entry eventlog.Entry) error {
	body, err := json.Marshal(Payload{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Severity:  entry.Severity,
		Message:   entry.Message,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}

	return backoff.RetryNotify(
		operation,
		backoff.WithContext(w.newBackOff(), ctx),
		func(err error, d time.Duration) {
			w.logger.Warn("webhook failed, retrying", map[string]interface{}{
				"error":    err.Error(),
				"retry_in": d.String(),
			})
		},
	)
}
