// Package webhook delivers transcription and status events to the
// caller-supplied destination URL. No broker, no dead-letter store: events
// whose retries are exhausted are dropped and only reported through logs and
// metrics.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/internal/observability/metrics"
	"github.com/scribelabs/meetbot/internal/retry"
)

const userAgent = "MeetbotTranscription/1.0"

// Deliverer performs retried, per-bot ordered webhook deliveries. One
// instance is shared by all sessions; ordering is provided by per-bot queues.
type Deliverer struct {
	client *http.Client
	policy retry.Policy
	debug  bool
	logger *zap.Logger
}

// NewDeliverer creates a deliverer. timeout bounds each individual HTTP
// attempt; retryCount is the maximum attempt count per event.
func NewDeliverer(timeout time.Duration, retryCount int, debug bool, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		client: &http.Client{Timeout: timeout},
		policy: retry.DefaultPolicy().WithAttempts(retryCount),
		debug:  debug,
		logger: logger,
	}
}

// ValidateURL checks that a webhook destination is safe to call. HTTPS is
// required outside debug mode, and destinations on loopback or private
// networks are rejected.
func (d *Deliverer) ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed webhook URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("webhook URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if !d.debug && parsed.Scheme != "https" {
		return errors.New("webhook URL must use https")
	}
	if parsed.Hostname() == "" {
		return errors.New("webhook URL missing hostname")
	}

	if d.debug {
		return nil
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" {
		return errors.New("webhook URL points to a blocked host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return errors.New("webhook URL points to a private network")
		}
	}

	return nil
}

// Deliver performs one logical delivery: a bounded series of HTTP attempts
// with exponential backoff. Retryable failures are network errors, timeouts,
// 5xx responses and 429; other 4xx responses fail immediately.
func (d *Deliverer) Deliver(ctx context.Context, destURL string, event entities.WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	start := time.Now()
	err = d.policy.Run(ctx, func() error {
		return d.attempt(ctx, destURL, payload)
	}, retryableDeliveryError)
	metrics.Default.RecordWebhookDelivery(err, time.Since(start).Seconds())

	if err != nil {
		d.logger.Error("Webhook delivery failed, dropping event",
			zap.String("botID", event.BotID),
			zap.String("eventType", event.EventType),
			zap.Error(err))
		return err
	}

	d.logger.Debug("Webhook delivered",
		zap.String("botID", event.BotID),
		zap.String("eventType", event.EventType),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (d *Deliverer) attempt(ctx context.Context, destURL string, payload []byte) error {
	metrics.Default.WebhookAttempts.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destURL, bytes.NewReader(payload))
	if err != nil {
		return &statusError{code: 0, permanent: true, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &statusError{code: resp.StatusCode}
}

// statusError distinguishes HTTP-level failures from transport errors.
type statusError struct {
	code      int
	permanent bool
	cause     error
}

func (e *statusError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("webhook returned HTTP %d", e.code)
}

func (e *statusError) Unwrap() error { return e.cause }

func retryableDeliveryError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		if se.permanent {
			return false
		}
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	// Network errors and timeouts are worth retrying.
	return true
}

// queueCapacity bounds the per-bot event backlog. A destination slow enough
// to fill it loses the newest events, consistent with no local durability.
const queueCapacity = 1024

// Queue delivers events for one bot strictly in generation order: delivery
// of event N+1 does not begin until event N succeeded or exhausted its
// retries.
type Queue struct {
	deliverer *Deliverer
	botID     string
	destURL   string

	events    chan entities.WebhookEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates the ordered delivery queue for one bot session.
func (d *Deliverer) NewQueue(botID, destURL string) *Queue {
	q := &Queue{
		deliverer: d,
		botID:     botID,
		destURL:   destURL,
		events:    make(chan entities.WebhookEvent, queueCapacity),
		done:      make(chan struct{}),
	}
	go q.loop()
	return q
}

// Enqueue appends an event to the queue. Never blocks the session task; if
// the backlog bound is hit the event is dropped and counted. Must not be
// called after Close.
func (q *Queue) Enqueue(event entities.WebhookEvent) {
	select {
	case q.events <- event:
	default:
		metrics.Default.WebhookDropped.Inc()
		q.deliverer.logger.Warn("Webhook queue full, dropping event",
			zap.String("botID", q.botID),
			zap.String("eventType", event.EventType))
	}
}

// Close stops accepting events and blocks until the backlog has drained, so
// terminal status events flush before the session is purged.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.events)
	})
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)

	// Deliveries use a background context: an in-flight attempt is allowed
	// to finish rather than being aborted mid-request on session teardown.
	for event := range q.events {
		_ = q.deliverer.Deliver(context.Background(), q.destURL, event)
	}
}
