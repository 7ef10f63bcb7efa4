// Package client delivers formatted messages to a WeCom group-bot webhook.
// One Send call runs the whole attempt sequence: classified errors gate the
// exponential-backoff retry loop, and all attempts collapse into a single
// delivery outcome.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/flownode/pkg/logger"
	"github.com/kart-io/flownode/pkg/observability"
	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
	"github.com/kart-io/flownode/pkg/wecom/message"
)

// apiHost is the only host a webhook URL may target.
const apiHost = "qyapi.weixin.qq.com"

// webhookSendPath marks a webhook send-style endpoint.
const webhookSendPath = "/webhook/send"

// Config tunes the delivery client.
type Config struct {
	// Timeout bounds one delivery attempt; it is not extended on retry.
	Timeout time.Duration
	// MaxRetries bounds retries after the first attempt. The per-code retry
	// policy can lower the effective budget for severe errors.
	MaxRetries int
	// Retry tunes the backoff between attempts. A zero BaseDelay defers to
	// the classified error's per-code policy.
	Retry wecomerrors.RetryConfig
}

// DefaultConfig returns the delivery configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		Retry: wecomerrors.RetryConfig{
			Multiplier: 2.0,
			MaxDelay:   10 * time.Second,
			Jitter:     true,
		},
	}
}

// Metrics counts delivery client activity.
type Metrics struct {
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Retries   int64 `json:"retries"`
}

// Outcome is the collapsed result of one delivery attempt sequence.
type Outcome struct {
	Success      bool         `json:"success"`
	MessageID    string       `json:"message_id,omitempty"`
	ErrorCode    int          `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	Kind         message.Kind `json:"message_type"`
}

// Client posts messages to a single webhook URL.
type Client struct {
	http       *http.Client
	webhookURL string
	cfg        Config
	logger     *logger.BufferedLogger
	stats      *wecomerrors.Statistics
	telemetry  *observability.TelemetryProvider
	metrics    Metrics
	closed     int32

	// skipURLCheck lets package tests target an httptest server.
	skipURLCheck bool
}

// New creates a delivery client for one webhook URL. The statistics object is
// owned by the caller and shared across the run; a nil logger buffers nothing.
func New(webhookURL string, cfg Config, log *logger.BufferedLogger, stats *wecomerrors.Statistics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logger.NewBuffered("delivery", logger.Options{Level: logger.Silent})
	}
	if stats == nil {
		stats = wecomerrors.NewStatistics()
	}
	return &Client{
		http:       newHTTPClient(cfg.Timeout),
		webhookURL: webhookURL,
		cfg:        cfg,
		logger:     log,
		stats:      stats,
	}
}

// WithTelemetry attaches a telemetry provider that counts retry attempts.
func (c *Client) WithTelemetry(tp *observability.TelemetryProvider) *Client {
	c.telemetry = tp
	return c
}

// newHTTPClient builds the underlying HTTP client with pooled connections and
// per-phase timeouts.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// ValidateWebhookURL checks that raw is an HTTPS webhook send endpoint on the
// WeCom API host. Failures are classified as invalid-URL errors, which are
// never retried and never reach the network.
func ValidateWebhookURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return wecomerrors.Wrap(err, wecomerrors.CodeInvalidURL, "webhook URL does not parse")
	}
	if parsed.Scheme != "https" {
		return wecomerrors.Newf(wecomerrors.CodeInvalidURL, "webhook URL must use https, got %q", parsed.Scheme)
	}
	if parsed.Host != apiHost {
		return wecomerrors.Newf(wecomerrors.CodeInvalidURL, "webhook URL must target %s, got %q", apiHost, parsed.Host)
	}
	if !strings.Contains(parsed.Path, webhookSendPath) {
		return wecomerrors.Newf(wecomerrors.CodeInvalidURL, "webhook URL path must reference a webhook send endpoint")
	}
	return nil
}

// Send delivers one message. It validates the webhook URL before any network
// call, then attempts delivery up to 1+MaxRetries times, sleeping between
// attempts per the classified error's retry policy. The returned outcome
// collapses all attempts; err carries the classified terminal error.
func (c *Client) Send(ctx context.Context, msg *message.Message) (*Outcome, error) {
	kind := msg.Kind()
	if atomic.LoadInt32(&c.closed) == 1 {
		botErr := wecomerrors.New(wecomerrors.CodeNetworkFailure, "delivery client is closed")
		return c.failure(kind, botErr), botErr
	}

	if !c.skipURLCheck {
		if err := ValidateWebhookURL(c.webhookURL); err != nil {
			botErr := wecomerrors.FromError(err)
			c.stats.RecordError(botErr)
			c.logger.Error("webhook URL rejected", "url", logger.MaskURL(c.webhookURL), "error", botErr.Error())
			return c.failure(kind, botErr), botErr
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		botErr := wecomerrors.Wrap(err, 47001, "failed to encode message as JSON")
		c.stats.RecordError(botErr)
		return c.failure(kind, botErr), botErr
	}

	start := time.Now()
	var lastErr *wecomerrors.BotError
	attempts := 0
	for attempt := 0; ; attempt++ {
		attempts = attempt + 1
		atomic.AddInt64(&c.metrics.Requests, 1)

		botErr := c.attempt(ctx, payload)
		if botErr == nil {
			atomic.AddInt64(&c.metrics.Successes, 1)
			c.stats.RecordSuccess()
			c.logger.Performance("webhook delivery", time.Since(start), map[string]any{
				"attempts": attempts,
				"msgtype":  string(kind),
			})
			return &Outcome{
				Success:   true,
				MessageID: uuid.NewString(),
				Timestamp: time.Now().UnixMilli(),
				Kind:      kind,
			}, nil
		}
		lastErr = botErr

		if !botErr.Retryable || attempt >= c.retryBudget(botErr.Code) {
			break
		}

		delay := wecomerrors.RetryDelay(attempt+1, c.retryConfig(botErr.Code))
		atomic.AddInt64(&c.metrics.Retries, 1)
		c.stats.RecordRetry()
		if c.telemetry != nil {
			c.telemetry.RecordDeliveryRetry(ctx, botErr.Code)
		}
		c.logger.RetryAttempt(attempt+1, delay, botErr)
		if err := sleepContext(ctx, delay); err != nil {
			lastErr = wecomerrors.FromError(err)
			break
		}
	}

	atomic.AddInt64(&c.metrics.Failures, 1)
	c.stats.RecordError(lastErr)
	c.logger.Performance("webhook delivery failed", time.Since(start), map[string]any{
		"attempts": attempts,
		"msgtype":  string(kind),
		"code":     lastErr.Code,
	})
	return c.failure(kind, lastErr), lastErr
}

// retryBudget caps retries at the smaller of the configured maximum and the
// classified error's policy.
func (c *Client) retryBudget(code int) int {
	budget := c.cfg.MaxRetries
	if policy := wecomerrors.PolicyFor(code); policy.MaxRetries < budget {
		budget = policy.MaxRetries
	}
	return budget
}

// retryConfig resolves the backoff configuration for a classified error,
// deferring the base delay to the per-code policy when not set explicitly.
func (c *Client) retryConfig(code int) wecomerrors.RetryConfig {
	cfg := c.cfg.Retry
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = wecomerrors.PolicyFor(code).BaseDelay
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	return cfg
}

// attempt performs one HTTP POST and interprets the response envelope.
func (c *Client) attempt(ctx context.Context, payload []byte) *wecomerrors.BotError {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return wecomerrors.FromError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.logger.HTTPRequest(http.MethodPost, c.webhookURL, len(payload))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return wecomerrors.FromError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wecomerrors.Wrap(err, wecomerrors.CodeNetworkFailure, "failed to read response body")
	}
	c.logger.HTTPResponse(resp.StatusCode, time.Since(start), len(body))

	// The envelope requires a numeric errcode and a string errmsg; anything
	// else is a malformed response regardless of HTTP status.
	var envelope struct {
		ErrCode *int    `json:"errcode"`
		ErrMsg  *string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ErrCode == nil || envelope.ErrMsg == nil {
		return wecomerrors.New(wecomerrors.CodeMalformedResponse,
			wecomerrors.Message(wecomerrors.CodeMalformedResponse, "")).WithDetails(snippet(body))
	}
	if *envelope.ErrCode != 0 {
		return wecomerrors.Classify(*envelope.ErrCode, *envelope.ErrMsg)
	}
	return nil
}

func (c *Client) failure(kind message.Kind, botErr *wecomerrors.BotError) *Outcome {
	return &Outcome{
		Success:      false,
		ErrorCode:    botErr.Code,
		ErrorMessage: botErr.Message,
		Timestamp:    time.Now().UnixMilli(),
		Kind:         kind,
	}
}

// TestConnection sends a fixed harmless text message through the regular
// delivery path, swallowing any error into false.
func (c *Client) TestConnection(ctx context.Context) bool {
	msg := &message.Message{
		MsgType: string(message.KindText),
		Text:    &message.TextContent{Content: "flownode connection test"},
	}
	outcome, err := c.Send(ctx, msg)
	return err == nil && outcome.Success
}

// Metrics returns a copy of the client counters.
func (c *Client) Metrics() Metrics {
	return Metrics{
		Requests:  atomic.LoadInt64(&c.metrics.Requests),
		Successes: atomic.LoadInt64(&c.metrics.Successes),
		Failures:  atomic.LoadInt64(&c.metrics.Failures),
		Retries:   atomic.LoadInt64(&c.metrics.Retries),
	}
}

// Close releases idle connections. Subsequent sends fail without a network call.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.http.CloseIdleConnections()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// snippet bounds a response body for inclusion in error details.
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
