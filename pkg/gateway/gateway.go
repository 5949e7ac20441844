// Package gateway provides the HTTP client for the remote business data API.
//
// Every call is a single JSON request against a fixed base URL, authenticated
// with a static API key header. Transient failures are retried a bounded
// number of times with exponential backoff; the retry loop never spans more
// than one call. Failures are always reported as *UpstreamError values.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.explorium.ai/v1"

const (
	defaultTimeout        = 30 * time.Second
	defaultEventsTimeout  = 120 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = 300 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second

	apiKeyHeader = "api_key"
)

// Config configures the gateway client.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	EventsTimeout  time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client issues requests against the remote API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	timeout        time.Duration
	eventsTimeout  time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	cfg = applyDefaults(cfg)

	if cfg.APIKey == "" {
		return nil, errors.New("gateway: api key is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url %q: %w", cfg.BaseURL, err)
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		http:           cfg.HTTPClient,
		timeout:        cfg.Timeout,
		eventsTimeout:  cfg.EventsTimeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.EventsTimeout == 0 {
		cfg.EventsTimeout = defaultEventsTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return cfg
}

// call describes one logical upstream request.
type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	timeout   time.Duration
}

// do executes c with retries and decodes the JSON response into out.
// The raw response body is returned as well so callers can hand it through
// unchanged.
func (c *Client) do(ctx context.Context, req call, out any) (json.RawMessage, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.operation).Observe(time.Since(start).Seconds())
	}()

	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			requestsTotal.WithLabelValues(req.operation, "error").Inc()
			return nil, &UpstreamError{Operation: req.operation, Err: fmt.Errorf("encoding request: %w", err), permanent: true}
		}
	}

	if req.timeout == 0 {
		req.timeout = c.timeout
	}

	var raw json.RawMessage
	operation := func() error {
		body, err := c.attempt(ctx, req, payload)
		if err != nil {
			if IsRetryable(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = body
		return nil
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(req.operation).Inc()
		slog.Warn("retrying upstream request",
			"operation", req.operation, "error", err, "backoff", wait)
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		requestsTotal.WithLabelValues(req.operation, "error").Inc()
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return nil, ue
		}
		return nil, &UpstreamError{Operation: req.operation, Err: err}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			requestsTotal.WithLabelValues(req.operation, "error").Inc()
			return nil, &UpstreamError{Operation: req.operation, Err: fmt.Errorf("decoding response: %w", err), permanent: true}
		}
	}

	requestsTotal.WithLabelValues(req.operation, "ok").Inc()
	return raw, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.MaxInterval = c.maxBackoff
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx) //nolint:gosec // maxRetries is clamped non-negative
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, req call, payload []byte) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	target := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, target, body)
	if err != nil {
		return nil, &UpstreamError{Operation: req.operation, Err: fmt.Errorf("building request: %w", err), permanent: true}
	}
	httpReq.Header.Set("accept", "application/json")
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	slog.Debug("sending upstream request",
		"operation", req.operation, "method", req.method, "path", req.path)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Operation: req.operation, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: req.operation, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(bytes.TrimSpace(data)),
		}
	}

	return json.RawMessage(data), nil
}
