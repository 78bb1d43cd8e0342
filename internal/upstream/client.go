// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
)

const (
	// maxBodySize caps how much of a response is read into memory.
	maxBodySize = 16 << 20

	// maxErrorBodySize caps the body quoted in error messages.
	maxErrorBodySize = 64 * 1024
)

// ErrRateLimited is returned when a provider still answers 429 after every
// retry.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config configures a Client.
type Config struct {
	// Name labels metrics, logs and the circuit breaker.
	Name string

	// Timeout bounds each HTTP attempt. Defaults to 30s.
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests. Zero disables it.
	RequestsPerSecond float64

	// Burst is the token bucket size. Defaults to 1.
	Burst int

	// MaxRetries is the number of 429 retries. Defaults to 5; negative
	// disables retries.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay, doubled on each retry.
	// Defaults to 1s.
	RetryBaseDelay time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ErrorBody returns the body truncated for inclusion in an error.
func (r *Response) ErrorBody() string {
	if len(r.Body) > maxErrorBodySize {
		return string(r.Body[:maxErrorBodySize]) + "\n... (truncated)"
	}
	return string(r.Body)
}

// RequestFunc builds one attempt of a request. It is called again for every
// retry, so bodies must be recreated.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Client performs rate-limited, breaker-protected requests for one provider.
type Client struct {
	name           string
	http           *http.Client
	limiter        *rate.Limiter
	cb             *gobreaker.CircuitBreaker[*Response]
	maxRetries     int
	retryBaseDelay time.Duration
}

// New creates a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = 5
	case maxRetries < 0:
		maxRetries = 0
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &Client{
		name:           cfg.Name,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		cb:             newBreaker(cfg.Name),
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Do sends the request built by build. endpoint labels metrics. A non-nil
// Response is returned for every HTTP answer, including 4xx and 5xx.
func (c *Client) Do(ctx context.Context, endpoint string, build RequestFunc) (*Response, error) {
	resp, err := c.cb.Execute(func() (*Response, error) {
		resp, err := c.doWithRetry(ctx, endpoint, build)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{resp: resp}
		}
		return resp, nil
	})

	var se *serverError
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
		return resp, nil
	case errors.As(err, &se):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return se.resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		logging.Warn().Str("provider", c.name).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, fmt.Errorf("%s %s: %w", c.name, endpoint, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}
}

// doWithRetry performs the request, retrying HTTP 429 with exponential
// backoff. The context is used for cancellation during backoff waits.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, build RequestFunc) (*Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limiter: %w", c.name, err)
		}

		resp, err := c.once(ctx, endpoint, build)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("%s %s: %w after %d retries (HTTP 429)", c.name, endpoint, ErrRateLimited, c.maxRetries)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		metrics.RecordUpstreamRetry(c.name)
		logging.Debug().Str("provider", c.name).Str("endpoint", endpoint).Dur("delay", delay).Msg("Rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) once(ctx context.Context, endpoint string, build RequestFunc) (*Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(c.name, endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s request failed: %w", c.name, endpoint, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	metrics.RecordUpstreamRequest(c.name, endpoint, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", c.name, endpoint, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// serverError carries a 5xx response through the breaker so it is counted
// as a failure but still handed back to the caller.
type serverError struct {
	resp *Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.resp.StatusCode)
}
