// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	xglog "github.com/Shansgupta/Bajaj-hackathon/internal/log"
	"github.com/Shansgupta/Bajaj-hackathon/internal/metrics"
	"github.com/Shansgupta/Bajaj-hackathon/internal/platform/httpx"
	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
)

const maxResponseBytes = 32 << 20

// Options configures a Client.
type Options struct {
	Timeout         time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	// RequestsPerSecond <= 0 disables client-side throttling.
	RequestsPerSecond float64
	BreakerThreshold  int
	BreakerReset      time.Duration
	HTTPClient        *http.Client
}

// Client executes requests against one upstream with throttling, retries and
// a circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	maxTries uint
	initial  time.Duration
	logger   zerolog.Logger
}

// NewClient builds a Client for the named upstream.
func NewClient(name string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(name, opts.Timeout)
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	c := &Client{
		name:     name,
		http:     hc,
		breaker:  resilience.NewCircuitBreaker(name, opts.BreakerThreshold, opts.BreakerReset, resilience.WithFailurePredicate(tripsBreaker)),
		maxTries: opts.MaxTries,
		initial:  opts.InitialInterval,
		logger:   xglog.WithComponent("upstream." + name),
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string { return c.name }

// Breaker exposes the circuit breaker for readiness checks.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do runs the request with retries and returns the 2xx response body.
func (c *Client) Do(ctx context.Context, op string, build RequestFunc) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Upstream: c.name, Sentinel: ErrTimeout, Operation: op, Err: err}
		}
	}

	start := time.Now()
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initial
	eb.Multiplier = 2
	eb.MaxInterval = 8 * c.initial

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		var out []byte
		err := c.breaker.Execute(func() error {
			var err error
			out, err = c.once(ctx, op, build)
			return err
		})
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, resilience.ErrCircuitOpen):
			return nil, backoff.Permanent(&Error{Upstream: c.name, Sentinel: ErrCircuitOpen, Operation: op})
		case !Retryable(err):
			return nil, backoff.Permanent(err)
		}
		metrics.RecordUpstream(c.name, op, "retry", 0)
		c.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "upstream.retry").
			Str(xglog.FieldOperation, op).
			Int("attempt", attempt).
			Msg("upstream call failed, retrying")
		return nil, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(c.maxTries))

	outcome := "success"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordUpstream(c.name, op, outcome, time.Since(start).Seconds())
	return body, err
}

func (c *Client) once(ctx context.Context, op string, build RequestFunc) ([]byte, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: %s: build request: %w", c.name, op, err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %s: %w", c.name, op, ctx.Err())
		}
		return nil, &Error{Upstream: c.name, Sentinel: classifyTransport(err), Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Upstream: c.name, Sentinel: ErrUpstreamUnavailable, Operation: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Upstream:  c.name,
			Sentinel:  SentinelForStatus(resp.StatusCode),
			Operation: op,
			Status:    resp.StatusCode,
			Body:      truncate(string(body)),
		}
	}
	return body, nil
}

// DecodeJSON unmarshals body into v, wrapping failures as ErrBadResponse.
func (c *Client) DecodeJSON(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Upstream: c.name, Sentinel: ErrBadResponse, Operation: op, Body: truncate(string(body)), Err: err}
	}
	return nil
}

// NotConfigured returns the error used when a credential is missing.
func NotConfigured(name, op string) error {
	return &Error{Upstream: name, Sentinel: ErrNotConfigured, Operation: op}
}
