// SPDX-License-Identifier: MIT

// Package upstream is the shared HTTP plumbing for the external APIs claimd
// talks to (OpenAI, Upstash, Pinecone, SerpAPI): error classification,
// retries, circuit breaking and metrics.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Shansgupta/Bajaj-hackathon/internal/resilience"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotConfigured       = errors.New("upstream: credentials not configured")
	ErrUnauthorized        = errors.New("upstream: unauthorized")
	ErrNotFound            = errors.New("upstream: resource not found")
	ErrBadRequest          = errors.New("upstream: request rejected")
	ErrRateLimited         = errors.New("upstream: rate limited")
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("upstream: internal error (5xx)")
	ErrBadResponse         = errors.New("upstream: invalid response format or malformed data")
	ErrTimeout             = errors.New("upstream: request timed out")
	ErrCircuitOpen         = resilience.ErrCircuitOpen
)

const maxErrorBody = 512

// Error is a rich error that wraps a sentinel with request context.
type Error struct {
	Upstream  string
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // lower-level cause (net.Error, json error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Upstream, e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// SentinelForStatus maps a non-2xx HTTP status to a sentinel.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrUpstreamError
	default:
		return ErrBadRequest
	}
}

// classifyTransport maps an http.Client error to a sentinel.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUpstreamUnavailable
}

// Retryable reports whether a retry may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamError) ||
		errors.Is(err, ErrTimeout)
}

// tripsBreaker reports whether err indicates an unhealthy upstream.
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamError) ||
		errors.Is(err, ErrTimeout)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
