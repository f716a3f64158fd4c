// Package retry provides an http.RoundTripper that backs off on rate-limit responses.
package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the total number of attempts, including the first.
	DefaultMaxAttempts = 3
	// maxDrain bounds how much of a discarded response body is read before closing.
	maxDrain = 64 << 10
)

var errBodyNotReplayable = errors.New("retry: request body cannot be replayed (GetBody is nil)")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Transport retries requests answered with RateLimitStatus, sleeping
// 2^(attempt-1) seconds between attempts. Every other response, and the last
// rate-limited one once attempts are exhausted or the body cannot be sent
// again, is returned to the caller as-is.
type Transport struct {
	base            http.RoundTripper
	maxAttempts     int
	rateLimitStatus int
	baseDelay       time.Duration
	sleep           SleepFunc
	onRetry         func(req *http.Request, attempt int, wait time.Duration)
}

type Option func(*Transport)

// WithMaxAttempts sets the total attempt budget (values below 1 are ignored).
func WithMaxAttempts(n int) Option {
	return func(t *Transport) {
		if n >= 1 {
			t.maxAttempts = n
		}
	}
}

// WithSleep replaces the wait function; tests use it to observe backoff without waiting.
func WithSleep(fn SleepFunc) Option {
	return func(t *Transport) {
		t.sleep = fn
	}
}

// WithBaseDelay changes the first backoff interval (default one second).
func WithBaseDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.baseDelay = d
	}
}

// WithRateLimitStatus changes the status treated as rate limiting (default 429).
func WithRateLimitStatus(status int) Option {
	return func(t *Transport) {
		t.rateLimitStatus = status
	}
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(req *http.Request, attempt int, wait time.Duration)) Option {
	return func(t *Transport) {
		t.onRetry = fn
	}
}

// New wraps base (http.DefaultTransport when nil).
func New(base http.RoundTripper, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:            base,
		maxAttempts:     DefaultMaxAttempts,
		rateLimitStatus: http.StatusTooManyRequests,
		baseDelay:       time.Second,
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sched := t.schedule()
	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != t.rateLimitStatus {
			return resp, nil
		}

		wait := sched.NextBackOff()
		if wait == backoff.Stop {
			return resp, nil
		}
		next, err := rewind(req)
		if err != nil {
			return resp, nil
		}

		if t.onRetry != nil {
			t.onRetry(req, attempt, wait)
		}
		if err := t.sleep(req.Context(), wait); err != nil {
			// Cancelled while waiting: hand back what we have.
			if next != req && next.Body != nil {
				_ = next.Body.Close()
			}
			return resp, nil
		}
		discard(resp)
		req = next
	}
}

// schedule doubles from baseDelay without jitter and stops after
// maxAttempts-1 waits.
func (t *Transport) schedule() backoff.BackOff {
	if t.maxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     t.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Hour,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(t.maxAttempts-1))
}

// Backoff returns the wait after the given (1-based) failed attempt, or
// backoff.Stop when no further attempt is allowed.
func (t *Transport) Backoff(attempt int) time.Duration {
	sched := t.schedule()
	wait := backoff.Stop
	for range attempt {
		wait = sched.NextBackOff()
	}
	return wait
}

func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func discard(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
