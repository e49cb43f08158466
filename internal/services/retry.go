package services

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hubtwin/internal/shared"
)

var idempotentMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodTrace,
}

// RetryTransport retries requests that fail at the transport level or come back with a retryable status,
// waiting backoff * 2^attempt between attempts.
//
// Only idempotent methods are retried unless more are allowed with [WithRetryMethods].
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration

	statuses map[int]bool
	methods  map[string]bool
	logger   *log.Logger
}

// RetryOption configures a [RetryTransport].
type RetryOption func(*RetryTransport)

// WithRetryMethods allows retrying additional methods, e.g. read-only POST endpoints.
func WithRetryMethods(methods ...string) RetryOption {
	return func(t *RetryTransport) {
		for _, m := range methods {
			t.methods[strings.ToUpper(m)] = true
		}
	}
}

// WithRetryLogger logs each retry at warn level.
func WithRetryLogger(l *log.Logger) RetryOption {
	return func(t *RetryTransport) { t.logger = l }
}

// NewRetryTransport wraps base (http.DefaultTransport when nil) with the policy from cfg.
func NewRetryTransport(base http.RoundTripper, cfg shared.RetryConfig, opts ...RetryOption) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	t := &RetryTransport{
		Base:       base,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff.Duration,
		statuses:   make(map[int]bool, len(cfg.Statuses)),
		methods:    make(map[string]bool, len(idempotentMethods)),
		logger:     log.New(io.Discard),
	}
	for _, s := range cfg.Statuses {
		t.statuses[s] = true
	}
	for _, m := range idempotentMethods {
		t.methods[m] = true
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewHTTPClient builds an [http.Client] on a cloned default transport wrapped in a [RetryTransport].
func NewHTTPClient(cfg shared.RetryConfig, timeout time.Duration, opts ...RetryOption) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = 4
	base.IdleConnTimeout = 60 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: NewRetryTransport(base, cfg, opts...),
	}
}

// RoundTrip implements [http.RoundTripper].
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	retryable := t.methods[req.Method]

	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 && req.Body != nil && req.Body != http.NoBody {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to replay request body: %w", err)
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		resp, err := t.Base.RoundTrip(attemptReq)

		if !retryable || attempt >= t.MaxRetries || ctx.Err() != nil || !t.shouldRetry(resp, err) {
			return resp, err
		}
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return resp, err
		}

		reason := "transport error"
		if err == nil {
			reason = resp.Status
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		wait := t.Backoff << attempt
		t.logger.Warn("retrying request", "method", req.Method, "url", req.URL.Redacted(), "reason", reason, "attempt", attempt+1, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (t *RetryTransport) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return t.statuses[resp.StatusCode]
}
