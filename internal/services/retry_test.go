package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/hubtwin/internal/shared"
	tu "github.com/desertthunder/hubtwin/internal/testing"
)

func fastRetry(maxRetries int) shared.RetryConfig {
	return shared.RetryConfig{
		MaxRetries: maxRetries,
		Backoff:    shared.Duration{Duration: time.Millisecond},
		Statuses:   []int{500, 502, 504},
	}
}

func TestRetryTransport(t *testing.T) {
	t.Run("retries retryable statuses until success", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := &http.Client{Transport: NewRetryTransport(nil, fastRetry(3))}
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusGatewayTimeout)
		}))
		defer server.Close()

		client := &http.Client{Transport: NewRetryTransport(nil, fastRetry(3))}
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusGatewayTimeout {
			t.Errorf("expected final 504, got %d", resp.StatusCode)
		}
		if calls != 4 {
			t.Errorf("expected 1 attempt + 3 retries, got %d", calls)
		}
	})

	t.Run("non-retryable status returns immediately", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := &http.Client{Transport: NewRetryTransport(nil, fastRetry(3))}
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if calls != 1 {
			t.Errorf("expected a single attempt for 503, got %d", calls)
		}
	})

	t.Run("POST only with opt-in and body is replayed", func(t *testing.T) {
		var calls int32
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(data))
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		plain := &http.Client{Transport: NewRetryTransport(nil, fastRetry(3))}
		resp, err := plain.Post(server.URL, "text/plain", strings.NewReader("payload"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError || calls != 1 {
			t.Fatalf("expected POST not to be retried by default, got %d after %d calls", resp.StatusCode, calls)
		}

		calls, bodies = 0, nil
		optIn := &http.Client{Transport: NewRetryTransport(nil, fastRetry(3), WithRetryMethods("post"))}
		resp, err = optIn.Post(server.URL, "text/plain", strings.NewReader("payload"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 after retry, got %d", resp.StatusCode)
		}
		if len(bodies) != 2 || bodies[0] != "payload" || bodies[1] != "payload" {
			t.Errorf("expected body replayed on retry, got %q", bodies)
		}
	})

	t.Run("transport errors are retried", func(t *testing.T) {
		var calls int32
		base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) < 2 {
				return nil, errors.New("connection reset")
			}
			return tu.NewMockRoundTripper(&http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil).RoundTrip(r)
		})

		client := &http.Client{Transport: NewRetryTransport(base, fastRetry(2))}
		resp, err := client.Get("http://example.invalid/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if calls != 2 {
			t.Errorf("expected 2 attempts, got %d", calls)
		}
	})

	t.Run("cancellation stops the backoff", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := fastRetry(5)
		cfg.Backoff = shared.Duration{Duration: time.Hour}
		client := &http.Client{Transport: NewRetryTransport(nil, cfg)}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		start := time.Now()
		if _, err := client.Do(req); err == nil {
			t.Fatal("expected error after cancellation")
		}
		if time.Since(start) > 5*time.Second {
			t.Error("backoff ignored context cancellation")
		}
	})

	t.Run("NewHTTPClient", func(t *testing.T) {
		client := NewHTTPClient(fastRetry(1), 10*time.Second)
		rt, ok := client.Transport.(*RetryTransport)
		if !ok {
			t.Fatalf("expected *RetryTransport, got %T", client.Transport)
		}
		if rt.MaxRetries != 1 || client.Timeout != 10*time.Second {
			t.Errorf("unexpected client settings %+v", rt)
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
