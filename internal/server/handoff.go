package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hubtwin/internal/shared"
)

// Handoff carries authorization codes from the serve goroutine to the foreground flow.
//
// A Handoff belongs to a single authorization attempt and is never reused.
type Handoff struct {
	ch chan string
}

// NewHandoff creates a [Handoff] buffering up to capacity codes. Capacities below 1 are raised to 1.
func NewHandoff(capacity int) *Handoff {
	if capacity < 1 {
		capacity = 1
	}
	return &Handoff{ch: make(chan string, capacity)}
}

// Publish enqueues code without blocking. It reports false when the buffer is full and the code was dropped.
func (h *Handoff) Publish(code string) bool {
	select {
	case h.ch <- code:
		return true
	default:
		return false
	}
}

// Receive blocks until a code is available or ctx is done. Codes come out in publish order.
func (h *Handoff) Receive(ctx context.Context) (string, error) {
	select {
	case code := <-h.ch:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ReceiveTimeout waits at most d for a code. A non-positive d waits indefinitely.
func (h *Handoff) ReceiveTimeout(d time.Duration) (string, error) {
	if d <= 0 {
		return h.Receive(context.Background())
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	code, err := h.Receive(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: no authorization code received within %s", shared.ErrTimeout, d)
	}
	return code, err
}

// Len returns the number of codes waiting to be received.
func (h *Handoff) Len() int { return len(h.ch) }

// Cap returns the buffer capacity.
func (h *Handoff) Cap() int { return cap(h.ch) }
