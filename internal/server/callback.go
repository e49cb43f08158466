package server

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// CallbackOption configures a [CallbackHandler].
type CallbackOption func(*CallbackHandler)

// WithState makes the handler reject code-bearing requests whose state parameter differs from expected.
// An empty expected value disables the check.
func WithState(expected string) CallbackOption {
	return func(h *CallbackHandler) { h.state = expected }
}

// WithCallbackLogger sets the logger used for rejected or dropped callbacks.
func WithCallbackLogger(l *log.Logger) CallbackOption {
	return func(h *CallbackHandler) { h.logger = l }
}

// CallbackHandler captures the authorization code from OAuth redirects and publishes it on a [Handoff].
// Implements the [Handler] interface for registration with a [Router].
type CallbackHandler struct {
	handoff  *Handoff
	state    string
	logger   *log.Logger
	captured atomic.Bool
}

// NewCallbackHandler creates a handler that publishes captured codes to handoff.
func NewCallbackHandler(handoff *Handoff, opts ...CallbackOption) *CallbackHandler {
	h := &CallbackHandler{handoff: handoff, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP routes this handler serves. The redirect may land on any path.
func (h *CallbackHandler) Routes() []string {
	return []string{"/"}
}

// ServeHTTP answers the redirect with a plain-text page and publishes a non-empty code.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")

	if code == "" {
		if errParam := query.Get("error"); errParam != "" {
			h.logger.Warn("authorization server returned an error", "error", errParam, "description", query.Get("error_description"))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.state != "" && query.Get("state") != h.state {
		h.logger.Warn("rejected callback with mismatched state", "path", r.URL.Path)
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Authorization code: %s\n\nYou may close this window", code)

	if h.handoff.Publish(code) {
		h.captured.Store(true)
	} else {
		h.logger.Warn("handoff full, dropped authorization code")
	}
}

// Captured reports whether at least one code has been published.
func (h *CallbackHandler) Captured() bool {
	return h.captured.Load()
}
