// Package server provides the loopback HTTPS listener that captures OAuth redirects.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied with the first added outermost, so it runs first.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering, so anything other than
// the registered method is answered with 405.
//
// # Listener
//
// [Bind] loads the certificate and key before any socket is bound, then binds host:port with address reuse
// enabled and wraps the socket in TLS. [Listener.Serve] starts exactly one background goroutine running the
// accept loop and returns the base URL immediately. [Start] does both.
//
// The listener lives for one authorization attempt. [Listener.Close] shuts it down; [Listener.Done] is closed
// once the socket is released.
//
// # Callback Handler
//
// [CallbackHandler] answers every GET with a plain-text page. When the request carries a non-empty code query
// parameter the code is echoed back and published on the [Handoff].
//
// # Handoff
//
// [Handoff] is a buffered FIFO channel between the serve goroutine and the foreground flow. Publishing never
// blocks the request handler; receiving blocks until a code arrives, the context is done, or a timeout elapses.
package server
