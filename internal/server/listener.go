package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hubtwin/internal/shared"
)

// ListenerConfig describes where the callback listener binds and which TLS material it presents.
type ListenerConfig struct {
	Host          string
	Port          int
	Dir           string
	CertFile      string
	KeyFile       string
	AcceptTimeout time.Duration
}

// DefaultListenerConfig returns the stock loopback configuration: localhost:443 with ssl/cert.crt and
// ssl/private.key.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Host:          "localhost",
		Port:          443,
		Dir:           ".",
		CertFile:      "ssl/cert.crt",
		KeyFile:       "ssl/private.key",
		AcceptTimeout: 500 * time.Millisecond,
	}
}

// ListenerConfigFrom maps the [shared.ServerConfig] section onto a [ListenerConfig].
func ListenerConfigFrom(sc shared.ServerConfig) ListenerConfig {
	return ListenerConfig{
		Host:          sc.Host,
		Port:          sc.Port,
		Dir:           sc.Directory,
		CertFile:      sc.CertFile,
		KeyFile:       sc.KeyFile,
		AcceptTimeout: sc.AcceptTimeout.Duration,
	}
}

// Listener owns the bound TLS socket, the [http.Server] and its serve goroutine.
type Listener struct {
	cfg    ListenerConfig
	dir    string
	url    string
	ln     net.Listener
	srv    *http.Server
	logger *log.Logger

	mu      sync.Mutex
	served  bool
	closed  bool
	err     error
	done    chan struct{}
	closing sync.Once
}

// LoadTLSConfig loads a PEM certificate and unencrypted private key.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTLSMaterial, err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}, nil
}

// Bind loads the TLS material, binds host:port with address reuse and wraps the socket in TLS.
//
// No socket is bound when the certificate or key cannot be loaded.
func Bind(cfg ListenerConfig, logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve serve directory: %w", err)
	}

	tlsConfig, err := LoadTLSConfig(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	lc := net.ListenConfig{Control: reuseAddr}
	raw, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrBind, addr, err)
	}

	port := cfg.Port
	if tcp, ok := raw.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	url := "https://" + net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	logger.Info("callback listener bound", "url", url, "dir", dir)

	l := &Listener{
		cfg:    cfg,
		dir:    dir,
		url:    url,
		ln:     tls.NewListener(raw, tlsConfig),
		logger: logger,
		done:   make(chan struct{}),
	}
	l.srv = &http.Server{
		ReadHeaderTimeout: cfg.AcceptTimeout,
		IdleTimeout:       cfg.AcceptTimeout,
		ErrorLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
	}
	return l, nil
}

// Serve starts the accept loop on a background goroutine and returns the base URL immediately.
//
// Only the first call starts a loop; calls after [Listener.Close] are no-ops.
func (l *Listener) Serve(handler http.Handler) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.served || l.closed {
		return l.url
	}
	l.served = true
	l.srv.Handler = handler

	go l.run()
	return l.url
}

func (l *Listener) run() {
	defer close(l.done)
	defer l.ln.Close()

	if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		l.logger.Error("callback listener stopped", "error", err)
	}
}

// Start binds the listener and begins serving handler, returning the handle and its base URL.
func Start(cfg ListenerConfig, handler http.Handler, logger *log.Logger) (*Listener, string, error) {
	l, err := Bind(cfg, logger)
	if err != nil {
		return nil, "", err
	}
	return l, l.Serve(handler), nil
}

// Close stops accepting connections and waits for in-flight requests until ctx is done.
// It is safe to call more than once.
func (l *Listener) Close(ctx context.Context) error {
	var err error
	l.closing.Do(func() {
		l.mu.Lock()
		served := l.served
		l.closed = true
		l.mu.Unlock()

		if !served {
			err = l.ln.Close()
			close(l.done)
			return
		}

		if err = l.srv.Shutdown(ctx); err != nil {
			l.srv.Close()
		}

		select {
		case <-l.done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
		l.logger.Debug("callback listener closed", "url", l.url)
	})
	return err
}

// Done is closed once the serve loop has exited and the socket is released.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Err returns the error that ended the serve loop, if it was not a regular shutdown.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// URL returns the base address, e.g. https://localhost:443.
func (l *Listener) URL() string { return l.url }

// Addr returns the address of the bound socket.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Dir returns the absolute serve directory.
func (l *Listener) Dir() string { return l.dir }
