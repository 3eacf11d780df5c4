package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Listener timeouts. WriteTimeout is left at zero on the API listener
// because a run can take minutes.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// listener is one named HTTP server with a logged lifecycle.
type listener struct {
	name string
	srv  *http.Server

	mu    sync.Mutex
	bound net.Addr
}

func newListener(name, addr string, handler http.Handler, writeTimeout time.Duration) *listener {
	return &listener{
		name: name,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}

// Start binds and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (l *listener) Start() error {
	ln, err := net.Listen("tcp", l.srv.Addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.bound = ln.Addr()
	l.mu.Unlock()

	slog.Info("starting "+l.name, "addr", ln.Addr().String())
	if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (l *listener) Shutdown(ctx context.Context) error {
	slog.Info("shutting down " + l.name)
	return l.srv.Shutdown(ctx)
}

// Addr is the bound address once started, the configured one before.
func (l *listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound != nil {
		return l.bound.String()
	}
	return l.srv.Addr
}
