// Package server manages the HTTP listeners of a host: plain HTTP, TLS with
// HTTP/2, and the internal admin API. Sockets are bound eagerly so that
// address errors surface at bootstrap, while serving starts only once the
// router is complete.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Listener is a bound server
type Listener struct {
	Name   string
	Server *http.Server

	ln      net.Listener
	tls     bool
	started bool
}

// Addr returns the bound address
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Manager owns a set of listeners
type Manager struct {
	logger *zap.Logger

	mu        sync.Mutex
	listeners []*Listener
	wg        sync.WaitGroup
}

// NewManager creates a new listener manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("server")}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Listen binds addr for handler. A non-nil tlsConfig makes it a TLS
// listener with HTTP/2 enabled.
func (m *Manager) Listen(name, addr string, handler http.Handler, tlsConfig *tls.Config) (*Listener, error) {
	srv := newHTTPServer(addr, handler)
	if tlsConfig != nil {
		srv.TLSConfig = tlsConfig
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("failed to configure http2 for %s: %w", name, err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s for %s: %w", addr, name, err)
	}

	l := &Listener{Name: name, Server: srv, ln: ln, tls: tlsConfig != nil}

	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()

	m.logger.Debug("Bound listener", zap.String("name", name), zap.String("address", ln.Addr().String()))
	return l, nil
}

// Start serves every bound listener that is not already serving
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.listeners {
		if l.started {
			continue
		}
		l.started = true

		m.wg.Add(1)
		go func(l *Listener) {
			defer m.wg.Done()
			m.logger.Info("Server listening",
				zap.String("name", l.Name),
				zap.String("address", l.ln.Addr().String()),
				zap.Bool("tls", l.tls))

			var err error
			if l.tls {
				err = l.Server.ServeTLS(l.ln, "", "")
			} else {
				err = l.Server.Serve(l.ln)
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error("Server error", zap.String("name", l.Name), zap.Error(err))
			}
		}(l)
	}
}

// Get returns the listener registered under name
func (m *Manager) Get(name string) (*Listener, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listeners {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Shutdown gracefully shuts down all servers and closes listeners that
// never started serving
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if !l.started {
			if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, fmt.Errorf("%s listener close: %w", l.Name, err))
			}
			continue
		}
		if err := l.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", l.Name, err))
		}
	}

	m.wg.Wait()
	return errors.Join(errs...)
}
