// Package modulestest bootstraps an in-memory host for module tests.
package modulestest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/backend"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// Config returns a configuration listening on an ephemeral loopback port
func Config() *config.Config {
	cfg := config.Default()
	cfg.Hostname = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.Port = 0
	cfg.App.Name = "meanhost-test"
	cfg.SessionSecret = "test-secret"
	cfg.JWT.Secret = "test-secret"
	cfg.Session.CleanupInterval = 0
	cfg.Logging.Level = "error"
	return cfg
}

// Host is a bootstrapped instance
type Host struct {
	Engine   *engine.GinEngine
	Instance *host.Instance
	Handler  http.Handler
}

// Bootstrap creates the named modules and bootstraps them on a memory
// backend. The engine is shut down when the test ends.
func Bootstrap(t *testing.T, cfg *config.Config, names ...string) *Host {
	t.Helper()
	cfg.Modules = names

	mods, err := host.NewModules(names)
	require.NoError(t, err)

	inst := host.New(cfg, zap.NewNop())
	eng := engine.New()
	require.NoError(t, host.Bootstrap(context.Background(), inst, eng, backend.NewMemory(), mods, nil))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Shutdown(ctx)
	})

	srv, err := host.ResolveAs[*http.Server](inst, engine.DepHTTP)
	require.NoError(t, err)
	return &Host{Engine: eng, Instance: inst, Handler: srv.Handler}
}

// Do serves a request through h. A non-empty body is sent as JSON.
func Do(h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
