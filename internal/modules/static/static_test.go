package static

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/modules/modulestest"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestModule_Registered(t *testing.T) {
	assert.Contains(t, host.ListModules(), Name)
}

func TestModule_ServesMounts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "app.js"), []byte("console.log(1)"), 0o600))

	absDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(absDir, "readme.txt"), []byte("<h1>hi</h1>"), 0o600))

	cfg := modulestest.Config()
	cfg.Root = root
	cfg.Static = []config.StaticMount{
		{Prefix: "/public", Dir: "assets"},
		{Prefix: "docs", Dir: absDir},
	}
	h := modulestest.Bootstrap(t, cfg, Name)

	w := modulestest.Do(h.Handler, http.MethodGet, "/public/app.js", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = modulestest.Do(h.Handler, http.MethodGet, "/docs/readme.txt", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>hi</h1>")

	w = modulestest.Do(h.Handler, http.MethodGet, "/public/missing.js", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "missing files fall through to the catch-all")

	app, err := engine.AppFrom(h.Instance)
	require.NoError(t, err)
	assert.Equal(t, []string{"/public", "/docs"}, app.StaticMounts())
}

func TestModule_NoMounts(t *testing.T) {
	h := modulestest.Bootstrap(t, modulestest.Config(), Name)

	app, err := engine.AppFrom(h.Instance)
	require.NoError(t, err)
	assert.Empty(t, app.StaticMounts())
}
