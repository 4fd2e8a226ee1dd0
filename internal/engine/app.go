package engine

import (
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/go-meanhost/internal/host"
)

// App is the framework application handed to modules
type App struct {
	*gin.Engine
	mounts []string
}

func newApp() *App {
	e := gin.New()
	e.RedirectTrailingSlash = false
	e.HandleMethodNotAllowed = false
	return &App{Engine: e}
}

// UseStatic serves dir under the URL prefix. An empty prefix mounts at the
// root. Requests for missing files fall through to the rest of the chain.
func (a *App) UseStatic(prefix, dir string) {
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	a.Use(static.Serve(prefix, static.LocalFile(dir, false)))
	a.mounts = append(a.mounts, prefix)
}

// StaticMounts returns the prefixes mounted with UseStatic
func (a *App) StaticMounts() []string {
	return append([]string(nil), a.mounts...)
}

// AppFrom resolves the instance's app, initializing it on first use
func AppFrom(inst *host.Instance) (*App, error) {
	return host.ResolveAs[*App](inst, "app")
}
