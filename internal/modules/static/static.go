// Package static serves the configured static directories.
package static

import (
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
)

// Name is the module name
const Name = "static"

func init() {
	host.RegisterModule(Name, func() host.Module { return &Module{} })
}

// Module mounts every static entry of the configuration
type Module struct{}

func (m *Module) Name() string { return Name }

func (m *Module) Register(inst *host.Instance) error {
	app, err := engine.AppFrom(inst)
	if err != nil {
		return err
	}

	for _, mount := range inst.Config.Static {
		dir := inst.Config.ResolvePath(mount.Dir)
		app.UseStatic(mount.Prefix, dir)
		inst.Logger.Info("Serving static files",
			zap.String("prefix", mount.Prefix),
			zap.String("dir", dir))
	}
	return nil
}
