// Package system mounts the status and health endpoints.
package system

import (
	"github.com/sirosfoundation/go-meanhost/internal/api"
	"github.com/sirosfoundation/go-meanhost/internal/backend"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/modules"
)

// Name is the module name
const Name = "system"

func init() {
	host.RegisterModule(Name, func() host.Module { return &Module{} })
}

// Module serves GET /status and GET /health
type Module struct{}

func (m *Module) Name() string { return Name }

func (m *Module) Register(inst *host.Instance) error {
	app, err := engine.AppFrom(inst)
	if err != nil {
		return err
	}

	var db api.Pinger
	if b, err := host.ResolveAs[backend.Backend](inst, engine.DepDatabase); err == nil {
		db = b
	}

	h := api.NewStatusHandlers(modules.ServiceName(inst), modules.Loaded(inst), db, inst.Logger)
	app.GET("/status", h.Status)
	app.GET("/health", h.Health)
	return nil
}
