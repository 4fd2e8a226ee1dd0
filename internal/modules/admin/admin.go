// Package admin mounts the user and session management API on the admin
// listener.
package admin

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/api"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/modules"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/internal/session"
)

// Name is the module name
const Name = "admin"

func init() {
	host.RegisterModule(Name, func() host.Module { return &Module{} })
}

// Module registers the /admin routes. It does nothing when the admin
// listener is disabled.
type Module struct{}

func (m *Module) Name() string { return Name }

func (m *Module) Register(inst *host.Instance) error {
	if !inst.Has(engine.DepAdmin) {
		inst.Logger.Info("Admin listener disabled, admin module not mounted")
		return nil
	}
	group, err := host.ResolveAs[*gin.RouterGroup](inst, engine.DepAdmin)
	if err != nil {
		return err
	}

	// services and sessions are created with the app
	if _, err := engine.AppFrom(inst); err != nil {
		return err
	}
	services, err := host.ResolveAs[*service.Services](inst, engine.DepServices)
	if err != nil {
		return err
	}
	sessions, err := host.ResolveAs[*session.Manager](inst, engine.DepSessions)
	if err != nil {
		return err
	}

	status := api.NewStatusHandlers(modules.ServiceName(inst), modules.Loaded(inst), nil, inst.Logger)
	h := api.NewAdminHandlers(services.User, sessions.Store(), status, inst.Logger)

	group.GET("/status", h.AdminStatus)
	group.GET("/users", h.ListUsers)
	group.POST("/users", h.CreateUser)
	group.DELETE("/users/:id", h.DeleteUser)
	group.DELETE("/users/:id/sessions", h.RevokeSessions)

	inst.Logger.Debug("Admin routes mounted", zap.String("base", group.BasePath()))
	return nil
}
