// Package auth mounts the password and token authentication endpoints
// under /apis/auth.
package auth

import (
	"github.com/sirosfoundation/go-meanhost/internal/api"
	"github.com/sirosfoundation/go-meanhost/internal/auth"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// Name is the module name
const Name = "auth"

func init() {
	host.RegisterModule(Name, func() host.Module { return &Module{} })
}

// Module registers the /apis/auth routes
type Module struct{}

func (m *Module) Name() string { return Name }

func (m *Module) Register(inst *host.Instance) error {
	app, err := engine.AppFrom(inst)
	if err != nil {
		return err
	}
	services, err := host.ResolveAs[*service.Services](inst, engine.DepServices)
	if err != nil {
		return err
	}
	passport, err := host.ResolveAs[*auth.Passport](inst, engine.DepPassport)
	if err != nil {
		return err
	}

	limiter := middleware.NewAuthRateLimiter(inst.Config.AuthRateLimit, inst.Logger)
	h := api.NewAuthHandlers(services, passport, limiter, inst.Logger)

	g := app.Group("/apis/auth")
	g.POST("/register", middleware.AuthRateLimitMiddleware(limiter), h.Register)
	g.POST("/login", middleware.AuthRateLimitMiddleware(limiter), h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	return nil
}
