// Package engine is the gin server engine of a host instance. It builds the
// application and its middleware chain, binds the HTTP, TLS and admin
// listeners, and installs the fallback handlers once modules have
// registered their routes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/auth"
	"github.com/sirosfoundation/go-meanhost/internal/backend"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/server"
	"github.com/sirosfoundation/go-meanhost/internal/service"
	"github.com/sirosfoundation/go-meanhost/internal/session"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
	"github.com/sirosfoundation/go-meanhost/pkg/logging"
	"github.com/sirosfoundation/go-meanhost/pkg/middleware"
)

// Dependency names registered on the host instance
const (
	DepApp      = "app"
	DepHTTP     = "http"
	DepHTTPS    = "https"
	DepHTTP2    = "http2"
	DepAdmin    = "admin"
	DepPassport = "passport"
	DepSessions = "sessions"
	DepServices = "services"
	DepDatabase = "database"
)

var errNotBootstrapped = errors.New("engine has not begun bootstrapping")

// Configurer is an application-supplied setup step run at bootstrap with
// the initialized app and the database
type Configurer func(app *App, db backend.Backend) error

// Option configures a GinEngine
type Option func(*GinEngine)

// WithConfigurer sets the configurer hook
func WithConfigurer(fn Configurer) Option {
	return func(e *GinEngine) { e.configurer = fn }
}

// GinEngine implements host.Engine on gin
type GinEngine struct {
	configurer Configurer

	mu      sync.Mutex
	inst    *host.Instance
	db      backend.Backend
	app     *App
	cfg     *config.Config
	logger  *zap.Logger
	servers *server.Manager

	sessionStore session.Store
	cleanup      *session.CleanupWorker
	services     *service.Services

	development atomic.Bool
}

var _ host.Engine = (*GinEngine)(nil)

// New creates an engine
func New(opts ...Option) *GinEngine {
	e := &GinEngine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *GinEngine) Name() string { return "gin" }

// BeginBootstrap builds the app, registers it lazily as "app", runs the
// configurer, binds the listeners and registers them.
func (e *GinEngine) BeginBootstrap(ctx context.Context, inst *host.Instance, db backend.Backend) error {
	cfg := inst.Config
	logger := inst.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine")

	gin.SetMode(logging.GinMode(cfg.Logging.Level))

	app := newApp()

	e.mu.Lock()
	e.inst = inst
	e.db = db
	e.cfg = cfg
	e.logger = logger
	e.app = app
	e.servers = server.NewManager(logger)
	e.mu.Unlock()

	if db != nil {
		inst.Register(DepDatabase, db)
	}

	initCtx := context.WithoutCancel(ctx)
	inst.Register(DepApp, host.Factory(func() (any, error) {
		return e.initApp(initCtx)
	}))

	if e.configurer != nil {
		if _, err := AppFrom(inst); err != nil {
			_ = e.Shutdown(context.Background())
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		if err := e.configurer(app, db); err != nil {
			_ = e.Shutdown(context.Background())
			return fmt.Errorf("configurer failed: %w", err)
		}
	}

	handler := e.wrapHandler(app)

	l, err := e.servers.Listen(DepHTTP, cfg.Address(), handler, nil)
	if err != nil {
		_ = e.Shutdown(context.Background())
		return err
	}
	inst.Register(DepHTTP, l.Server)

	if err := e.listenTLS(inst, handler); err != nil {
		_ = e.Shutdown(context.Background())
		return err
	}

	if err := e.listenAdmin(inst); err != nil {
		_ = e.Shutdown(context.Background())
		return err
	}

	inst.Name = cfg.App.Name
	inst.App = app
	return nil
}

// wrapHandler adds the handler-level middleware that must run before
// routing: method override, then CSRF.
func (e *GinEngine) wrapHandler(app *App) http.Handler {
	var h http.Handler = app.Engine
	if e.cfg.CSRF.Enabled {
		h = middleware.CSRF([]byte(e.cfg.CSRF.Key), e.cfg.Session.SecureCookie, e.cfg.CSRF.BypassRoutes, e.logger)(h)
	}
	return middleware.MethodOverride(h)
}

func (e *GinEngine) listenTLS(inst *host.Instance, handler http.Handler) error {
	if e.cfg.HTTPS.Port == 0 {
		return nil
	}

	keyPath, certPath := e.cfg.TLSPaths()
	if !server.TLSFilesExist(keyPath, certPath) {
		e.logger.Info("TLS key or certificate missing, HTTPS disabled",
			zap.String("key", keyPath), zap.String("cert", certPath))
		return nil
	}

	tlsConfig, err := server.LoadTLSConfig(keyPath, certPath)
	if err != nil {
		return err
	}

	l, err := e.servers.Listen(DepHTTPS, e.cfg.TLSAddress(), handler, tlsConfig)
	if err != nil {
		return err
	}
	inst.Register(DepHTTPS, l.Server)
	inst.Register(DepHTTP2, l.Server)
	return nil
}

func (e *GinEngine) listenAdmin(inst *host.Instance) error {
	if e.cfg.Admin.Port == 0 {
		return nil
	}

	token := e.cfg.Admin.Token
	if token == "" {
		var err error
		token, err = middleware.GenerateAdminToken()
		if err != nil {
			return fmt.Errorf("failed to generate admin token: %w", err)
		}
		e.logger.Info("Generated admin API token (set MEAN_ADMIN_TOKEN to use a fixed token)",
			zap.String("token", token))
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler(e.logger, e.development.Load))
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(e.logger.Named("admin")))
	router.NoRoute(middleware.NotFound)

	group := router.Group("/admin")
	group.Use(middleware.AdminAuthMiddleware(token, e.logger))

	_, err := e.servers.Listen(DepAdmin, e.cfg.AdminAddress(), router, nil)
	if err != nil {
		return err
	}
	inst.Register(DepAdmin, group)
	return nil
}

// initApp installs the application middleware chain and registers the
// passport, sessions and services dependencies.
func (e *GinEngine) initApp(ctx context.Context) (*App, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.app == nil {
		return nil, errNotBootstrapped
	}
	app, cfg, logger := e.app, e.cfg, e.logger

	store, err := e.newSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(store, cfg.SessionSecret, cfg.Session, logger)

	users := e.db.Users()
	services := service.NewServices(users, cfg, logger)
	passport := auth.New(users, logger).
		Use(auth.NewLocalStrategy(services.User)).
		Use(auth.NewBearerStrategy(services.Tokens, services.Revocations, users))

	app.Use(middleware.ErrorHandler(logger, e.development.Load))
	app.Use(middleware.Recovery())
	app.Use(middleware.Logger(logger))
	app.Use(cors.New(corsConfig(cfg.CORS)))
	app.Use(middleware.CookieParser(sessions.Codec()))
	app.Use(middleware.BodyParser(cfg.BodyLimit))
	app.Use(middleware.Validator())
	app.Use(sessions.Middleware())
	app.Use(passport.Initialize())
	app.Use(passport.Session())

	e.sessionStore = store
	e.services = services
	e.cleanup = session.NewCleanupWorker(store, time.Duration(cfg.Session.CleanupInterval)*time.Second, logger)
	services.Start()
	e.cleanup.Start()

	e.inst.Register(DepPassport, passport)
	e.inst.Register(DepSessions, sessions)
	e.inst.Register(DepServices, services)

	return app, nil
}

// newSessionStore builds the configured store. An unreachable Redis falls
// back to the memory store.
func (e *GinEngine) newSessionStore(ctx context.Context) (session.Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := session.NewStore(initCtx, &e.cfg.Session, e.db.MongoDatabase(), e.logger)
	if err == nil {
		e.logger.Info("Session store initialized", zap.String("type", e.cfg.Session.Type))
		return store, nil
	}
	if e.cfg.Session.Type == session.TypeRedis {
		e.logger.Warn("Failed to connect to Redis, falling back to memory session store", zap.Error(err))
		return session.NewMemoryStore(e.logger), nil
	}
	return nil, fmt.Errorf("failed to initialize session store: %w", err)
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           time.Duration(c.MaxAge) * time.Second,
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			cc.AllowOrigins = nil
			cc.AllowAllOrigins = true
			break
		}
	}
	if len(cc.AllowMethods) == 0 {
		cc.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	}
	return cc
}

// EndBootstrap makes sure the app is initialized, installs the fallback
// handlers, applies the development flag, starts serving and finally calls
// ready.
func (e *GinEngine) EndBootstrap(ready func(host.Engine)) error {
	e.mu.Lock()
	inst := e.inst
	e.mu.Unlock()
	if inst == nil {
		return errNotBootstrapped
	}

	app, err := AppFrom(inst)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	app.NoRoute(middleware.FinalRoute)
	e.development.Store(e.cfg.IsDevelopment())

	e.servers.Start()

	if ready != nil {
		ready(e)
	}
	return nil
}

// Servers returns the listener manager
func (e *GinEngine) Servers() *server.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.servers
}

// Shutdown gracefully stops the listeners and background workers and
// closes the session store.
func (e *GinEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	servers, cleanup, services, store := e.servers, e.cleanup, e.services, e.sessionStore
	e.mu.Unlock()

	var errs []error
	if servers != nil {
		if err := servers.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if cleanup != nil {
		cleanup.Stop()
	}
	if services != nil {
		services.Stop()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session store close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Destroy drops the references to the instance, database and app
func (e *GinEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inst = nil
	e.db = nil
	e.app = nil
}
