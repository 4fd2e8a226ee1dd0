package host

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/internal/backend"
)

// Engine is the server engine an instance is bootstrapped with
type Engine interface {
	// Name returns the engine name
	Name() string

	// BeginBootstrap builds the application, registers it with inst and
	// starts the listeners
	BeginBootstrap(ctx context.Context, inst *Instance, db backend.Backend) error

	// EndBootstrap installs the terminal handlers and then calls ready
	EndBootstrap(ready func(Engine)) error

	// Shutdown gracefully stops the listeners
	Shutdown(ctx context.Context) error

	// Destroy drops the engine's references
	Destroy()
}

// Module contributes routes or dependencies to an instance
type Module interface {
	Name() string
	Register(inst *Instance) error
}

// ModuleFactory creates a Module
type ModuleFactory func() Module

var (
	modulesMu sync.RWMutex
	modules   = make(map[string]ModuleFactory)
)

// RegisterModule registers a module factory under name
func RegisterModule(name string, factory ModuleFactory) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules[name] = factory
}

// NewModule creates the module registered under name
func NewModule(name string) (Module, error) {
	modulesMu.RLock()
	factory, ok := modules[name]
	modulesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no module registered as %q, available: %v", name, ListModules())
	}
	return factory(), nil
}

// NewModules creates the named modules in order
func NewModules(names []string) ([]Module, error) {
	mods := make([]Module, 0, len(names))
	for _, name := range names {
		m, err := NewModule(name)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// ListModules returns the registered module names, sorted
func ListModules() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bootstrap runs eng's bootstrap around the registration of mods. ready is
// passed to EndBootstrap and may be nil.
func Bootstrap(ctx context.Context, inst *Instance, eng Engine, db backend.Backend, mods []Module, ready func(Engine)) error {
	inst.mu.Lock()
	inst.engine = eng
	inst.mu.Unlock()

	if err := eng.BeginBootstrap(ctx, inst, db); err != nil {
		return fmt.Errorf("failed to begin bootstrap: %w", err)
	}

	for _, m := range mods {
		if err := m.Register(inst); err != nil {
			abortBootstrap(ctx, inst, eng)
			return fmt.Errorf("failed to register module %s: %w", m.Name(), err)
		}
		if inst.Logger != nil {
			inst.Logger.Info("Module registered", zap.String("module", m.Name()))
		}
	}

	if err := eng.EndBootstrap(ready); err != nil {
		abortBootstrap(ctx, inst, eng)
		return fmt.Errorf("failed to end bootstrap: %w", err)
	}
	return nil
}

// abortBootstrap releases what BeginBootstrap acquired once a later stage
// fails. The caller's context may already be done, so shutdown gets its own.
func abortBootstrap(ctx context.Context, inst *Instance, eng Engine) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil && inst.Logger != nil {
		inst.Logger.Warn("Shutdown after failed bootstrap", zap.Error(err))
	}
}
