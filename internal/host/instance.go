// Package host holds the application instance that modules and the server
// engine share: its name, configuration, logger and a registry of named
// dependencies.
package host

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// ErrDependencyNotFound is returned when resolving an unregistered name
var ErrDependencyNotFound = errors.New("dependency not found")

// Factory produces a dependency on first resolution
type Factory func() (any, error)

type dependency struct {
	mu       sync.Mutex
	value    any
	factory  Factory
	resolved bool
}

func (d *dependency) get() (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.factory == nil || d.resolved {
		return d.value, nil
	}
	v, err := d.factory()
	if err != nil {
		return nil, err
	}
	d.value, d.resolved = v, true
	return v, nil
}

// Instance is the application instance record
type Instance struct {
	// Name is the application name, set by the engine from app.name
	Name string
	// App is the framework application, set by the engine
	App any

	Config *config.Config
	Logger *zap.Logger

	mu     sync.RWMutex
	deps   map[string]*dependency
	engine Engine
}

// New creates an empty instance. A nil logger is replaced by a no-op one.
func New(cfg *config.Config, logger *zap.Logger) *Instance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instance{
		Config: cfg,
		Logger: logger,
		deps:   make(map[string]*dependency),
	}
}

// Register exposes value under name. A Factory value is resolved lazily,
// once, on the first successful Resolve. Registering a name again replaces
// the previous entry.
func (i *Instance) Register(name string, value any) {
	d := &dependency{}
	switch v := value.(type) {
	case Factory:
		d.factory = v
	case func() (any, error):
		d.factory = v
	default:
		d.value = value
	}

	i.mu.Lock()
	if i.deps == nil {
		i.deps = make(map[string]*dependency)
	}
	i.deps[name] = d
	i.mu.Unlock()
}

// Resolve returns the dependency registered under name. Factory errors are
// returned and not cached.
func (i *Instance) Resolve(name string) (any, error) {
	i.mu.RLock()
	d, ok := i.deps[name]
	i.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDependencyNotFound, name)
	}
	return d.get()
}

// Has reports whether name is registered
func (i *Instance) Has(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.deps[name]
	return ok
}

// Names returns the registered names, sorted
func (i *Instance) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	names := make([]string, 0, len(i.deps))
	for name := range i.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine returns the engine the instance was bootstrapped with
func (i *Instance) Engine() Engine {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine
}

// Destroy drops every reference the instance holds. It is safe to call
// more than once.
func (i *Instance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.deps = make(map[string]*dependency)
	i.engine = nil
	i.App = nil
}

// ResolveAs resolves name and asserts its type
func ResolveAs[T any](i *Instance, name string) (T, error) {
	var zero T
	v, err := i.Resolve(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %s has type %T, want %T", name, v, zero)
	}
	return t, nil
}
