// Package modules holds helpers shared by the built-in host modules. The
// modules themselves live in subpackages and register on import; import
// modules/all to get every one of them.
package modules

import (
	"github.com/sirosfoundation/go-meanhost/internal/host"
)

// DefaultServiceName is reported when the instance has no name
const DefaultServiceName = "meanhost"

// ServiceName returns the instance name or the default
func ServiceName(inst *host.Instance) string {
	if inst.Name != "" {
		return inst.Name
	}
	return DefaultServiceName
}

// Loaded returns the module names configured for the instance
func Loaded(inst *host.Instance) []string {
	if inst.Config == nil {
		return nil
	}
	return append([]string(nil), inst.Config.Modules...)
}
