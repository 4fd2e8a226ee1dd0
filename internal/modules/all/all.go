// Package all imports every built-in module so that it registers itself.
package all

import (
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/admin"
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/auth"
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/static"
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/system"
)
