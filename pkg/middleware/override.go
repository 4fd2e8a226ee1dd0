package middleware

import (
	"net/http"
	"strings"
)

// MethodOverrideHeader is the header consulted by MethodOverride
const MethodOverrideHeader = "X-HTTP-Method-Override"

var overridableMethods = map[string]bool{
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// MethodOverride rewrites the method of POST requests carrying
// X-HTTP-Method-Override. It wraps the whole router because gin resolves
// the route before any of its own middleware runs.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if m := strings.ToUpper(strings.TrimSpace(r.Header.Get(MethodOverrideHeader))); overridableMethods[m] {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}
