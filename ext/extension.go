package ext

import (
	"net/http"
)

// Extension is a unit of pluggable behavior that can be registered on an
// application at construction time.
type Extension interface {
	Name() string
	Setup(a ExtApp) error
}

// ExtApp limits what an extension can do to an application and prevents a
// dependency loop with the app package.
type ExtApp interface {
	AddRuleListener(listener RuleListener)
	AddAppListener(listener AppListener)
	AddRequestListener(listener RequestListener)

	// AddMiddleware adds middleware wrapping every matched request
	AddMiddleware(m Middleware)
	// AddMiddlewareFunc adds a middleware func wrapping every matched request
	AddMiddlewareFunc(m MiddlewareFunc)

	// AddEndpoint binds an extra handler outside the rule registry, e.g.
	// health or admin surfaces
	AddEndpoint(method, path string, handler http.Handler)
	// AddEndpointFunc binds an extra handler func outside the rule registry
	AddEndpointFunc(method, path string, handler func(w http.ResponseWriter, r *http.Request))
}
