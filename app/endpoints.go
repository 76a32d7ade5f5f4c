package app

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flagonhq/flagon/ext"
	"github.com/flagonhq/flagon/models"
	"github.com/flagonhq/flagon/version"
)

var _ ext.ExtApp = &App{}

type appCtxKey struct{}

// appWrap puts the app on the request context so everything downstream,
// error rendering included, can reach the registry.
func (a *App) appWrap(c *gin.Context) {
	ctx := context.WithValue(c.Request.Context(), appCtxKey{}, a)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func appFromContext(ctx context.Context) *App {
	a, _ := ctx.Value(appCtxKey{}).(*App)
	return a
}

// bindHandlers installs the rest of the middleware chain and the handful of
// paths the framework reserves for itself: /version, /metrics when a
// prometheus exporter is configured, and the profiler under /debug.
// Everything else belongs to the application's rules.
func (a *App) bindHandlers(ctx context.Context) {
	engine := a.Router

	engine.Use(traceWrap, a.metricsWrap())
	// now for extensible middleware
	engine.Use(a.middlewareWrapper())
	if a.maxRequestSize > 0 {
		engine.Use(limitRequestBody(a.maxRequestSize))
	}
	if a.rateLimit > 0 {
		engine.Use(rateLimitWrap(a.rateLimit))
	}

	engine.GET("/version", handleVersion)

	if a.promExporter != nil {
		engine.GET("/metrics", gin.WrapH(a.promExporter))
	}

	profilerSetup(engine, "/debug")

	engine.NoRoute(func(c *gin.Context) {
		var e models.APIError = models.ErrPathNotFound
		handleErrorResponse(c, models.NewAPIError(e.Code(),
			fmt.Errorf("%v: %s", e.Error(), c.Request.URL.Path)))
	})

	engine.NoMethod(func(c *gin.Context) {
		if allow := a.allowForPath(c.Request.URL.Path); allow != "" {
			c.Header("Allow", allow)
		}
		var e models.APIError = models.ErrMethodNotAllowed
		handleErrorResponse(c, models.NewAPIError(e.Code(),
			fmt.Errorf("%v: %s %s", e.Error(), c.Request.Method, c.Request.URL.Path)))
	})
}

// allowForPath reports the methods bound on path, for the Allow header on
// 405s. Parameterized paths don't resolve here, those just go without.
func (a *App) allowForPath(path string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	bindings := a.bound[path]
	if len(bindings) == 0 {
		return ""
	}
	methods := make([]string, 0, len(bindings))
	for m := range bindings {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

func handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Version})
}

// AddEndpoint binds an extra handler outside the rule registry. Extensions
// use this for admin or health surfaces that shouldn't show up in Rules or
// URLFor. The path uses the router's native syntax.
func (a *App) AddEndpoint(method, path string, handler http.Handler) {
	a.Router.Handle(method, path, func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	})
}

// AddEndpointFunc binds an extra handler func outside the rule registry.
func (a *App) AddEndpointFunc(method, path string, handler func(w http.ResponseWriter, r *http.Request)) {
	a.AddEndpoint(method, path, http.HandlerFunc(handler))
}
