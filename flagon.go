package flagon

import (
	"context"
	"net/http"

	"github.com/flagonhq/flagon/app"
	"github.com/flagonhq/flagon/ext"
	"github.com/flagonhq/flagon/models"
)

// App is the application object, registry and server in one. Re-exported
// from app.App.
type App = app.App

// Option configures an App at construction time. Re-exported from app.Option.
type Option = app.Option

// RouteOption tunes a single rule at registration time. Re-exported from
// app.RouteOption.
type RouteOption = app.RouteOption

// Config is the application settings registry. Re-exported from app.Config.
type Config = app.Config

// Rule describes one registered URL rule. Re-exported from models.Rule.
type Rule = models.Rule

// Error is the JSON error body the framework serves. Re-exported from
// models.Error.
type Error = models.Error

// APIError carries a status code with an error. Re-exported from
// models.APIError.
type APIError = models.APIError

// Middleware wraps views with http.Handler composition. Re-exported from
// ext.Middleware.
type Middleware = ext.Middleware

// MiddlewareFunc lets a plain function be a Middleware. Re-exported from
// ext.MiddlewareFunc.
type MiddlewareFunc = ext.MiddlewareFunc

// Extension hooks third party packages into app construction. Re-exported
// from ext.Extension.
type Extension = ext.Extension

// RuleListener runs around rule registration. Re-exported from
// ext.RuleListener.
type RuleListener = ext.RuleListener

// AppListener runs around application start and stop. Re-exported from
// ext.AppListener.
type AppListener = ext.AppListener

// RequestListener runs around view dispatch. Re-exported from
// ext.RequestListener.
type RequestListener = ext.RequestListener

// New creates an application registry named after importName. Re-exported
// from app.New.
func New(ctx context.Context, importName string, opts ...Option) *App {
	return app.New(ctx, importName, opts...)
}

// NewFromEnv creates an application configured from the environment.
// Re-exported from app.NewFromEnv.
func NewFromEnv(ctx context.Context, importName string, opts ...Option) *App {
	return app.NewFromEnv(ctx, importName, opts...)
}

// Param returns the value a rule pattern captured for name. Re-exported from
// app.Param.
func Param(r *http.Request, name string) string { return app.Param(r, name) }

// Params returns all values the rule pattern captured. Re-exported from
// app.Params.
func Params(r *http.Request) map[string]string { return app.Params(r) }

// CurrentRule returns the rule the request matched. Re-exported from
// app.CurrentRule.
func CurrentRule(r *http.Request) *Rule { return app.CurrentRule(r) }

// Construction options, re-exported from the app package.
var (
	WithStaticFolder           = app.WithStaticFolder
	WithStaticURLPath          = app.WithStaticURLPath
	WithStaticHost             = app.WithStaticHost
	WithHostMatching           = app.WithHostMatching
	WithSubdomainMatching      = app.WithSubdomainMatching
	WithServerName             = app.WithServerName
	WithTemplateFolder         = app.WithTemplateFolder
	WithRootPath               = app.WithRootPath
	WithInstancePath           = app.WithInstancePath
	WithInstanceRelativeConfig = app.WithInstanceRelativeConfig
	WithSecretKey              = app.WithSecretKey
	WithDebug                  = app.WithDebug
	WithLogFormat              = app.WithLogFormat
	WithLogLevel               = app.WithLogLevel
	WithLogDest                = app.WithLogDest
	WithListenHost             = app.WithListenHost
	WithListenPort             = app.WithListenPort
	WithMaxConns               = app.WithMaxConns
	WithRateLimit              = app.WithRateLimit
	WithPrometheus             = app.WithPrometheus
	WithZipkin                 = app.WithZipkin
	WithMiddleware             = app.WithMiddleware
	WithMiddlewareFunc         = app.WithMiddlewareFunc
	WithExtension              = app.WithExtension
	WithRuleListener           = app.WithRuleListener
	WithAppListener            = app.WithAppListener
	WithRequestListener        = app.WithRequestListener
	LimitRequestBody           = app.LimitRequestBody
	EnableShutdownEndpoint     = app.EnableShutdownEndpoint
)

// Rule options, re-exported from the app package.
var (
	Methods       = app.Methods
	Endpoint      = app.Endpoint
	OnHost        = app.OnHost
	OnSubdomain   = app.OnSubdomain
	NoAutoOptions = app.NoAutoOptions
)
