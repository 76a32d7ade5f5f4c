package app

import (
	"context"
	"path/filepath"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/ext"
	"github.com/flagonhq/flagon/models"
)

// Option is a func that allows configuring an App
type Option func(context.Context, *App) error

// WithStaticFolder sets the folder static files are served from, resolved
// against the root path when relative. Empty disables static serving.
func WithStaticFolder(folder string) Option {
	return func(ctx context.Context, a *App) error {
		a.staticFolder = folder
		return nil
	}
}

// WithStaticURLPath sets the URL prefix the static rule is bound under.
// Defaults to "/" plus the static folder's base name.
func WithStaticURLPath(path string) Option {
	return func(ctx context.Context, a *App) error {
		a.staticURLPath = path
		return nil
	}
}

// WithStaticHost pins the static rule to a host. Only valid together with
// WithHostMatching.
func WithStaticHost(host string) Option {
	return func(ctx context.Context, a *App) error {
		a.staticHost = host
		return nil
	}
}

// WithHostMatching allows rules to pin an explicit host, checked per request.
func WithHostMatching() Option {
	return func(ctx context.Context, a *App) error {
		a.hostMatching = true
		return nil
	}
}

// WithSubdomainMatching allows rules to pin a subdomain of the server name,
// checked per request. Requires WithServerName.
func WithSubdomainMatching() Option {
	return func(ctx context.Context, a *App) error {
		a.subdomainMatching = true
		return nil
	}
}

// WithServerName sets the canonical host of the application, e.g.
// "example.com:5000". Subdomain rules match against it.
func WithServerName(name string) Option {
	return func(ctx context.Context, a *App) error {
		a.serverName = name
		return nil
	}
}

// WithTemplateFolder sets the folder page templates live under, resolved
// against the root path when relative.
func WithTemplateFolder(folder string) Option {
	return func(ctx context.Context, a *App) error {
		a.templateFolder = folder
		return nil
	}
}

// WithRootPath overrides the discovered application root path.
func WithRootPath(path string) Option {
	return func(ctx context.Context, a *App) error {
		if !filepath.IsAbs(path) {
			var err error
			path, err = filepath.Abs(path)
			if err != nil {
				return err
			}
		}
		a.rootPath = path
		return nil
	}
}

// WithInstancePath sets the deploy-local folder for files that do not belong
// in version control. It must be absolute.
func WithInstancePath(path string) Option {
	return func(ctx context.Context, a *App) error {
		if !filepath.IsAbs(path) {
			return models.ErrInstancePathRelative
		}
		a.instancePath = path
		return nil
	}
}

// WithInstanceRelativeConfig makes relative config file paths resolve against
// the instance path instead of the root path.
func WithInstanceRelativeConfig() Option {
	return func(ctx context.Context, a *App) error {
		a.instanceRelativeConfig = true
		return nil
	}
}

// WithSecretKey sets the key used to sign session cookies.
func WithSecretKey(key string) Option {
	return func(ctx context.Context, a *App) error {
		a.secretKey = key
		return nil
	}
}

// WithDebug turns on debug mode: debug logging, router debug mode and the
// file watcher during Run. Never leave it on in production.
func WithDebug() Option {
	return func(ctx context.Context, a *App) error {
		a.debug = true
		return nil
	}
}

// WithLogFormat sets the structured log format, text or json.
func WithLogFormat(format string) Option {
	return func(ctx context.Context, a *App) error {
		common.SetLogFormat(format)
		return nil
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(ll string) Option {
	return func(ctx context.Context, a *App) error {
		common.SetLogLevel(ll)
		return nil
	}
}

// WithLogDest sets the log destination, e.g. stderr, file://, udp:// or
// tcp:// syslog locations.
func WithLogDest(to, prefix string) Option {
	return func(ctx context.Context, a *App) error {
		common.SetLogDest(to, prefix)
		return nil
	}
}

// WithListenHost sets the interface Run binds, overriding FLAGON_HOST.
func WithListenHost(host string) Option {
	return func(ctx context.Context, a *App) error {
		a.webListenHost = host
		return nil
	}
}

// WithListenPort sets the port Run binds, overriding FLAGON_PORT.
func WithListenPort(port int) Option {
	return func(ctx context.Context, a *App) error {
		a.webListenPort = port
		return nil
	}
}

// EnableShutdownEndpoint adds /shutdown to initiate a shutdown of the app.
// Cancel the context handed to Run for halt and the endpoint stops the dev
// server gracefully.
func EnableShutdownEndpoint(ctx context.Context, halt context.CancelFunc) Option {
	return func(ctx context.Context, a *App) error {
		a.Router.GET("/shutdown", a.handleShutdown(halt))
		return nil
	}
}

// LimitRequestBody wraps every http request to limit its size to the
// specified max bytes.
func LimitRequestBody(max int64) Option {
	return func(ctx context.Context, a *App) error {
		a.maxRequestSize = max
		return nil
	}
}

// WithMaxConns caps concurrently accepted connections during Run.
func WithMaxConns(n int) Option {
	return func(ctx context.Context, a *App) error {
		a.maxConns = n
		return nil
	}
}

// WithRateLimit caps request throughput at n requests per second. Zero
// disables the limiter.
func WithRateLimit(n float64) Option {
	return func(ctx context.Context, a *App) error {
		a.rateLimit = n
		return nil
	}
}

// WithMiddleware adds middleware wrapping every matched request.
func WithMiddleware(m ext.Middleware) Option {
	return func(ctx context.Context, a *App) error {
		a.AddMiddleware(m)
		return nil
	}
}

// WithMiddlewareFunc adds a middleware func wrapping every matched request.
func WithMiddlewareFunc(m ext.MiddlewareFunc) Option {
	return func(ctx context.Context, a *App) error {
		a.AddMiddlewareFunc(m)
		return nil
	}
}

// WithExtension runs an extension's Setup against the app.
func WithExtension(e ext.Extension) Option {
	return func(ctx context.Context, a *App) error {
		common.Logger(ctx).WithField("extension", e.Name()).Info("Setting up extension")
		return e.Setup(a)
	}
}

// WithRuleListener adds a listener notified around rule registration.
func WithRuleListener(l ext.RuleListener) Option {
	return func(ctx context.Context, a *App) error {
		a.AddRuleListener(l)
		return nil
	}
}

// WithAppListener adds a listener notified around the app lifecycle.
func WithAppListener(l ext.AppListener) Option {
	return func(ctx context.Context, a *App) error {
		a.AddAppListener(l)
		return nil
	}
}

// WithRequestListener adds a listener notified around each dispatch.
func WithRequestListener(l ext.RequestListener) Option {
	return func(ctx context.Context, a *App) error {
		a.AddRequestListener(l)
		return nil
	}
}
