package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/ext"
	"github.com/flagonhq/flagon/models"
)

// App is the central registry object of a flagon application. It holds the
// view functions, the URL rules, configuration, and the handful of folder
// conventions relative to the application's root path. One is created per
// application, handed around to everything that registers rules on it, and
// finally served with Run. App implements http.Handler so tests can drive it
// with httptest directly.
type App struct {
	// Router is the underlying engine. It is exported so extensions can
	// bind things we don't have lifecycle hooks for, use with care.
	Router *gin.Engine

	importName string
	rootPath   string

	staticFolder  string
	staticURLPath string
	staticHost    string

	templateFolder string

	instancePath           string
	instanceRelativeConfig bool

	hostMatching      bool
	subdomainMatching bool
	serverName        string

	secretKey string
	debug     bool

	cfg *Config

	mu     sync.Mutex
	frozen bool
	// rules by endpoint, in registration order per endpoint
	rules map[string][]*models.Rule
	order []*models.Rule
	views map[string]http.Handler
	// bound tracks what each (router path, method) pair resolves to so
	// duplicates are rejected before the router panics on a second binding
	bound map[string]map[string]*binding
	errs  []error

	middlewares      []ext.Middleware
	ruleListeners    *ruleListeners
	appListeners     *appListeners
	requestListeners *requestListeners

	errorHandlers map[int]http.Handler

	promExporter *prometheus.Exporter

	maxRequestSize int64
	maxConns       int
	rateLimit      float64

	webListenHost string
	webListenPort int

	halt           context.CancelFunc
	restartPending bool
}

// New creates an application registry named after importName, typically the
// module path or binary name, applying any options given. Option errors are
// fatal, they are programming errors caught at boot.
func New(ctx context.Context, importName string, opts ...Option) *App {
	log := common.Logger(ctx)
	if importName == "" {
		log.Fatal("flagon: import name is required to locate the application root")
	}

	a := &App{
		Router:         gin.New(),
		importName:     importName,
		rootPath:       findRootPath(),
		staticFolder:   DefaultStaticFolder,
		templateFolder: DefaultTemplateFolder,
		rules:          make(map[string][]*models.Rule),
		views:          make(map[string]http.Handler),
		bound:          make(map[string]map[string]*binding),
		errorHandlers:  make(map[int]http.Handler),

		ruleListeners:    new(ruleListeners),
		appListeners:     new(appListeners),
		requestListeners: new(requestListeners),
	}
	a.Router.HandleMethodNotAllowed = true

	// middleware first, options may add their own and everything has to be
	// in place before the first rule binds
	a.Router.Use(a.appWrap, panicWrap, loggerWrap)
	optionalCorsWrap(a.Router)

	for _, opt := range opts {
		if err := opt(ctx, a); err != nil {
			log.WithError(err).Fatal("Error during app options processing")
		}
	}

	a.setDefaults(ctx)

	if a.staticFolder != "" && (a.staticHost != "") != a.hostMatching {
		log.WithError(models.ErrStaticHostMismatch).Fatal("Invalid static host / host matching combination")
	}

	a.bindHandlers(ctx)

	if a.staticFolder != "" {
		err := a.AddURLRule(a.staticURLPath+"/<path:filename>", "static",
			http.HandlerFunc(a.handleStatic), OnHost(a.staticHost))
		if err != nil {
			log.WithError(err).Fatal("Error binding the static file rule")
		}
	}

	return a
}

// NewFromEnv creates an application configured from the environment, the way
// the dev server entrypoint does it.
func NewFromEnv(ctx context.Context, importName string, opts ...Option) *App {
	envOpts := []Option{
		WithLogFormat(common.GetEnv(EnvLogFormat, DefaultLogFormat)),
		WithLogLevel(common.GetEnv(EnvLogLevel, DefaultLogLevel)),
		WithLogDest(common.GetEnv(EnvLogDest, DefaultLogDest), common.GetEnv(EnvLogPrefix, "")),
		WithServerName(common.GetEnv(EnvServerName, "")),
		WithSecretKey(common.GetEnv(EnvSecretKey, "")),
		LimitRequestBody(int64(common.GetEnvInt(EnvMaxRequestSize, 0))),
		WithRateLimit(float64(common.GetEnvInt(EnvRateLimit, 0))),
		WithRIDProvider(&RIDProvider{
			HeaderName:   common.GetEnv(EnvRIDHeader, DefaultRIDHeader),
			RIDGenerator: defaultRIDGenerator,
		}),
		WithPrometheus(),
		WithZipkin(common.GetEnv(EnvZipkinURL, "")),
	}
	if common.GetEnvBool(EnvDebug, false) {
		envOpts = append(envOpts, WithDebug())
	}

	return New(ctx, importName, append(envOpts, opts...)...)
}

// findRootPath locates the directory of the source file constructing the
// app, which mirrors deriving the root from the import name. Binaries run
// away from their source tree fall back to the working directory.
func findRootPath() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		// skip our own constructors, including the root facade
		if !strings.HasPrefix(frame.Function, "github.com/flagonhq/flagon/app.") &&
			!strings.HasPrefix(frame.Function, "github.com/flagonhq/flagon.") {
			dir := filepath.Dir(frame.File)
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				return dir
			}
			break
		}
		if !more {
			break
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		logrus.WithError(err).Fatal("cannot determine a root path for the application")
	}
	return cwd
}

func (a *App) setDefaults(ctx context.Context) {
	if a.staticURLPath == "" && a.staticFolder != "" {
		a.staticURLPath = "/" + filepath.Base(a.staticFolder)
	}
	if a.instancePath == "" {
		a.instancePath = filepath.Join(a.rootPath, DefaultInstanceFolder)
	}
	if a.debug {
		common.SetLogLevel("debug")
	}
}

// ImportName returns the name the application was created under.
func (a *App) ImportName() string { return a.importName }

// RootPath returns the absolute folder the application resources live under.
func (a *App) RootPath() string { return a.rootPath }

// StaticFolder returns the absolute folder static files are served from, or
// empty when static serving is disabled.
func (a *App) StaticFolder() string {
	if a.staticFolder == "" {
		return ""
	}
	if filepath.IsAbs(a.staticFolder) {
		return a.staticFolder
	}
	return filepath.Join(a.rootPath, a.staticFolder)
}

// StaticURLPath returns the URL prefix static files answer on, or empty when
// static serving is disabled.
func (a *App) StaticURLPath() string {
	if a.staticFolder == "" {
		return ""
	}
	return a.staticURLPath
}

// StaticHost returns the host the static rule is pinned to, if any.
func (a *App) StaticHost() string { return a.staticHost }

// HostMatching reports whether rules may pin an explicit host.
func (a *App) HostMatching() bool { return a.hostMatching }

// SubdomainMatching reports whether rules may pin a subdomain of the
// configured server name.
func (a *App) SubdomainMatching() bool { return a.subdomainMatching }

// TemplateFolder returns the absolute folder page templates live under.
func (a *App) TemplateFolder() string {
	if a.templateFolder == "" {
		return ""
	}
	if filepath.IsAbs(a.templateFolder) {
		return a.templateFolder
	}
	return filepath.Join(a.rootPath, a.templateFolder)
}

// InstancePath returns the deploy-local folder for files that do not belong
// in version control, config and databases mostly.
func (a *App) InstancePath() string { return a.instancePath }

// InstanceRelativeConfig reports whether relative config file paths resolve
// against the instance path instead of the root path.
func (a *App) InstanceRelativeConfig() bool { return a.instanceRelativeConfig }

// ServerName returns the configured canonical host, if any.
func (a *App) ServerName() string { return a.serverName }

// SecretKey returns the key used to sign sessions. Empty disables sessions.
func (a *App) SecretKey() string { return a.secretKey }

// Debug reports whether the application runs in debug mode.
func (a *App) Debug() bool { return a.debug }

// Err returns the errors collected from rule registrations made through
// decorators, joined. Decorators hand the view back instead of an error, so
// a failed registration surfaces here and at Run.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.errs) == 0 {
		return nil
	}
	return errors.Join(a.errs...)
}

func (a *App) recordErr(err error) {
	logrus.WithError(err).Error("url rule registration failed")
	a.mu.Lock()
	a.errs = append(a.errs, err)
	a.mu.Unlock()
}

// ServeHTTP dispatches a request through the application, making App usable
// anywhere an http.Handler is.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}

func (a *App) freeze() {
	a.mu.Lock()
	a.frozen = true
	a.mu.Unlock()
}
