package app

const (
	// EnvHost is the interface the dev server binds. Default 127.0.0.1.
	EnvHost = "FLAGON_HOST"
	// EnvPort is the port the dev server binds. Default 5000.
	EnvPort = "FLAGON_PORT"
	// EnvDebug turns on debug mode: debug logging, gin debug mode and the
	// file watcher.
	EnvDebug = "FLAGON_DEBUG"
	// EnvServerName is the canonical host name of the application, required
	// for subdomain matching.
	EnvServerName = "FLAGON_SERVER_NAME"
	// EnvSecretKey signs session cookies. Keep it out of source control,
	// the _FILE indirection is supported.
	EnvSecretKey = "FLAGON_SECRET_KEY"
	// EnvSkipDotenv disables loading .env and .flagonenv from Run.
	EnvSkipDotenv = "FLAGON_SKIP_DOTENV"

	EnvLogFormat = "FLAGON_LOG_FORMAT"
	EnvLogLevel  = "FLAGON_LOG_LEVEL"
	EnvLogDest   = "FLAGON_LOG_DEST"
	EnvLogPrefix = "FLAGON_LOG_PREFIX"

	// EnvRIDHeader is the header to propagate request ids from, a new id is
	// minted when absent.
	EnvRIDHeader = "FLAGON_RID_HEADER"

	// EnvCORSOrigins is a comma separated list of allowed origins. CORS is
	// off unless set.
	EnvCORSOrigins = "FLAGON_CORS_ORIGINS"
	// EnvCORSHeaders is a comma separated list of allowed headers.
	EnvCORSHeaders = "FLAGON_CORS_HEADERS"

	// EnvMaxRequestSize caps request bodies, in bytes. Unlimited unless set.
	EnvMaxRequestSize = "FLAGON_MAX_REQUEST_SIZE"
	// EnvMaxConns caps concurrent accepted connections. Unlimited unless set.
	EnvMaxConns = "FLAGON_MAX_CONNS"
	// EnvRateLimit is a per-second request rate cap. Off unless set.
	EnvRateLimit = "FLAGON_RATE_LIMIT"

	// EnvZipkinURL enables span export to a zipkin collector, e.g.
	// http://zipkin:9411/api/v2/spans.
	EnvZipkinURL = "FLAGON_ZIPKIN_URL"

	EnvShutdownTimeout = "FLAGON_SHUTDOWN_TIMEOUT"
	EnvReadTimeout     = "FLAGON_READ_TIMEOUT"
	EnvWriteTimeout    = "FLAGON_WRITE_TIMEOUT"
	EnvIdleTimeout     = "FLAGON_IDLE_TIMEOUT"

	DefaultHost      = "127.0.0.1"
	DefaultPort      = 5000
	DefaultLogFormat = "text"
	DefaultLogLevel  = "info"
	DefaultLogDest   = "stderr"
	DefaultRIDHeader = "X-Request-Id"

	// DefaultStaticFolder is resolved against the application root path.
	DefaultStaticFolder = "static"
	// DefaultTemplateFolder is resolved against the application root path.
	DefaultTemplateFolder = "templates"
	// DefaultInstanceFolder is resolved against the application root path
	// when no instance path is given.
	DefaultInstanceFolder = "instance"
)
