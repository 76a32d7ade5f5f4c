package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/id"
)

// Run serves the application until the context is cancelled or a SIGINT or
// SIGTERM arrives, then drains connections and returns. The bind address
// comes from WithListenHost and WithListenPort, falling back to FLAGON_HOST
// and FLAGON_PORT, falling back to 127.0.0.1:5000.
//
// This is the development entrypoint. It refuses to start while rule
// registrations made through decorators have failed, those errors don't get
// to hide until the first request.
func (a *App) Run(ctx context.Context) error {
	log := common.Logger(ctx)

	if err := a.Err(); err != nil {
		return err
	}

	a.loadDotenv(ctx)

	host := a.webListenHost
	if host == "" {
		host = common.GetEnv(EnvHost, DefaultHost)
	}
	port := a.webListenPort
	if port == 0 {
		port = common.GetEnvInt(EnvPort, DefaultPort)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			// ids minted for request tracking stay unique across instances
			id.SetMachineIdHost(ip4, uint16(port))
		}
	}

	ctx, halt := contextWithSignal(ctx, os.Interrupt, syscall.SIGTERM)
	defer halt()
	a.setHalt(halt)

	if err := a.appListeners.BeforeAppStart(ctx); err != nil {
		return err
	}

	// the rule registry is read only from here on
	a.freeze()

	if a.debug {
		log.Warn("Debug mode is on. Do not leave the debug server running in production.")
		go a.watchForChanges(ctx, halt)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if a.maxConns > 0 {
		listener = netutil.LimitListener(listener, a.maxConns)
	}

	server := &http.Server{
		Handler:      a,
		ReadTimeout:  common.GetEnvDuration(EnvReadTimeout, 0),
		WriteTimeout: common.GetEnvDuration(EnvWriteTimeout, 0),
		IdleTimeout:  common.GetEnvDuration(EnvIdleTimeout, 60*time.Second),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	log.WithFields(logrus.Fields{"addr": addr, "app": a.importName}).Info("flagon serving")

	select {
	case err = <-serverErr:
		// Serve never returns nil
		halt()
	case <-ctx.Done():
		shutdownCtx := common.BackgroundContext(ctx)
		timeout := common.GetEnvDuration(EnvShutdownTimeout, 30*time.Second)
		if timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}
		err = server.Shutdown(shutdownCtx) // safe shutdown
		if err != nil {
			log.WithError(err).Error("server shutdown error")
		} else {
			log.Info("server shutdown")
		}
	}
	if err == http.ErrServerClosed {
		err = nil
	}

	if err2 := a.appListeners.AfterAppStop(context.Background()); err2 != nil {
		log.WithError(err2).Error("after app stop listener error")
	}

	if a.restartRequested() {
		return a.restart(log)
	}
	return err
}

// loadDotenv folds .env and .flagonenv from the root path into the
// environment before any of it is read, unless FLAGON_SKIP_DOTENV is set.
// Variables already present in the environment win.
func (a *App) loadDotenv(ctx context.Context) {
	if common.GetEnvBool(EnvSkipDotenv, false) {
		return
	}
	for _, name := range []string{".env", ".flagonenv"} {
		path := filepath.Join(a.rootPath, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			common.Logger(ctx).WithError(err).WithFields(logrus.Fields{"path": path}).
				Warn("could not load env file")
		}
	}
}

func (a *App) setHalt(halt context.CancelFunc) {
	a.mu.Lock()
	a.halt = halt
	a.mu.Unlock()
}

func contextWithSignal(ctx context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	newCTX, halt := context.WithCancel(ctx)
	c := make(chan os.Signal, 1)
	signal.Notify(c, signals...)
	go func() {
		for {
			select {
			case <-c:
				logrus.Info("Halting...")
				halt()
				return
			case <-ctx.Done():
				logrus.Info("Halting... Original server context canceled.")
				halt()
				return
			}
		}
	}()
	return newCTX, halt
}
