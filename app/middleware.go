package app

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagonhq/flagon/ext"
)

// AddMiddleware adds middleware wrapping every matched request, innermost
// added last. Middleware composes plain http.Handlers so anything written
// against net/http drops in.
func (a *App) AddMiddleware(m ext.Middleware) {
	a.middlewares = append(a.middlewares, m)
}

// AddMiddlewareFunc adds a middleware func wrapping every matched request.
func (a *App) AddMiddlewareFunc(m ext.MiddlewareFunc) {
	a.AddMiddleware(m)
}

// middlewareWrapper runs the registered middleware chain and hands control
// back to the router at the end of it.
func (a *App) middlewareWrapper() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.middlewares) == 0 {
			c.Next()
			return
		}

		served := false
		last := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = true
			// a middleware may have swapped the request or wrapped the
			// writer, the view has to see both
			c.Request = r
			if w != http.ResponseWriter(c.Writer) {
				c.Writer = &switchWriter{ResponseWriter: c.Writer, w: w}
			}
			c.Next()
		})

		chain := http.Handler(last)
		for i := len(a.middlewares) - 1; i >= 0; i-- {
			chain = a.middlewares[i].Handle(chain)
		}
		chain.ServeHTTP(c.Writer, c.Request)

		if !served {
			// the chain answered without reaching the router
			c.Abort()
		}
	}
}

// switchWriter routes writes through a middleware's wrapped writer while the
// embedded original keeps answering the router's status and size queries.
// Middleware always delegates down to the writer it was handed, so the
// original stays the final sink and its accounting stays right.
type switchWriter struct {
	gin.ResponseWriter
	w http.ResponseWriter
}

func (s *switchWriter) Write(b []byte) (int, error) { return s.w.Write(b) }

func (s *switchWriter) WriteString(str string) (int, error) { return io.WriteString(s.w, str) }

func (s *switchWriter) WriteHeader(code int) { s.w.WriteHeader(code) }

func (s *switchWriter) Header() http.Header { return s.w.Header() }
