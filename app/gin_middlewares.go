// This is middleware we're using for the entire engine.

package app

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
	"golang.org/x/time/rate"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/id"
	"github.com/flagonhq/flagon/models"
)

// RIDProvider is used to generate request IDs
type RIDProvider struct {
	HeaderName   string              // the header the request id is read from on the incoming request
	RIDGenerator func(string) string // function to generate the request id
}

const maxRIDLength = 32

// defaultRIDGenerator keeps an incoming id, truncated, and mints one
// otherwise.
func defaultRIDGenerator(incoming string) string {
	if incoming == "" {
		return id.New().String()
	}
	if len(incoming) > maxRIDLength {
		incoming = incoming[:maxRIDLength]
	}
	return incoming
}

// WithRIDProvider will generate request ids for each http request using the
// given generator.
func WithRIDProvider(ridProvider *RIDProvider) Option {
	return func(ctx context.Context, a *App) error {
		a.Router.Use(withRIDProvider(ridProvider))
		return nil
	}
}

func withRIDProvider(ridp *RIDProvider) func(c *gin.Context) {
	return func(c *gin.Context) {
		rid := ridp.RIDGenerator(c.Request.Header.Get(ridp.HeaderName))
		ctx := common.WithRequestID(c.Request.Context(), rid)
		// set the rid on the logger so it shows up on every line for this request
		l := common.Logger(ctx).WithFields(logrus.Fields{common.RequestIDContextKey: rid})
		ctx = common.WithLogger(ctx, l)
		c.Writer.Header().Set(ridp.HeaderName, rid)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{"action": path.Base(c.HandlerName())}
	for _, param := range c.Params {
		fields[common.NormalizeLogField(param.Key)] = param.Value
	}
	return fields
}

func loggerWrap(c *gin.Context) {
	ctx, _ := common.LoggerWithFields(c.Request.Context(), extractFields(c))
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func panicWrap(c *gin.Context) {
	defer func(c *gin.Context) {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("flagon: %v", rec)
			}
			handleErrorResponse(c, err)
			c.Abort()
		}
	}(c)
	c.Next()
}

func optionalCorsWrap(r *gin.Engine) {
	// By default no CORS are allowed unless one
	// or more Origins are defined by the FLAGON_CORS_ORIGINS
	// environment variable.
	corsStr := common.GetEnv(EnvCORSOrigins, "")
	if len(corsStr) > 0 {
		origins := strings.Split(strings.Replace(corsStr, " ", "", -1), ",")

		corsConfig := cors.DefaultConfig()
		if origins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = origins
		}

		corsHeaders := common.GetEnv(EnvCORSHeaders, "")
		if len(corsHeaders) > 0 {
			headers := strings.Split(strings.Replace(corsHeaders, " ", "", -1), ",")
			corsConfig.AllowHeaders = headers
		}

		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "HEAD", "DELETE", "OPTIONS"}

		logrus.Infof("CORS enabled for domains: %s", origins)

		r.Use(cors.New(corsConfig))
	}
}

func limitRequestBody(max int64) func(c *gin.Context) {
	return func(c *gin.Context) {
		cl := c.Request.ContentLength
		if cl > max {
			// deny this quickly, instead of letting it get lopped off
			handleErrorResponse(c, errTooBig{cl, max})
			c.Abort()
			return
		}

		// if no Content-Length specified, limit how many bytes we read and
		// error if we hit the max. read http.MaxBytesReader for gritty details
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// models.APIError
type errTooBig struct {
	n, max int64
}

func (e errTooBig) Code() int { return http.StatusRequestEntityTooLarge }
func (e errTooBig) Error() string {
	return fmt.Sprintf("Content-Length too large for this server, %d > max %d", e.n, e.max)
}

// rateLimitWrap sheds load above n requests per second, with a burst of the
// same size.
func rateLimitWrap(n float64) func(c *gin.Context) {
	limiter := rate.NewLimiter(rate.Limit(n), int(n)+1)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			handleErrorResponse(c, models.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}

func traceWrap(c *gin.Context) {
	ctx, span := trace.StartSpan(c.Request.Context(), "serve_http")
	defer span.End()

	span.AddAttributes(
		trace.StringAttribute("http.path", c.Request.URL.Path),
		trace.StringAttribute("http.method", c.Request.Method),
	)

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
