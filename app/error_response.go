package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/status"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/models"
)

// ErrInternalServerError returned when something exceptional happens.
var ErrInternalServerError = errors.New("internal server error")

func simpleError(err error) *models.Error {
	return &models.Error{Message: err.Error()}
}

// RegisterErrorHandler installs a handler serving responses with the given
// status code in place of the standard JSON error body. The original error
// message travels on the request context, see ErrorFromRequest.
func (a *App) RegisterErrorHandler(code int, handler http.Handler) {
	a.mu.Lock()
	a.errorHandlers[code] = handler
	a.mu.Unlock()
}

func (a *App) errorHandler(code int) http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errorHandlers[code]
}

type errCtxKey struct{}

// ErrorFromRequest returns the error a registered error handler is being
// invoked for.
func ErrorFromRequest(r *http.Request) error {
	e, _ := r.Context().Value(errCtxKey{}).(error)
	return e
}

func handleErrorResponse(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if a := appFromContext(ctx); a != nil {
		if code, ok := errorCode(ctx, err); ok {
			if h := a.errorHandler(code); h != nil {
				r := c.Request.WithContext(context.WithValue(ctx, errCtxKey{}, err))
				c.Status(code)
				h.ServeHTTP(c.Writer, r)
				return
			}
		}
	}
	HandleErrorResponse(ctx, c.Writer, err)
}

// HandleErrorResponse used to handle response errors in the same way.
func HandleErrorResponse(ctx context.Context, w http.ResponseWriter, err error) {
	statuscode, err2 := errorResponse(ctx, err)
	if err2 == nil {
		// client went away, nothing worth writing
		w.WriteHeader(statuscode)
		return
	}
	WriteError(ctx, w, statuscode, err2)
}

// errorResponse maps an error onto a status code and the error to expose. A
// nil error return means write the status with no body.
func errorResponse(ctx context.Context, err error) (int, error) {
	log := common.Logger(ctx)

	if ctx.Err() == context.Canceled {
		log.Info("client context cancelled")
		return models.ErrClientCancel.Code(), nil
	}

	if e, ok := err.(models.APIError); ok {
		if e.Code() >= 500 {
			log.WithFields(logrus.Fields{"code": e.Code()}).WithError(e).Error("api error")
		}
		return e.Code(), err
	}
	if isGRPCError(err) {
		log.WithError(err).Info("gRPC error received")
		return http.StatusInternalServerError, ErrInternalServerError
	}
	log.WithError(err).WithFields(logrus.Fields{"stack": string(debug.Stack())}).Error("internal server error")
	return http.StatusInternalServerError, ErrInternalServerError
}

// errorCode is errorResponse without the logging side effects, for looking up
// registered error handlers.
func errorCode(ctx context.Context, err error) (int, bool) {
	if ctx.Err() == context.Canceled {
		return 0, false
	}
	if e, ok := err.(models.APIError); ok {
		return e.Code(), true
	}
	if isGRPCError(err) {
		return http.StatusInternalServerError, true
	}
	return http.StatusInternalServerError, true
}

// WriteError easy way to do standard error response, but can set statuscode
// and error message easier than handleErrorResponse
func WriteError(ctx context.Context, w http.ResponseWriter, statuscode int, err error) {
	log := common.Logger(ctx)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statuscode)
	err = json.NewEncoder(w).Encode(simpleError(err))
	if err != nil {
		log.WithError(err).Errorln("error encoding error json")
	}
}

// isGRPCError inspects the error to verify if it is a gRPC status, so errors
// bubbling out of gRPC backed views don't leak internals.
func isGRPCError(err error) bool {
	if _, isAPI := err.(models.APIError); isAPI {
		return false
	}
	s, ok := status.FromError(err)
	return ok && s.Code() != 0
}
