package ext

import (
	"net/http"
)

// Middleware wraps one http.Handler in another. The request continues only
// if the returned handler calls next, not calling it short-circuits.
type Middleware interface {
	Handle(next http.Handler) http.Handler
}

// MiddlewareFunc lets a plain function act as Middleware.
type MiddlewareFunc func(next http.Handler) http.Handler

// Handle calls m.
func (m MiddlewareFunc) Handle(next http.Handler) http.Handler {
	return m(next)
}
