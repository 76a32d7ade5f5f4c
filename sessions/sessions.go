// Package sessions keeps per-user state between requests, carried by a
// browser cookie. The cookie store signs the whole payload into the cookie,
// the sql store keeps the payload server side and hands out an opaque id.
package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/ext"
)

const (
	// DefaultCookieName is the name the session travels under.
	DefaultCookieName = "session"
	// DefaultLifetime is how long a session stays valid, 31 days.
	DefaultLifetime = 31 * 24 * time.Hour
)

// Session is a key value bag scoped to one visitor. It is not safe for
// concurrent use, a session belongs to the request that opened it.
type Session struct {
	id       string
	values   map[string]interface{}
	fresh    bool
	modified bool
}

// New returns an empty fresh session.
func New() *Session {
	return &Session{values: make(map[string]interface{}), fresh: true}
}

func open(id string, values map[string]interface{}) *Session {
	if values == nil {
		values = make(map[string]interface{})
	}
	return &Session{id: id, values: values}
}

// ID returns the server side session id, empty for cookie backed sessions
// and for sessions that have not been saved yet.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was started by this request rather than
// loaded from a cookie.
func (s *Session) IsNew() bool { return s.fresh }

// Modified reports whether the session changed since it was opened. Only
// modified sessions are written back.
func (s *Session) Modified() bool { return s.modified }

// Get returns the value stored under key. Values round-trip through JSON, so
// numbers come back as float64.
func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string under key, or empty.
func (s *Session) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// Set stores a value under key and marks the session modified.
func (s *Session) Set(key string, value interface{}) {
	s.values[key] = value
	s.modified = true
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// Clear removes everything from the session. Saving a cleared session drops
// the cookie.
func (s *Session) Clear() {
	s.values = make(map[string]interface{})
	s.modified = true
}

// Empty reports whether the session holds no values.
func (s *Session) Empty() bool { return len(s.values) == 0 }

// Values returns the live value map. Mutations through it are not tracked,
// call Touch after changing nested state in place.
func (s *Session) Values() map[string]interface{} { return s.values }

// Touch marks the session modified without changing it.
func (s *Session) Touch() { s.modified = true }

// Store loads and persists sessions. Open never blocks the request on a bad
// cookie, it reports the problem and the middleware starts over fresh.
type Store interface {
	// Open returns the session the request carries, or a fresh one when
	// there is none.
	Open(r *http.Request) (*Session, error)
	// Save persists the session and sets the cookie on w. It has to run
	// before the response body starts, headers are gone after that.
	Save(ctx context.Context, w http.ResponseWriter, s *Session) error
}

type sessionCtxKey struct{}

// FromContext returns the request's session, nil when the session middleware
// is not installed.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// FromRequest returns the request's session, nil when the session middleware
// is not installed.
func FromRequest(r *http.Request) *Session {
	return FromContext(r.Context())
}

// Middleware opens the session before the view runs and saves it on the way
// out, right before the first byte of the response. A cookie the store
// rejects is logged and replaced by a fresh session, requests never fail on
// session problems.
func Middleware(store Store) ext.Middleware {
	return ext.MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			s, err := store.Open(r)
			if err != nil {
				common.Logger(ctx).WithError(err).Debug("session rejected, starting fresh")
				s = New()
			}

			sw := &saveOnWrite{ResponseWriter: w, ctx: ctx, store: store, session: s}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, sessionCtxKey{}, s)))
			// views that answer without a body still get their session saved
			sw.save()
		})
	})
}

// saveOnWrite persists the session when the response starts, so the cookie
// header makes it out before the body does.
type saveOnWrite struct {
	http.ResponseWriter
	ctx     context.Context
	store   Store
	session *Session
	saved   bool
}

func (w *saveOnWrite) save() {
	if w.saved {
		return
	}
	w.saved = true
	if err := w.store.Save(w.ctx, w.ResponseWriter, w.session); err != nil {
		common.Logger(w.ctx).WithError(err).Error("error saving session")
	}
}

func (w *saveOnWrite) WriteHeader(code int) {
	w.save()
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveOnWrite) Write(b []byte) (int, error) {
	w.save()
	return w.ResponseWriter.Write(b)
}
