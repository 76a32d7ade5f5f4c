package sessions

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flagonhq/flagon/models"
)

func requestContext() context.Context { return context.Background() }

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "http://127.0.0.1:5000/", nil)
	if c != nil {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func TestSessionTracksModification(t *testing.T) {
	s := New()
	if !s.IsNew() || s.Modified() || !s.Empty() {
		t.Errorf("Expected a fresh untouched session but got new=%v modified=%v empty=%v",
			s.IsNew(), s.Modified(), s.Empty())
	}

	s.Delete("missing")
	if s.Modified() {
		t.Error("Expected deleting a missing key to not mark the session")
	}

	s.Set("user", "bo")
	if !s.Modified() || s.GetString("user") != "bo" {
		t.Errorf("Expected the set value tracked but got modified=%v user=%q",
			s.Modified(), s.GetString("user"))
	}

	s.Clear()
	if !s.Empty() {
		t.Error("Expected a cleared session to be empty")
	}
}

func TestNewCookieStoreRequiresSecret(t *testing.T) {
	_, err := NewCookieStore("")
	if err != models.ErrMissingSecretKey {
		t.Errorf("Expected ErrMissingSecretKey but got %v", err)
	}
}

func TestCookieStoreRoundTrip(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	s.Set("user", "bo")
	s.Set("count", 3)

	rec := httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, cs.CookieName)
	if c == nil || c.Value == "" {
		t.Fatal("Expected a session cookie to be set")
	}
	if !c.HttpOnly {
		t.Error("Expected the cookie to be http-only")
	}

	s2, err := cs.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	if s2.IsNew() {
		t.Error("Expected a loaded session to not be new")
	}
	if s2.GetString("user") != "bo" {
		t.Errorf("Expected the user back but got %q", s2.GetString("user"))
	}
	// numbers come back as float64, that is the JSON deal
	if v, _ := s2.Get("count"); v != float64(3) {
		t.Errorf("Expected the count back as float64 but got %T %v", v, v)
	}
}

func TestCookieStoreRejectsTampering(t *testing.T) {
	cs, err := NewCookieStore("right-secret")
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewCookieStore("wrong-secret")
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	s.Set("user", "mallory")
	rec := httptest.NewRecorder()
	if err := other.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, other.CookieName)

	for i, cookie := range []*http.Cookie{
		c, // signed with another key
		{Name: cs.CookieName, Value: "garbage"},
	} {
		_, err = cs.Open(requestWithCookie(cookie))
		apiErr, ok := err.(models.APIError)
		if !ok || apiErr.Code() != models.ErrSessionInvalid.Code() {
			t.Errorf("Test %d: Expected the cookie rejected but got %v", i, err)
		}
	}
}

func TestCookieStoreExpiry(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	cs.Lifetime = -1 * time.Hour

	s := New()
	s.Set("user", "bo")
	rec := httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, cs.CookieName)

	_, err = cs.Open(requestWithCookie(c))
	apiErr, ok := err.(models.APIError)
	if !ok || apiErr.Code() != models.ErrSessionExpired.Code() {
		t.Errorf("Expected the session expired but got %v", err)
	}
}

func TestCookieStoreUntouchedStaysQuiet(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	s.Set("user", "bo")
	rec := httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, cs.CookieName)

	s2, err := cs.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s2); err != nil {
		t.Fatal(err)
	}
	if got := sessionCookie(t, rec, cs.CookieName); got != nil {
		t.Errorf("Expected an untouched session to not reissue its cookie but got %v", got)
	}
}

func TestCookieStoreClearedDropsCookie(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	s.Set("user", "bo")
	rec := httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, cs.CookieName)

	s2, err := cs.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	s2.Clear()
	rec = httptest.NewRecorder()
	if err := cs.Save(requestContext(), rec, s2); err != nil {
		t.Fatal(err)
	}
	dropped := sessionCookie(t, rec, cs.CookieName)
	if dropped == nil || dropped.Value != "" || dropped.MaxAge >= 0 {
		t.Errorf("Expected the cookie dropped but got %v", dropped)
	}
}

func TestMiddlewareRoundTrip(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(cs).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromRequest(r)
		if r.URL.Path == "/login" {
			s.Set("user", "bo")
		}
		fmt.Fprint(w, s.GetString("user"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "http://127.0.0.1:5000/login", nil))
	if rec.Body.String() != "bo" {
		t.Errorf("Expected the view to see its own write but got %q", rec.Body.String())
	}
	c := sessionCookie(t, rec, cs.CookieName)
	if c == nil {
		t.Fatal("Expected the middleware to set the cookie")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithCookie(c))
	if rec.Body.String() != "bo" {
		t.Errorf("Expected the session to carry over but got %q", rec.Body.String())
	}
}

func TestMiddlewareSurvivesBadCookies(t *testing.T) {
	cs, err := NewCookieStore("test-secret")
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(cs).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := FromRequest(r); s == nil || !s.IsNew() {
			t.Error("Expected a fresh fallback session")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithCookie(&http.Cookie{Name: cs.CookieName, Value: "garbage"}))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected the request served despite the cookie but got %d", rec.Code)
	}
}
