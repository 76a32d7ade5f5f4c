package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flagonhq/flagon/models"
)

func testSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ss, err := NewSQLStore(context.Background(),
		"sqlite3://"+filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ss.Close() })
	return ss
}

func TestNewSQLStoreRejectsUnknownSchemes(t *testing.T) {
	_, err := NewSQLStore(context.Background(), "redis://localhost:6379/0")
	if err == nil {
		t.Error("Expected an unknown scheme to be rejected")
	}
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ss := testSQLStore(t)

	s := New()
	s.Set("user", "bo")

	rec := httptest.NewRecorder()
	if err := ss.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	if s.ID() == "" {
		t.Fatal("Expected the save to assign an id")
	}
	c := sessionCookie(t, rec, ss.CookieName)
	if c == nil {
		t.Fatal("Expected a session cookie to be set")
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		t.Errorf("Expected the cookie to carry only an id but got %q", c.Value)
	}

	s2, err := ss.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	if s2.ID() != s.ID() || s2.GetString("user") != "bo" {
		t.Errorf("Expected the stored session back but got id=%q user=%q",
			s2.ID(), s2.GetString("user"))
	}
}

func TestSQLStoreUnknownIdStartsFresh(t *testing.T) {
	ss := testSQLStore(t)

	s, err := ss.Open(requestWithCookie(&http.Cookie{
		Name: ss.CookieName, Value: uuid.New().String(),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsNew() {
		t.Error("Expected an unknown id to start a fresh session")
	}
}

func TestSQLStoreRejectsNonIdCookies(t *testing.T) {
	ss := testSQLStore(t)

	_, err := ss.Open(requestWithCookie(&http.Cookie{
		Name: ss.CookieName, Value: "not-a-uuid",
	}))
	apiErr, ok := err.(models.APIError)
	if !ok || apiErr.Code() != models.ErrSessionInvalid.Code() {
		t.Errorf("Expected the cookie rejected but got %v", err)
	}
}

func TestSQLStoreExpiry(t *testing.T) {
	ss := testSQLStore(t)
	ss.Lifetime = -1 * time.Hour

	s := New()
	s.Set("user", "bo")
	rec := httptest.NewRecorder()
	if err := ss.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, ss.CookieName)

	_, err := ss.Open(requestWithCookie(c))
	apiErr, ok := err.(models.APIError)
	if !ok || apiErr.Code() != models.ErrSessionExpired.Code() {
		t.Fatalf("Expected the session expired but got %v", err)
	}

	// the expired row is gone, the same cookie now starts fresh
	s2, err := ss.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	if !s2.IsNew() {
		t.Error("Expected the reaped session to start fresh")
	}
}

func TestSQLStoreClearedDropsRowAndCookie(t *testing.T) {
	ss := testSQLStore(t)

	s := New()
	s.Set("user", "bo")
	rec := httptest.NewRecorder()
	if err := ss.Save(requestContext(), rec, s); err != nil {
		t.Fatal(err)
	}
	c := sessionCookie(t, rec, ss.CookieName)

	s2, err := ss.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	s2.Clear()
	rec = httptest.NewRecorder()
	if err := ss.Save(requestContext(), rec, s2); err != nil {
		t.Fatal(err)
	}
	dropped := sessionCookie(t, rec, ss.CookieName)
	if dropped == nil || dropped.MaxAge >= 0 {
		t.Errorf("Expected the cookie dropped but got %v", dropped)
	}

	s3, err := ss.Open(requestWithCookie(c))
	if err != nil {
		t.Fatal(err)
	}
	if !s3.IsNew() {
		t.Error("Expected the cleared session gone from the store")
	}
}

func TestSQLStoreCleanup(t *testing.T) {
	ss := testSQLStore(t)

	live := New()
	live.Set("user", "alive")
	if err := ss.Save(requestContext(), httptest.NewRecorder(), live); err != nil {
		t.Fatal(err)
	}

	ss.Lifetime = -1 * time.Hour
	dead := New()
	dead.Set("user", "gone")
	if err := ss.Save(requestContext(), httptest.NewRecorder(), dead); err != nil {
		t.Fatal(err)
	}
	ss.Lifetime = DefaultLifetime

	if err := ss.Cleanup(requestContext()); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := ss.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected only the live session to survive cleanup but got %d rows", count)
	}
}
