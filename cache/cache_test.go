package cache

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingView(renders *int64, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(renders, 1)
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "render %d", n)
	}
}

func get(handler http.HandlerFunc, method, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(method, url, nil))
	return rec
}

func TestCachedServesFromCache(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(0, countingView(&renders, 0))

	first := get(handler, "GET", "http://x/page?a=1")
	second := get(handler, "GET", "http://x/page?a=1")

	if renders != 1 {
		t.Errorf("Expected one render but got %d", renders)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("Expected the cached body replayed but got %q then %q",
			first.Body.String(), second.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected the content type replayed but got %q", ct)
	}

	// a different query string is a different page
	get(handler, "GET", "http://x/page?a=2")
	if renders != 2 {
		t.Errorf("Expected the other query rendered but got %d renders", renders)
	}
}

func TestCachedExpires(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(30*time.Millisecond, countingView(&renders, 0))

	get(handler, "GET", "http://x/page")
	time.Sleep(100 * time.Millisecond)
	get(handler, "GET", "http://x/page")

	if renders != 2 {
		t.Errorf("Expected a re-render after expiry but got %d", renders)
	}
}

func TestCachedBypassesWrites(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(0, countingView(&renders, 0))

	get(handler, "POST", "http://x/page")
	get(handler, "POST", "http://x/page")

	if renders != 2 {
		t.Errorf("Expected writes to bypass the cache but got %d renders", renders)
	}
}

func TestCachedSkipsErrorResponses(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(0, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&renders, 1)
		http.Error(w, "broken", http.StatusInternalServerError)
	})

	rec := get(handler, "GET", "http://x/page")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected the error passed through but got %d", rec.Code)
	}
	get(handler, "GET", "http://x/page")
	if renders != 2 {
		t.Errorf("Expected errors to stay out of the cache but got %d renders", renders)
	}
}

func TestCachedHeadOmitsBody(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(0, countingView(&renders, 0))

	get(handler, "GET", "http://x/page")
	rec := get(handler, "HEAD", "http://x/page")

	if renders != 1 {
		t.Errorf("Expected the HEAD served from cache but got %d renders", renders)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("Expected no body on HEAD but got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected headers on HEAD but got content type %q", ct)
	}
}

func TestCachedCollapsesConcurrentMisses(t *testing.T) {
	var renders int64
	handler := New(time.Minute, 0).Cached(0, countingView(&renders, 50*time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			get(handler, "GET", "http://x/page")
		}()
	}
	wg.Wait()

	if renders != 1 {
		t.Errorf("Expected concurrent misses to collapse into one render but got %d", renders)
	}
}

func TestDeleteEvicts(t *testing.T) {
	var renders int64
	c := New(time.Minute, 0)
	handler := c.Cached(0, countingView(&renders, 0))

	get(handler, "GET", "http://x/page")
	c.Delete("/page")
	get(handler, "GET", "http://x/page")

	if renders != 2 {
		t.Errorf("Expected a re-render after eviction but got %d", renders)
	}
}
