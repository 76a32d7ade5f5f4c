// Package cache memoizes view responses so expensive pages render once per
// expiry window instead of once per request.
package cache

import (
	"bytes"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache holds memoized responses keyed by request URL, path and query
// included.
type Cache struct {
	cache *gocache.Cache
	group singleflight.Group
}

// New creates a cache. defaultTTL applies to Cached calls passing 0,
// cleanupInterval is how often expired entries are swept, 0 disables the
// sweeper and entries just expire lazily.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// response is what an entry keeps of a view's output.
type response struct {
	status      int
	contentType string
	body        []byte
}

// Cached wraps view so its responses serve from the cache for ttl, 0 for the
// cache default. Only GET and HEAD consult the cache, other methods pass
// straight through. Only 2xx responses enter the cache, errors are replayed
// to whoever waited on them but the next request renders again. Concurrent
// misses on one URL collapse into a single view execution.
func (c *Cache) Cached(ttl time.Duration, view http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			view(w, r)
			return
		}

		key := r.URL.RequestURI()
		if e, ok := c.cache.Get(key); ok {
			replay(w, r, e.(*response))
			return
		}

		v, _, _ := c.group.Do(key, func() (interface{}, error) {
			rec := newRecorder()
			view(rec, r)
			resp := rec.response()
			if resp.status >= 200 && resp.status < 300 {
				c.cache.Set(key, resp, ttl)
			}
			return resp, nil
		})
		replay(w, r, v.(*response))
	}
}

// Delete evicts the entry for key, the request URL with query as served.
func (c *Cache) Delete(key string) { c.cache.Delete(key) }

// Flush evicts everything.
func (c *Cache) Flush() { c.cache.Flush() }

func replay(w http.ResponseWriter, r *http.Request, resp *response) {
	if resp.contentType != "" {
		w.Header().Set("Content-Type", resp.contentType)
	}
	w.WriteHeader(resp.status)
	if r.Method != http.MethodHead {
		w.Write(resp.body)
	}
}

// recorder captures a view's output off to the side while the caller's
// writer stays untouched until the verdict is in.
type recorder struct {
	header http.Header
	status int
	wrote  bool
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (rec *recorder) Header() http.Header { return rec.header }

func (rec *recorder) WriteHeader(code int) {
	if !rec.wrote {
		rec.status = code
		rec.wrote = true
	}
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.wrote = true
	return rec.body.Write(b)
}

func (rec *recorder) response() *response {
	return &response{
		status:      rec.status,
		contentType: rec.header.Get("Content-Type"),
		body:        rec.body.Bytes(),
	}
}
