// flagon-demo is a kitchen sink server for poking at the framework: rules
// with typed parameters, sessions, response caching, static files and the
// metrics endpoint, all wired the way a real deployment would.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flagonhq/flagon"
	"github.com/flagonhq/flagon/cache"
	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/sessions"
)

func main() {
	ctx := context.Background()

	a := flagon.NewFromEnv(ctx, "flagon-demo")

	store, err := sessions.NewCookieStore(common.GetEnv("FLAGON_SECRET_KEY", "demo-secret"))
	if err != nil {
		logrus.WithError(err).Fatal("error creating session store")
	}
	a.UseSessions(store)

	pages := cache.New(30*time.Second, 5*time.Minute)

	// anonymous views need explicit endpoints, they have no name to default to
	a.Route("/", flagon.Endpoint("index"))(func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromRequest(r)
		n, _ := s.Get("visits")
		visits := int(0)
		if f, ok := n.(float64); ok {
			visits = int(f)
		}
		visits++
		s.Set("visits", visits)
		fmt.Fprintf(w, "Visit number %d. Styles at %s\n", visits, mustURL(a, "static", "css/site.css"))
	})

	a.Route("/user/<name>", flagon.Endpoint("user"))(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Hello, %s!\n", flagon.Param(r, "name"))
	})

	a.Route("/slow", flagon.Endpoint("slow"))(pages.Cached(10*time.Second, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprintf(w, "Rendered the hard way at %s\n", time.Now().Format(time.RFC3339))
	}))

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
}

func mustURL(a *flagon.App, endpoint string, filename string) string {
	u, err := a.URLFor(endpoint, map[string]string{"filename": filename})
	if err != nil {
		return "(static disabled)"
	}
	return u
}
