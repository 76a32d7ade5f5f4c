package app

import (
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gin-gonic/gin"
)

// expvar only mounts its handler on the default mux, the JSON assembly is
// redone here.
func handleExpvar(w http.ResponseWriter, r *http.Request) {
	var vars []string
	expvar.Do(func(kv expvar.KeyValue) {
		vars = append(vars, fmt.Sprintf("%q: %s", kv.Key, kv.Value))
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n%s\n}\n", strings.Join(vars, ",\n"))
}

// profilerSetup mounts the runtime profiler and expvar under prefix.
func profilerSetup(engine *gin.Engine, prefix string) {
	g := engine.Group(prefix)

	g.Any("/vars", gin.WrapF(handleExpvar))
	g.Any("/pprof/", gin.WrapF(pprof.Index))
	g.Any("/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	g.Any("/pprof/profile", gin.WrapF(pprof.Profile))
	g.Any("/pprof/symbol", gin.WrapF(pprof.Symbol))
	g.Any("/pprof/trace", gin.WrapF(pprof.Trace))
	for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		g.Any("/pprof/"+p, gin.WrapF(pprof.Handler(p).ServeHTTP))
	}
}
