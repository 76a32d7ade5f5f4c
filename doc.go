/*
Package flagon is a small web application framework: a URL rule registry,
a dispatcher and a development server behind one application object.

Views are plain http handlers registered under URL patterns. Patterns use
angle bracket parameters, optionally typed:

	a := flagon.New(ctx, "hello")

	a.Route("/")(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Hello, World!")
	})

	a.Route("/user/<name>")(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Hello, %s!", flagon.Param(r, "name"))
	})

	a.Run(ctx)

Route registers on the way through and hands the view back untouched, so a
view stays a callable function whether it is registered or not. Registration
problems surface on App.Err and stop Run, nothing panics over a bad pattern.

Rules default to GET with HEAD riding along, and every path answers OPTIONS
with an Allow header until an explicit OPTIONS view takes over. URLFor builds
URLs back out of the registry, so handlers never hardcode their own paths.

Static files serve from the static folder under /static out of the box,
sessions, response caching and a settings registry live in their own
packages, and Run in debug mode watches the source tree and restarts the
process on change.

Environment variables configure the NewFromEnv flavor, FLAGON_PORT,
FLAGON_LOG_LEVEL and friends, see the app package constants.
*/
package flagon
