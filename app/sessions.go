package app

import (
	"github.com/flagonhq/flagon/sessions"
)

// UseSessions installs the session middleware backed by store. Views reach
// their session through sessions.FromRequest.
func (a *App) UseSessions(store sessions.Store) {
	a.AddMiddleware(sessions.Middleware(store))
}

// UseCookieSessions installs cookie backed sessions signed with the app's
// secret key. Fails when no secret key is configured, unsigned sessions are
// not a thing.
func (a *App) UseCookieSessions() error {
	store, err := sessions.NewCookieStore(a.secretKey)
	if err != nil {
		return err
	}
	a.UseSessions(store)
	return nil
}
