package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flagonhq/flagon/models"
)

// CookieStore keeps the whole session in the cookie itself, signed with the
// application's secret key as an HS256 JWT. Clients can read their session,
// they cannot forge one.
type CookieStore struct {
	secret []byte

	// CookieName is the cookie the session travels under.
	CookieName string
	// Lifetime bounds both the cookie and the token expiry.
	Lifetime time.Duration
	// Secure marks the cookie https-only.
	Secure bool
}

// NewCookieStore returns a cookie store signing with secretKey.
func NewCookieStore(secretKey string) (*CookieStore, error) {
	if secretKey == "" {
		return nil, models.ErrMissingSecretKey
	}
	return &CookieStore{
		secret:     []byte(secretKey),
		CookieName: DefaultCookieName,
		Lifetime:   DefaultLifetime,
	}, nil
}

type cookieClaims struct {
	jwt.RegisteredClaims
	Data map[string]interface{} `json:"data"`
}

// Open parses and verifies the session cookie. No cookie means a fresh
// session, a cookie that does not verify is an error the middleware turns
// into a fresh session.
func (cs *CookieStore) Open(r *http.Request) (*Session, error) {
	c, err := r.Cookie(cs.CookieName)
	if err != nil {
		return New(), nil
	}

	var claims cookieClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims, cs.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewAPIError(models.ErrSessionExpired.Code(),
				fmt.Errorf("%v: %v", models.ErrSessionExpired, err))
		}
		return nil, models.NewAPIError(models.ErrSessionInvalid.Code(),
			fmt.Errorf("%v: %v", models.ErrSessionInvalid, err))
	}

	return open("", claims.Data), nil
}

func (cs *CookieStore) keyFunc(*jwt.Token) (interface{}, error) {
	return cs.secret, nil
}

// Save signs the session into the cookie. Untouched sessions keep their
// cookie as is, cleared ones drop it.
func (cs *CookieStore) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.Empty() {
		if !s.fresh {
			cs.setCookie(w, "", -1)
		}
		return nil
	}
	if !s.modified {
		return nil
	}

	now := time.Now()
	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cs.Lifetime)),
		},
		Data: s.values,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cs.secret)
	if err != nil {
		return fmt.Errorf("error signing session token: %w", err)
	}

	cs.setCookie(w, token, int(cs.Lifetime/time.Second))
	return nil
}

func (cs *CookieStore) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cs.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
