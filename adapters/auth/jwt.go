// Package auth reads the access tokens issued by the Feed Watchdog API.
// Tokens are signed by the API, so the admin only inspects their claims to
// know who is logged in and when a refresh is due.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned for strings that are not JWTs.
var ErrMalformedToken = errors.New("malformed token")

// Claims holds the access token claims the admin cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Inspect decodes the claims of a token without verifying its signature.
func Inspect(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}

// Expired reports whether the token expires within leeway of now.
// A token without an expiry never expires.
func (c Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(c.ExpiresAt)
}

// NeedsRefresh reports whether a stored access token should be refreshed
// before use. Malformed tokens are left to the API to reject.
func NeedsRefresh(token string, now time.Time, leeway time.Duration) bool {
	if token == "" {
		return false
	}
	c, err := Inspect(token)
	if err != nil {
		return false
	}
	return c.Expired(now, leeway)
}
