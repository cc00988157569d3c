package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/feedwatchdog/admin/ports"
)

// cookieTokens stores the session tokens of one request in HttpOnly cookies.
// Values set during the request are visible to later Gets of the same
// request, so a refreshed token is used by the retried call.
//
// Once the request is finished the store keeps its values but no longer
// writes cookies, since the response is gone.
type cookieTokens struct {
	w      http.ResponseWriter
	secure bool

	mu       sync.Mutex
	values   map[string]string
	finished bool
}

func newCookieTokens(w http.ResponseWriter, r *http.Request, secure bool) *cookieTokens {
	values := make(map[string]string, 2)
	for _, key := range []string{ports.AccessTokenKey, ports.RefreshTokenKey} {
		if c, err := r.Cookie(key); err == nil {
			values[key] = c.Value
		}
	}
	return &cookieTokens{w: w, secure: secure, values: values}
}

func (t *cookieTokens) Get(_ context.Context, key string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[key], nil
}

func (t *cookieTokens) Set(_ context.Context, key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
	if !t.finished {
		http.SetCookie(t.w, t.cookie(key, value, 0))
	}
	return nil
}

func (t *cookieTokens) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
	if !t.finished {
		http.SetCookie(t.w, t.cookie(key, "", -1))
	}
	return nil
}

// finish marks the request as answered.
func (t *cookieTokens) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
}

func (t *cookieTokens) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

var _ ports.TokenStore = (*cookieTokens)(nil)
