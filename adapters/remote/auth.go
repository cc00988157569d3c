package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/feedwatchdog/admin/ports"
)

// TokenPair is the token response of the login and refresh endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (p TokenPair) store(ctx context.Context, tokens ports.TokenStore) error {
	if err := tokens.Set(ctx, ports.AccessTokenKey, p.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := tokens.Set(ctx, ports.RefreshTokenKey, p.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Auth handles the session endpoints.
type Auth struct {
	client *Client
}

// NewAuth creates the session API.
func NewAuth(client *Client) *Auth {
	return &Auth{client: client}
}

// Login exchanges credentials for a token pair and stores it.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var pair TokenPair
	if err := a.client.do(ctx, call{method: http.MethodPost, path: loginPath, form: form}, &pair); err != nil {
		return err
	}
	if pair.AccessToken == "" {
		return errors.New("login response has no access token")
	}

	if err := pair.store(ctx, a.client.tokenStore(ctx)); err != nil {
		return err
	}
	a.client.logger.Info().Str("user", email).Msg("logged in")
	return nil
}

// Logout clears the stored tokens. The API keeps no server-side session.
func (a *Auth) Logout(ctx context.Context) error {
	if err := clearTokens(ctx, a.client.tokenStore(ctx)); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Refresh forces a token refresh.
func (a *Auth) Refresh(ctx context.Context) error {
	tokens := a.client.tokenStore(ctx)
	access, err := tokens.Get(ctx, ports.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	_, err = a.client.refresh(ctx, tokens, access)
	return err
}

// LoggedIn reports whether an access token is stored.
func (a *Auth) LoggedIn(ctx context.Context) (bool, error) {
	access, err := a.client.tokenStore(ctx).Get(ctx, ports.AccessTokenKey)
	if err != nil {
		return false, err
	}
	return access != "", nil
}
