package web

import (
	"context"

	"github.com/feedwatchdog/admin/adapters/auth"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/ports"
)

type ctxKey string

const (
	sessionKey ctxKey = "session"
	tokensKey  ctxKey = "tokens"
)

// withSession adds the browser session and its token store to the context.
func withSession(ctx context.Context, sess *Session, tokens ports.TokenStore) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return context.WithValue(ctx, tokensKey, tokens)
}

// sessionFrom retrieves the browser session from context.
func sessionFrom(ctx context.Context) *Session {
	sess, ok := ctx.Value(sessionKey).(*Session)
	if !ok {
		return nil
	}
	return sess
}

func tokensFrom(ctx context.Context) ports.TokenStore {
	tokens, ok := ctx.Value(tokensKey).(ports.TokenStore)
	if !ok {
		return nil
	}
	return tokens
}

// PageData holds common data for all pages.
type PageData struct {
	Title       string
	FullTitle   string
	CurrentPath string
	User        string
	LoggedIn    bool
	SideBarOpen bool
	Dialog      app.DialogState
	Meta        map[string]string
	Version     string
}

// PageTitle returns the browser title of a page.
func PageTitle(title string) string {
	if title == "" {
		return AppName
	}
	return title + " | " + AppName
}

// newPageData creates base page data from request context.
func (h *Handler) newPageData(ctx context.Context, path, title string) PageData {
	data := PageData{
		Title:       title,
		FullTitle:   PageTitle(title),
		CurrentPath: path,
		SideBarOpen: true,
		Meta:        h.settings.Meta(),
		Version:     h.settings.Version,
	}

	if sess := sessionFrom(ctx); sess != nil {
		data.SideBarOpen = sess.Chrome.Navigation.LeftSideBarOpen()
		data.Dialog = sess.Chrome.Dialog.Snapshot()
	}

	if tokens := tokensFrom(ctx); tokens != nil {
		if access, _ := tokens.Get(ctx, ports.AccessTokenKey); access != "" {
			data.LoggedIn = true
			if claims, err := auth.Inspect(access); err == nil {
				data.User = claims.Subject
			}
		}
	}

	return data
}
