package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/domain/validation"
	"github.com/go-chi/chi/v5"
)

// -----------------------------------------------------------------------------
// Login / Logout
// -----------------------------------------------------------------------------

type loginPage struct {
	PageData
	Email  string
	Errors map[string]string
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if loggedIn(r.Context()) {
		http.Redirect(w, r, app.HomePath, http.StatusFound)
		return
	}

	h.render(w, http.StatusOK, "login", loginPage{
		PageData: h.newPageData(r.Context(), r.URL.Path, "Login"),
	})
}

// LoginSubmit exchanges the submitted credentials for a token pair.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	errs := &app.Errors{}
	form := app.NewFormController(errs)
	check := app.CheckedForm{Check: func() []resource.ValidationError {
		var fields validation.Fields
		fields.Add("email", email, validation.Required(), validation.Email())
		fields.Add("password", password, validation.Required())
		return fields.Validate()
	}}

	err := form.Submit(ctx, check, func(ctx context.Context) error {
		return h.auth.Login(ctx, email, password)
	})
	if err == nil {
		http.Redirect(w, r, app.HomePath, http.StatusSeeOther)
		return
	}

	if !errors.Is(err, app.ErrInvalidForm) {
		h.logger.Info().Err(err).Str("email", email).Msg("login failed")
		errs.Set(app.NormalizeErrors(err))
		if sess := sessionFrom(ctx); sess != nil {
			sess.Chrome.Escalate(err)
		}
	}

	h.render(w, http.StatusUnprocessableEntity, "login", loginPage{
		PageData: h.newPageData(ctx, r.URL.Path, "Login"),
		Email:    email,
		Errors:   errs.Fields(),
	})
}

// Logout clears the tokens and the browser session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("logout failed")
	}
	if sess := sessionFrom(ctx); sess != nil {
		h.sessions.Delete(sess.ID)
	}
	http.Redirect(w, r, app.LoginPath, http.StatusSeeOther)
}

// -----------------------------------------------------------------------------
// Home / Not found / Chrome
// -----------------------------------------------------------------------------

type homePage struct {
	PageData
	Kinds []resource.Kind
}

// Home renders the landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home", homePage{
		PageData: h.newPageData(r.Context(), r.URL.Path, "Home"),
		Kinds:    []resource.Kind{resource.KindSources, resource.KindReceivers, resource.KindStreams},
	})
}

// NotFoundPage renders the not-found view at the requested URL.
func (h *Handler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	if !loggedIn(r.Context()) {
		h.redirectToLogin(w, r)
		return
	}
	h.notFound(w, r)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "notfound", h.newPageData(r.Context(), r.URL.Path, "Not found"))
}

// ToggleSideBar opens or closes the navigation panel.
func (h *Handler) ToggleSideBar(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		sess.Chrome.Navigation.ToggleLeftSideBar()
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// CloseDialog dismisses the error dialog.
func (h *Handler) CloseDialog(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		sess.Chrome.Dialog.Close()
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the local page a chrome control was used on.
func backTo(r *http.Request) string {
	if next := r.FormValue("next"); strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && ref.Path != "" {
		return ref.RequestURI()
	}
	return app.HomePath
}

// -----------------------------------------------------------------------------
// Search
// -----------------------------------------------------------------------------

type searchItem struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Search serves the source and receiver pickers of the stream form. A
// request superseded by a newer one for the same field answers 204.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	text := q.Get("q")
	focused := q.Get("focus") != "0"

	var (
		items []searchItem
		err   error
	)
	switch chi.URLParam(r, "field") {
	case "sourceSlug":
		sess.Streams.SourceSearch.SetFocus(focused)
		var found []resource.Source
		found, err = sess.Streams.SourceSearch.SetSearch(r.Context(), text)
		for _, s := range found {
			items = append(items, searchItem{Slug: s.Slug, Name: s.Name})
		}
	case "receiverSlug":
		sess.Streams.ReceiverSearch.SetFocus(focused)
		var found []resource.Receiver
		found, err = sess.Streams.ReceiverSearch.SetSearch(r.Context(), text)
		for _, rc := range found {
			items = append(items, searchItem{Slug: rc.Slug, Name: rc.Name})
		}
	default:
		http.NotFound(w, r)
		return
	}

	switch {
	case errors.Is(err, app.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, remote.ErrSessionExpired):
		w.WriteHeader(http.StatusUnauthorized)
		return
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	if items == nil {
		items = []searchItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
