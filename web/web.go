// Package web provides the SSR admin web interface.
// All templates and static files are embedded in the binary.
// Tokens live in cookies; per-browser UI state lives in a Session.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed templates/* static/*
var assets embed.FS

// AppName is appended to every page title.
const AppName = "Feed Watchdog Admin"

// Authenticator opens and closes API sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// Settings holds the configuration the pages need.
type Settings struct {
	SecureCookie bool
	Version      string

	// Meta returns the current <meta property> tags.
	Meta func() map[string]string

	// PageSize returns the current default list page size.
	PageSize func() int
}

// Handler provides the web UI endpoints.
type Handler struct {
	templates      map[string]*template.Template // One template per page
	auth           Authenticator
	sessions       *Sessions
	schemas        *app.SchemaCatalog
	settings       Settings
	metrics        *metrics.Collector
	metricsHandler http.Handler
	metricsPath    string
	logger         zerolog.Logger
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Auth     Authenticator
	Sessions *Sessions
	Schemas  *app.SchemaCatalog
	Settings Settings
	Metrics  *metrics.Collector

	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string

	Logger zerolog.Logger
}

// NewHandler creates a new web UI handler.
func NewHandler(deps Deps) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	settings := deps.Settings
	if settings.PageSize == nil {
		settings.PageSize = func() int { return 25 }
	}
	if settings.Meta == nil {
		settings.Meta = func() map[string]string { return nil }
	}

	return &Handler{
		templates:      tmpl,
		auth:           deps.Auth,
		sessions:       deps.Sessions,
		schemas:        deps.Schemas,
		settings:       settings,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
		metricsPath:    deps.MetricsPath,
		logger:         deps.Logger.With().Str("component", "web").Logger(),
	}, nil
}

// Router returns the web UI router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	// Static files (CSS) - no auth required
	staticFS, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	if h.metricsHandler != nil {
		path := h.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, h.metricsHandler)
	}

	// Swagger UI for the JSON endpoints
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		r.Use(h.bindSession)

		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginSubmit)
		r.Post("/logout", h.Logout)

		// Chrome controls
		r.Post("/ui/sidebar", h.ToggleSideBar)
		r.Post("/ui/dialog/close", h.CloseDialog)

		// Protected pages (require a session token)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireLogin)

			r.Get("/", h.Home)

			r.Get("/sources", h.SourcesPage)
			r.Get("/sources/create", h.SourceNewPage)
			r.Post("/sources/create", h.SourceCreate)
			r.Get("/sources/{slug}/edit", h.SourceEditPage)
			r.Post("/sources/{slug}/edit", h.SourceUpdate)
			r.Post("/sources/{slug}/delete", h.SourceDelete)

			r.Get("/receivers", h.ReceiversPage)
			r.Get("/receivers/create", h.ReceiverNewPage)
			r.Post("/receivers/create", h.ReceiverCreate)
			r.Get("/receivers/{slug}/edit", h.ReceiverEditPage)
			r.Post("/receivers/{slug}/edit", h.ReceiverUpdate)
			r.Post("/receivers/{slug}/delete", h.ReceiverDelete)

			r.Get("/streams", h.StreamsPage)
			r.Get("/streams/create", h.StreamNewPage)
			r.Post("/streams/create", h.StreamCreate)
			r.Get("/streams/{slug}/edit", h.StreamEditPage)
			r.Post("/streams/{slug}/edit", h.StreamUpdate)
			r.Post("/streams/{slug}/delete", h.StreamDelete)

			// API endpoints for dynamic UI features
			r.Get("/api/search/{field}", h.Search)
		})

		r.NotFound(h.NotFoundPage)
	})

	return r
}

// observe records every request in the metrics collector, by route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

// bindSession attaches the cookie token store and the browser session to
// the request context.
func (h *Handler) bindSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens := newCookieTokens(w, r, h.settings.SecureCookie)
		defer tokens.finish()
		sess := h.sessions.fromRequest(w, r, h.settings.SecureCookie)

		ctx := remote.WithTokens(r.Context(), tokens)
		ctx = withSession(ctx, sess, tokens)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects to the login page when no access token is stored.
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r.Context()) {
			h.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, app.LoginPath, http.StatusFound)
}

func loggedIn(ctx context.Context) bool {
	tokens := tokensFrom(ctx)
	if tokens == nil {
		return false
	}
	access, _ := tokens.Get(ctx, ports.AccessTokenKey)
	return access != ""
}

// Helper to parse all templates with layouts
func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"join": strings.Join,
		"add": func(a, b int) int {
			return a + b
		},
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
		"options": resource.FormatOptions,
		// sanitized marks schema help text, which is cleaned when the schema is parsed.
		"sanitized": func(s string) template.HTML {
			return template.HTML(s)
		},
		"editPath": func(kind, slug string) string {
			return app.EditPath(resource.Kind(kind), slug)
		},
		"deletePath": func(kind, slug string) string {
			return strings.TrimSuffix(app.EditPath(resource.Kind(kind), slug), "/edit") + "/delete"
		},
	}

	templates := make(map[string]*template.Template)

	layoutContent, err := fs.ReadFile(assets, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	var componentContent []byte
	components, err := fs.Glob(assets, "templates/components/*.html")
	if err != nil {
		return nil, err
	}
	for _, comp := range components {
		content, err := fs.ReadFile(assets, comp)
		if err != nil {
			return nil, err
		}
		componentContent = append(componentContent, content...)
	}

	// Parse each page as its own template (layout + components + page)
	pages, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/pages/")
		name = strings.TrimSuffix(name, ".html")

		pageContent, err := fs.ReadFile(assets, page)
		if err != nil {
			return nil, err
		}

		tmpl := template.New(name).Funcs(funcs)
		if _, err := tmpl.Parse(string(layoutContent)); err != nil {
			return nil, fmt.Errorf("parse layout for %s: %w", name, err)
		}
		if len(componentContent) > 0 {
			if _, err := tmpl.Parse(string(componentContent)); err != nil {
				return nil, fmt.Errorf("parse components for %s: %w", name, err)
			}
		}
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}

		templates[name] = tmpl
	}

	return templates, nil
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := h.templates[name]
	if !ok {
		h.logger.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("template render error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}
