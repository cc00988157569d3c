package web

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// sessionCookie names the cookie carrying the browser session ID.
const sessionCookie = "wsid"

// Session is the admin state of one browser: its chrome and the workspaces
// of every resource kind.
type Session struct {
	ID        string
	Chrome    *app.Chrome
	Sources   *app.Sources
	Receivers *app.Receivers
	Streams   *app.Streams

	nav *navigation
	mu  sync.Mutex
}

// Navigate runs fn, which may call workspace operations, and returns the
// navigation they asked for. Calls are serialized per session.
func (s *Session) Navigate(fn func()) (redirect string, notFound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nav.reset()
	fn()
	return s.nav.take()
}

// navigation records the navigation side effects of workspace operations
// until the handler applies them to its response.
type navigation struct {
	mu       sync.Mutex
	redirect string
	notFound bool
}

func (n *navigation) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirect = path
}

func (n *navigation) NotFound() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notFound = true
}

func (n *navigation) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirect, n.notFound = "", false
}

func (n *navigation) take() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	redirect, notFound := n.redirect, n.notFound
	n.redirect, n.notFound = "", false
	return redirect, notFound
}

var _ ports.Navigator = (*navigation)(nil)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Sources   app.SourcesAPI
	Receivers ports.ResourceAPI[resource.Receiver]
	Streams   app.StreamsAPI
	Schemas   *app.SchemaCatalog

	// Search returns the current picker settings.
	Search func() app.SearchOptions

	IDs     ports.IDGenerator
	TTL     time.Duration
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// Sessions keeps the sessions of active browsers. Idle sessions expire
// after the configured TTL.
type Sessions struct {
	deps    SessionDeps
	cache   *ttlcache.Cache[string, *Session]
	running atomic.Bool
}

// NewSessions creates an empty registry. Call Start to expire idle sessions.
func NewSessions(deps SessionDeps) *Sessions {
	if deps.TTL <= 0 {
		deps.TTL = 12 * time.Hour
	}
	if deps.Search == nil {
		deps.Search = func() app.SearchOptions { return app.SearchOptions{} }
	}

	cache := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](deps.TTL),
	)
	s := &Sessions{deps: deps, cache: cache}

	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		if reason == ttlcache.EvictionReasonExpired {
			deps.Logger.Debug().Str("session", item.Key()).Msg("session expired")
		}
		deps.Metrics.SetSessions(cache.Len())
	})
	return s
}

// Start runs the expiry loop until Stop.
func (s *Sessions) Start() {
	if s.running.CompareAndSwap(false, true) {
		go s.cache.Start()
	}
}

// Stop ends the expiry loop. It does nothing when the loop is not running.
func (s *Sessions) Stop() {
	if s.running.CompareAndSwap(true, false) {
		s.cache.Stop()
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int { return s.cache.Len() }

// Get returns the session with id, or nil. A hit extends its lifetime.
func (s *Sessions) Get(id string) *Session {
	if id == "" {
		return nil
	}
	item := s.cache.Get(id)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Create starts a new session.
func (s *Sessions) Create() *Session {
	nav := &navigation{}
	chrome := app.NewChrome()
	opts := app.WorkspaceOptions{
		Chrome:    chrome,
		Navigator: nav,
		Metrics:   s.deps.Metrics,
		Logger:    s.deps.Logger,
	}
	search := s.deps.Search()
	search.Metrics = s.deps.Metrics

	sess := &Session{
		ID:        s.deps.IDs.New(),
		Chrome:    chrome,
		Sources:   app.NewSources(s.deps.Sources, s.deps.Schemas, opts),
		Receivers: app.NewReceivers(s.deps.Receivers, s.deps.Schemas, opts),
		Streams: app.NewStreams(s.deps.Streams, s.deps.Sources, s.deps.Receivers, s.deps.Schemas, app.StreamsOptions{
			WorkspaceOptions: opts,
			Search:           search,
		}),
		nav: nav,
	}

	s.cache.Set(sess.ID, sess, ttlcache.DefaultTTL)
	s.deps.Metrics.SetSessions(s.cache.Len())
	s.deps.Logger.Debug().Str("session", sess.ID).Msg("session created")
	return sess
}

// Delete ends a session.
func (s *Sessions) Delete(id string) {
	s.cache.Delete(id)
	s.deps.Metrics.SetSessions(s.cache.Len())
}

// fromRequest returns the session of r, creating one and setting its cookie
// when r has none.
func (s *Sessions) fromRequest(w http.ResponseWriter, r *http.Request, secure bool) *Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess := s.Get(c.Value); sess != nil {
			return sess
		}
	}

	sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
