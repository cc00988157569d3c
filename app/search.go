package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/feedwatchdog/admin/adapters/clock"
	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/ports"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned to a SetSearch caller whose text was replaced
// before the quiet period ended.
var ErrSuperseded = errors.New("search superseded")

// Search defaults.
const (
	DefaultSearchDebounce  = 500 * time.Millisecond
	DefaultSearchPageSize  = 10
	DefaultSearchCacheSize = 128
	DefaultSearchCacheTTL  = 10 * time.Minute
)

// SearchOptions configures a SearchField.
type SearchOptions struct {
	// Field names the form field, for logs and metrics.
	Field     string
	Debounce  time.Duration
	PageSize  int
	CacheSize uint64
	CacheTTL  time.Duration

	Clock   ports.Clock
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// SearchState is a point-in-time copy of a SearchField.
type SearchState[T any] struct {
	Search    string
	Items     []T
	IsLoading bool
	Focused   bool
}

// SearchField is the autocomplete helper of one remote-searchable field.
// Text changes are debounced, results are cached per exact query, and
// concurrent lookups of one query share a single request.
type SearchField[T any] struct {
	lister   ports.Lister[T]
	field    string
	debounce time.Duration
	pageSize int
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger

	cache *ttlcache.Cache[string, []T]
	group singleflight.Group

	mu       sync.Mutex
	search   string
	items    []T
	inflight int
	focused  bool
	pending  *pendingSearch[T]
}

type pendingSearch[T any] struct {
	query string
	timer ports.Timer
	done  chan struct{}
	items []T
	err   error

	// waiters holds the context of every caller waiting on the result.
	// Guarded by the field's mutex.
	waiters []context.Context
}

// live returns the context of the latest waiter still running, or nil.
func (p *pendingSearch[T]) live() context.Context {
	for i := len(p.waiters) - 1; i >= 0; i-- {
		if p.waiters[i].Err() == nil {
			return p.waiters[i]
		}
	}
	return nil
}

func (p *pendingSearch[T]) finish(items []T, err error) {
	p.items, p.err = items, err
	close(p.done)
}

func (p *pendingSearch[T]) wait(ctx context.Context) ([]T, error) {
	select {
	case <-p.done:
		return p.items, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NewSearchField creates a search helper over lister.
func NewSearchField[T any](lister ports.Lister[T], opts SearchOptions) *SearchField[T] {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultSearchPageSize
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultSearchCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultSearchCacheTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	cache := ttlcache.New[string, []T](
		ttlcache.WithTTL[string, []T](opts.CacheTTL),
		ttlcache.WithCapacity[string, []T](opts.CacheSize),
	)

	return &SearchField[T]{
		lister:   lister,
		field:    opts.Field,
		debounce: opts.Debounce,
		pageSize: opts.PageSize,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("search", opts.Field).Logger(),
		cache:    cache,
	}
}

// SetSearch records new search text and returns the items for it once the
// quiet period has passed without further changes. A call with the same text
// as a pending one joins it. A call with different text supersedes it, and
// the earlier caller gets ErrSuperseded. Empty text only searches while the
// field is focused; otherwise the current items are returned untouched.
func (f *SearchField[T]) SetSearch(ctx context.Context, text string) ([]T, error) {
	f.mu.Lock()
	f.search = text

	if p := f.pending; p != nil {
		if p.query == text {
			p.waiters = append(p.waiters, ctx)
			f.mu.Unlock()
			return p.wait(ctx)
		}
		f.pending = nil
		if p.timer.Stop() {
			p.finish(nil, ErrSuperseded)
			f.metrics.ObserveSearch(f.field, "superseded")
		}
	}

	p := &pendingSearch[T]{
		query:   text,
		waiters: []context.Context{ctx},
		done:    make(chan struct{}),
	}
	f.pending = p
	p.timer = f.clock.AfterFunc(f.debounce, func() { f.fire(p) })
	f.mu.Unlock()

	return p.wait(ctx)
}

// fire runs a pending search once its quiet period ends. The lookup carries
// the values of a waiter that is still running, so request-scoped
// collaborators such as the token store belong to a live request. It is not
// cancelled when that waiter leaves, since others may share the result.
func (f *SearchField[T]) fire(p *pendingSearch[T]) {
	f.mu.Lock()
	if f.pending == p {
		f.pending = nil
	}
	skip := p.query == "" && !f.focused
	items := f.items
	ctx := p.live()
	f.mu.Unlock()

	switch {
	case skip:
		p.finish(items, nil)
	case ctx == nil:
		f.logger.Debug().Str("query", p.query).Msg("search abandoned by every caller")
		p.finish(nil, context.Canceled)
	default:
		p.finish(f.Search(context.WithoutCancel(ctx), p.query))
	}
}

// Search looks query up immediately, from the cache when possible.
func (f *SearchField[T]) Search(ctx context.Context, query string) ([]T, error) {
	if item := f.cache.Get(query); item != nil {
		f.metrics.ObserveSearch(f.field, "hit")
		f.setItems(item.Value())
		return item.Value(), nil
	}
	f.metrics.ObserveSearch(f.field, "miss")

	f.mu.Lock()
	f.inflight++
	f.mu.Unlock()

	v, err, _ := f.group.Do(query, func() (any, error) {
		list, err := f.lister.List(ctx, ports.ListParams{Query: query, Page: 1, PageSize: f.pageSize})
		if err != nil {
			return nil, err
		}
		f.cache.Set(query, list.Results, ttlcache.DefaultTTL)
		return list.Results, nil
	})

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn().Err(err).Str("query", query).Msg("search failed")
		return nil, err
	}

	items := v.([]T)
	f.setItems(items)
	return items, nil
}

func (f *SearchField[T]) setItems(items []T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

// SetFocus records whether the field has focus.
func (f *SearchField[T]) SetFocus(focused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = focused
}

// State returns the current state.
func (f *SearchField[T]) State() SearchState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SearchState[T]{
		Search:    f.search,
		Items:     f.items,
		IsLoading: f.inflight > 0,
		Focused:   f.focused,
	}
}

// CacheLen returns the number of cached queries.
func (f *SearchField[T]) CacheLen() int {
	return f.cache.Len()
}
