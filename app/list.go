package app

import (
	"context"
	"sync"

	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/pkg/urlstate"
	"github.com/feedwatchdog/admin/ports"
	"github.com/rs/zerolog"
)

// ListState is the fetch state of a list screen.
type ListState int

const (
	ListIdle ListState = iota
	ListLoading
	ListLoaded
	ListError
)

func (s ListState) String() string {
	switch s {
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListError:
		return "error"
	default:
		return "idle"
	}
}

// ListSnapshot is a point-in-time copy of a ListController.
type ListSnapshot[T any] struct {
	State  ListState
	Params urlstate.Params
	List   resource.List[T]
	Err    error
}

// ListOptions configures a ListController.
type ListOptions struct {
	// Kind labels logs and metrics.
	Kind    resource.Kind
	Chrome  *Chrome
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// ListController fetches pages of a collection for one screen. Only the
// response to the most recent Load is applied; a failed Load keeps the
// previously loaded page.
type ListController[T any] struct {
	lister  ports.Lister[T]
	kind    resource.Kind
	chrome  *Chrome
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu     sync.Mutex
	seq    uint64
	state  ListState
	params urlstate.Params
	list   resource.List[T]
	err    error
}

// NewListController creates a controller in the Idle state.
func NewListController[T any](lister ports.Lister[T], opts ListOptions) *ListController[T] {
	return &ListController[T]{
		lister:  lister,
		kind:    opts.Kind,
		chrome:  opts.Chrome,
		metrics: opts.Metrics,
		logger:  opts.Logger.With().Str("list", string(opts.Kind)).Logger(),
		list:    resource.NewList[T](0, 1, 0, nil),
	}
}

// Load fetches the page selected by p. A response that arrives after a newer
// Load has started is discarded. The returned error is the fetch error, if
// any, even when the response was discarded.
func (c *ListController[T]) Load(ctx context.Context, p urlstate.Params) error {
	c.mu.Lock()
	c.seq++
	token := c.seq
	c.state = ListLoading
	c.params = p
	c.mu.Unlock()

	list, err := c.lister.List(ctx, ports.ListParams{
		Query:    p.Query,
		Page:     p.Page,
		PageSize: p.PageSize,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.seq {
		c.metrics.ObserveList(string(c.kind), "stale")
		c.logger.Debug().Uint64("token", token).Uint64("latest", c.seq).Msg("discarding stale list response")
		return err
	}

	if err != nil {
		c.state = ListError
		c.err = err
		c.metrics.ObserveList(string(c.kind), "error")
		c.logger.Warn().Err(err).Msg("list fetch failed")
		c.chrome.Escalate(err)
		return err
	}

	c.state = ListLoaded
	c.list = list
	c.err = nil
	c.metrics.ObserveList(string(c.kind), "loaded")
	return nil
}

// Reload repeats the last Load.
func (c *ListController[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	p := c.params
	c.mu.Unlock()
	return c.Load(ctx, p)
}

// Snapshot returns the current state.
func (c *ListController[T]) Snapshot() ListSnapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListSnapshot[T]{
		State:  c.state,
		Params: c.params,
		List:   c.list,
		Err:    c.err,
	}
}
