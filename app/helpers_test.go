package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
)

// =============================================================================
// Fakes
// =============================================================================

type listFunc[T any] func(ctx context.Context, p ports.ListParams) (resource.List[T], error)

func (f listFunc[T]) List(ctx context.Context, p ports.ListParams) (resource.List[T], error) {
	return f(ctx, p)
}

// fakeAPI is an in-memory ResourceAPI keyed by slug.
type fakeAPI[T any] struct {
	key func(T) string

	mu      sync.Mutex
	items   map[string]T
	err     error
	deletes []string
}

func newFakeAPI[T any](key func(T) string, items ...T) *fakeAPI[T] {
	api := &fakeAPI[T]{key: key, items: make(map[string]T)}
	for _, it := range items {
		api.items[key(it)] = it
	}
	return api
}

func (a *fakeAPI[T]) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *fakeAPI[T]) List(_ context.Context, p ports.ListParams) (resource.List[T], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return resource.List[T]{}, a.err
	}
	out := make([]T, 0, len(a.items))
	for _, it := range a.items {
		out = append(out, it)
	}
	return resource.NewList(len(out), p.Page, p.PageSize, out), nil
}

func (a *fakeAPI[T]) Get(_ context.Context, slug string) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if a.err != nil {
		return zero, a.err
	}
	it, ok := a.items[slug]
	if !ok {
		return zero, notFound()
	}
	return it, nil
}

func (a *fakeAPI[T]) Create(_ context.Context, item T) (T, error) { return a.put(item) }

func (a *fakeAPI[T]) Update(_ context.Context, item T) (T, error) { return a.put(item) }

func (a *fakeAPI[T]) put(item T) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		var zero T
		return zero, a.err
	}
	a.items[a.key(item)] = item
	return item, nil
}

func (a *fakeAPI[T]) Delete(_ context.Context, slug string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deletes = append(a.deletes, slug)
	return a.err
}

type fakeNavigator struct {
	mu        sync.Mutex
	redirects []string
	notFound  int
}

func (n *fakeNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, path)
}

func (n *fakeNavigator) NotFound() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notFound++
}

func (n *fakeNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.redirects) == 0 {
		return ""
	}
	return n.redirects[len(n.redirects)-1]
}

type schemaSourceFunc func(ctx context.Context, handler string) (map[string]json.RawMessage, error)

func (f schemaSourceFunc) Schema(ctx context.Context, handler string) (map[string]json.RawMessage, error) {
	return f(ctx, handler)
}

var (
	_ ports.ResourceAPI[resource.Source] = (*fakeAPI[resource.Source])(nil)
	_ ports.Navigator                    = (*fakeNavigator)(nil)
	_ ports.SchemaSource                 = schemaSourceFunc(nil)
)
