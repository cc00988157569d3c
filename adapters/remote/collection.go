package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
)

// listWire is the paginated envelope of every collection endpoint.
type listWire[W any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
	Results  []W `json:"results"`
}

// collection implements the CRUD endpoints shared by every resource kind.
// T is the admin type and W its wire form.
type collection[T any, W any] struct {
	client   *Client
	kind     resource.Kind
	toWire   func(T) (W, error)
	fromWire func(W) T
	key      func(T) string
	snapshot func(*T)
}

func (c *collection[T, W]) path(slug string) string {
	if slug == "" {
		return "/" + string(c.kind) + "/"
	}
	return "/" + string(c.kind) + "/" + url.PathEscape(slug) + "/"
}

// List fetches one page. Page and Pages of the result are derived from the
// request because the API does not report them reliably.
func (c *collection[T, W]) List(ctx context.Context, p ports.ListParams) (resource.List[T], error) {
	page := max(p.Page, 1)

	query := url.Values{}
	if p.Query != "" {
		query.Set("q", p.Query)
	}
	query.Set("page", strconv.Itoa(page))
	if p.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(p.PageSize))
	}
	for k, v := range p.Filters {
		if v != "" {
			query.Set(k, v)
		}
	}

	var wire listWire[W]
	if err := c.client.Request(ctx, http.MethodGet, c.path(""), query, nil, &wire); err != nil {
		return resource.List[T]{}, fmt.Errorf("list %s: %w", c.kind, err)
	}

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = wire.PageSize
	}

	results := make([]T, 0, len(wire.Results))
	for _, w := range wire.Results {
		results = append(results, c.fromWire(w))
	}
	return resource.NewList(wire.Count, page, pageSize, results), nil
}

// Get fetches one resource with its options snapshotted.
func (c *collection[T, W]) Get(ctx context.Context, slug string) (T, error) {
	var wire W
	if err := c.client.Request(ctx, http.MethodGet, c.path(slug), nil, nil, &wire); err != nil {
		var zero T
		return zero, fmt.Errorf("get %s %q: %w", c.kind, slug, err)
	}
	item := c.fromWire(wire)
	c.snapshot(&item)
	return item, nil
}

// Create stores a new resource. Invalid option text fails before any request.
func (c *collection[T, W]) Create(ctx context.Context, item T) (T, error) {
	return c.write(ctx, http.MethodPost, c.path(""), item)
}

// Update replaces a resource. Only a successful response is snapshotted.
func (c *collection[T, W]) Update(ctx context.Context, item T) (T, error) {
	return c.write(ctx, http.MethodPut, c.path(c.key(item)), item)
}

func (c *collection[T, W]) write(ctx context.Context, method, path string, item T) (T, error) {
	var zero T

	body, err := c.toWire(item)
	if err != nil {
		return zero, err
	}

	var wire W
	if err := c.client.Request(ctx, method, path, nil, body, &wire); err != nil {
		return zero, fmt.Errorf("save %s %q: %w", c.kind, c.key(item), err)
	}

	saved := c.fromWire(wire)
	c.snapshot(&saved)
	return saved, nil
}

// Delete removes a resource.
func (c *collection[T, W]) Delete(ctx context.Context, slug string) error {
	if err := c.client.Request(ctx, http.MethodDelete, c.path(slug), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s %q: %w", c.kind, slug, err)
	}
	return nil
}
