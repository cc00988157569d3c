// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/feedwatchdog/admin/domain/resource"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call has
	// already fired or been stopped.
	Stop() bool
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Auth Ports
// -----------------------------------------------------------------------------

// Fixed storage keys for the session tokens.
const (
	AccessTokenKey  = "accesst"
	RefreshTokenKey = "refresht"
)

// TokenStore persists the session tokens between requests.
type TokenStore interface {
	// Get returns the value for key, or "" when it is not set.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// -----------------------------------------------------------------------------
// Remote API Ports
// -----------------------------------------------------------------------------

// ListParams selects a page of a collection.
type ListParams struct {
	Query    string
	Page     int
	PageSize int

	// Filters carries collection specific query parameters.
	Filters map[string]string
}

// Lister fetches pages of a collection.
type Lister[T any] interface {
	List(ctx context.Context, p ListParams) (resource.List[T], error)
}

// ResourceAPI is the CRUD surface of one resource kind.
type ResourceAPI[T any] interface {
	Lister[T]

	// Get fetches one resource by slug.
	Get(ctx context.Context, slug string) (T, error)

	// Create stores a new resource and returns the stored copy.
	Create(ctx context.Context, item T) (T, error)

	// Update replaces a resource and returns the stored copy with its
	// options snapshotted.
	Update(ctx context.Context, item T) (T, error)

	// Delete removes a resource.
	Delete(ctx context.Context, slug string) error
}

// SchemaSource serves the option schemas of a processor handler.
type SchemaSource interface {
	Schema(ctx context.Context, handler string) (map[string]json.RawMessage, error)
}

// -----------------------------------------------------------------------------
// UI Ports
// -----------------------------------------------------------------------------

// Navigator performs the navigation side effects of the admin.
type Navigator interface {
	// Redirect sends the user to path.
	Redirect(path string)

	// NotFound shows the not-found view without changing the visible URL.
	NotFound()
}
