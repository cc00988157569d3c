package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/feedwatchdog/admin/domain/optionsform"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// SchemaCatalog loads the option schema table of each processor handler
// once and keeps it until Reload. Form screens call Refresh when a form
// session starts.
type SchemaCatalog struct {
	source ports.SchemaSource
	logger zerolog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	tables map[string]*optionsform.Table
}

// NewSchemaCatalog creates an empty catalog.
func NewSchemaCatalog(source ports.SchemaSource, logger zerolog.Logger) *SchemaCatalog {
	return &SchemaCatalog{
		source: source,
		logger: logger.With().Str("component", "schemas").Logger(),
		tables: make(map[string]*optionsform.Table),
	}
}

// Table returns the table of handler, fetching it on first use.
func (c *SchemaCatalog) Table(ctx context.Context, handler string) (*optionsform.Table, error) {
	c.mu.RLock()
	table, ok := c.tables[handler]
	c.mu.RUnlock()
	if ok {
		return table, nil
	}
	return c.Reload(ctx, handler)
}

// Reload fetches the table of handler again and replaces the cached one.
func (c *SchemaCatalog) Reload(ctx context.Context, handler string) (*optionsform.Table, error) {
	v, err, _ := c.group.Do(handler, func() (any, error) {
		raw, err := c.source.Schema(ctx, handler)
		if err != nil {
			return nil, err
		}
		table, err := optionsform.ParseCatalog(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s schemas: %w", handler, err)
		}

		c.mu.Lock()
		c.tables[handler] = table
		c.mu.Unlock()

		c.logger.Debug().Str("handler", handler).Int("types", table.Len()).Msg("loaded option schemas")
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*optionsform.Table), nil
}

// Refresh reloads the tables of handlers. A failed fetch keeps the table
// already loaded.
func (c *SchemaCatalog) Refresh(ctx context.Context, handlers ...string) {
	if c == nil {
		return
	}
	for _, handler := range handlers {
		if _, err := c.Reload(ctx, handler); err != nil {
			c.logger.Warn().Err(err).Str("handler", handler).Msg("reload option schemas failed")
		}
	}
}

// Types lists the type tags of handler in sorted order.
func (c *SchemaCatalog) Types(ctx context.Context, handler string) ([]string, error) {
	table, err := c.Table(ctx, handler)
	if err != nil {
		return nil, err
	}
	return table.Types(), nil
}

// Variant returns the form variant of one type tag. A tag missing from the
// table yields nil without an error, so the options field falls back to raw
// JSON editing.
func (c *SchemaCatalog) Variant(ctx context.Context, handler, typ string) (*optionsform.Variant, error) {
	table, err := c.Table(ctx, handler)
	if err != nil {
		return nil, err
	}
	v, _ := table.Variant(typ)
	return v, nil
}

// checkOptions validates options text against the schema of typ. It skips
// fields that already failed a simpler rule, and schemas that cannot be
// loaded, leaving those to the API.
func checkOptions(ctx context.Context, schemas *SchemaCatalog, logger zerolog.Logger, handler, typ, field, text string, prior []resource.ValidationError) []resource.ValidationError {
	if schemas == nil || typ == "" {
		return nil
	}
	for _, e := range prior {
		if e.Field == field {
			return nil
		}
	}

	v, err := schemas.Variant(ctx, handler, typ)
	if err != nil {
		logger.Warn().Err(err).Str("handler", handler).Msg("option schemas unavailable, skipping validation")
		return nil
	}
	if v == nil {
		return nil
	}
	return v.Validate(field, text)
}
