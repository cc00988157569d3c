package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/feedwatchdog/admin/ports"
)

// Handlers are the processor kinds that publish option schemas.
var Handlers = []string{"fetchers", "parsers", "receivers", "modifiers"}

// Processors serves the option schemas of the processing handlers.
type Processors struct {
	client *Client
}

// NewProcessors creates the processors API.
func NewProcessors(client *Client) *Processors {
	return &Processors{client: client}
}

// Schema returns the type tag to JSON schema mapping of a handler.
func (p *Processors) Schema(ctx context.Context, handler string) (map[string]json.RawMessage, error) {
	if !slices.Contains(Handlers, handler) {
		return nil, fmt.Errorf("unknown processor handler %q", handler)
	}

	var schemas map[string]json.RawMessage
	path := "/processors/config/" + url.PathEscape(handler) + "/"
	if err := p.client.Request(ctx, http.MethodGet, path, nil, nil, &schemas); err != nil {
		return nil, fmt.Errorf("get %s schema: %w", handler, err)
	}
	if schemas == nil {
		schemas = map[string]json.RawMessage{}
	}
	return schemas, nil
}

// Ensure interface compliance.
var _ ports.SchemaSource = (*Processors)(nil)
