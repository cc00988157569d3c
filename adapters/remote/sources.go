package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
)

type sourceWire struct {
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	FetcherType    string          `json:"fetcher_type"`
	FetcherOptions json.RawMessage `json:"fetcher_options"`
	ParserType     string          `json:"parser_type"`
	ParserOptions  json.RawMessage `json:"parser_options"`
	Description    string          `json:"description"`
	Tags           []string        `json:"tags"`
}

func sourceToWire(s resource.Source) (sourceWire, error) {
	fetcherOptions, err := resource.DecodeOptions("fetcherOptions", s.FetcherOptions)
	if err != nil {
		return sourceWire{}, err
	}
	parserOptions, err := resource.DecodeOptions("parserOptions", s.ParserOptions)
	if err != nil {
		return sourceWire{}, err
	}

	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}

	return sourceWire{
		Name:           s.Name,
		Slug:           s.Slug,
		FetcherType:    s.FetcherType,
		FetcherOptions: fetcherOptions,
		ParserType:     s.ParserType,
		ParserOptions:  parserOptions,
		Description:    s.Description,
		Tags:           tags,
	}, nil
}

func sourceFromWire(w sourceWire) resource.Source {
	return resource.Source{
		Name:           w.Name,
		Slug:           w.Slug,
		FetcherType:    w.FetcherType,
		FetcherOptions: resource.EncodeOptions(w.FetcherOptions),
		ParserType:     w.ParserType,
		ParserOptions:  resource.EncodeOptions(w.ParserOptions),
		Description:    w.Description,
		Tags:           w.Tags,
	}
}

// Sources is the /sources/ collection.
type Sources struct {
	collection[resource.Source, sourceWire]
}

// NewSources creates the sources API.
func NewSources(client *Client) *Sources {
	return &Sources{collection[resource.Source, sourceWire]{
		client:   client,
		kind:     resource.KindSources,
		toWire:   sourceToWire,
		fromWire: sourceFromWire,
		key:      resource.Source.Key,
		snapshot: (*resource.Source).Snapshot,
	}}
}

// Tags lists the tags already used by sources.
func (s *Sources) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := s.client.Request(ctx, http.MethodGet, "/sources/tags/", nil, nil, &tags); err != nil {
		return nil, fmt.Errorf("list source tags: %w", err)
	}
	return tags, nil
}

// Ensure interface compliance.
var _ ports.ResourceAPI[resource.Source] = (*Sources)(nil)
