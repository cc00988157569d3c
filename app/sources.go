package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/domain/validation"
	"github.com/feedwatchdog/admin/pkg/naming"
	"github.com/feedwatchdog/admin/ports"
)

// Processor handlers that publish option schemas.
const (
	HandlerFetchers  = "fetchers"
	HandlerParsers   = "parsers"
	HandlerReceivers = "receivers"
	HandlerModifiers = "modifiers"
)

// SourcesAPI is the remote surface of the sources screens.
type SourcesAPI interface {
	ports.ResourceAPI[resource.Source]
	Tags(ctx context.Context) ([]string, error)
}

// Sources is the workspace of the source screens.
type Sources struct {
	*Workspace[resource.Source]

	api     SourcesAPI
	schemas *SchemaCatalog
}

// NewSources creates the sources workspace.
func NewSources(api SourcesAPI, schemas *SchemaCatalog, opts WorkspaceOptions) *Sources {
	ws := NewWorkspace[resource.Source](resource.KindSources, api, resource.Source.Key, opts)
	ws.afterSave = func(s resource.Source) string {
		return CreatePath(resource.KindStreams) + "?source=" + url.QueryEscape(s.Slug)
	}
	ws.blank = func(slug string) resource.Source { return resource.Source{Slug: slug} }
	ws.rebase = resource.Source.Rebase
	return &Sources{Workspace: ws, api: api, schemas: schemas}
}

// BeginForm starts a form session by fetching the fetcher and parser
// schemas again.
func (s *Sources) BeginForm(ctx context.Context) {
	s.schemas.Refresh(ctx, HandlerFetchers, HandlerParsers)
}

// Tags lists the tags in use, for suggestions.
func (s *Sources) Tags(ctx context.Context) ([]string, error) {
	return s.api.Tags(ctx)
}

// FetcherTypes lists the fetcher type tags.
func (s *Sources) FetcherTypes(ctx context.Context) ([]string, error) {
	return s.schemas.Types(ctx, HandlerFetchers)
}

// ParserTypes lists the parser type tags.
func (s *Sources) ParserTypes(ctx context.Context) ([]string, error) {
	return s.schemas.Types(ctx, HandlerParsers)
}

// Prepare fills in what a new source may leave blank: a slug derived from
// the name and empty options objects.
func (s *Sources) Prepare(src resource.Source) resource.Source {
	src.Slug = SuggestSlug(src.Name, src.Slug)
	src.FetcherOptions = blankObject(src.FetcherOptions)
	src.ParserOptions = blankObject(src.ParserOptions)
	return src
}

// Validation returns the validation of src, including its options against the
// selected types' schemas.
func (s *Sources) Validation(ctx context.Context, src resource.Source) CheckedForm {
	return CheckedForm{Check: func() []resource.ValidationError {
		var fields validation.Fields
		fields.Add("name", src.Name, validation.Required(), validation.MaxTextLength(255))
		fields.Add("slug", src.Slug, validation.Required(), validation.MaxTextLength(255))
		fields.Add("fetcherType", src.FetcherType, validation.Required())
		fields.Add("fetcherOptions", blankObject(src.FetcherOptions), validation.JSON())
		fields.Add("parserType", src.ParserType, validation.Required())
		fields.Add("parserOptions", blankObject(src.ParserOptions), validation.JSON())

		errs := fields.Validate()
		errs = append(errs, checkOptions(ctx, s.schemas, s.logger, HandlerFetchers, src.FetcherType, "fetcherOptions", src.FetcherOptions, errs)...)
		errs = append(errs, checkOptions(ctx, s.schemas, s.logger, HandlerParsers, src.ParserType, "parserOptions", src.ParserOptions, errs)...)
		return errs
	}}
}

// SuggestSlug returns slug, or a slug derived from name when slug is blank.
func SuggestSlug(name, slug string) string {
	if slug = strings.TrimSpace(slug); slug != "" {
		return slug
	}
	return naming.Slugify(name)
}

func blankObject(text string) string {
	if strings.TrimSpace(text) == "" {
		return "{}"
	}
	return text
}
