package app

import (
	"context"
	"fmt"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/domain/validation"
	"github.com/feedwatchdog/admin/ports"
)

// StreamsAPI is the remote surface of the streams screens.
type StreamsAPI interface {
	ports.ResourceAPI[resource.Stream]
	Intervals(ctx context.Context) ([]resource.Choice, error)
	MessageTemplates(ctx context.Context) ([]resource.Choice, error)
}

// Streams is the workspace of the stream screens. The source and receiver
// pickers search their collections as the user types.
type Streams struct {
	*Workspace[resource.Stream]

	api     StreamsAPI
	schemas *SchemaCatalog

	SourceSearch   *SearchField[resource.Source]
	ReceiverSearch *SearchField[resource.Receiver]
}

// StreamsOptions configures the pickers of the streams workspace.
type StreamsOptions struct {
	WorkspaceOptions
	Search SearchOptions
}

// NewStreams creates the streams workspace.
func NewStreams(api StreamsAPI, sources ports.Lister[resource.Source], receivers ports.Lister[resource.Receiver], schemas *SchemaCatalog, opts StreamsOptions) *Streams {
	ws := NewWorkspace[resource.Stream](resource.KindStreams, api, resource.Stream.Key, opts.WorkspaceOptions)
	ws.blank = func(slug string) resource.Stream { return resource.Stream{Slug: slug} }
	ws.rebase = resource.Stream.Rebase

	sourceOpts := opts.Search
	sourceOpts.Field = "sourceSlug"
	receiverOpts := opts.Search
	receiverOpts.Field = "receiverSlug"
	if sourceOpts.Metrics == nil {
		sourceOpts.Metrics = opts.Metrics
		receiverOpts.Metrics = opts.Metrics
	}
	sourceOpts.Logger = ws.logger
	receiverOpts.Logger = ws.logger

	return &Streams{
		Workspace:      ws,
		api:            api,
		schemas:        schemas,
		SourceSearch:   NewSearchField[resource.Source](sources, sourceOpts),
		ReceiverSearch: NewSearchField[resource.Receiver](receivers, receiverOpts),
	}
}

// Intervals lists the schedule intervals a stream may run on.
func (s *Streams) Intervals(ctx context.Context) ([]resource.Choice, error) {
	return s.api.Intervals(ctx)
}

// MessageTemplates lists the predefined message templates.
func (s *Streams) MessageTemplates(ctx context.Context) ([]resource.Choice, error) {
	return s.api.MessageTemplates(ctx)
}

// ModifierTypes lists the modifier type tags.
func (s *Streams) ModifierTypes(ctx context.Context) ([]string, error) {
	return s.schemas.Types(ctx, HandlerModifiers)
}

// BeginForm starts a form session by fetching the modifier schemas again.
func (s *Streams) BeginForm(ctx context.Context) {
	s.schemas.Refresh(ctx, HandlerModifiers)
}

// New returns a blank stream, preselecting the source and receiver passed
// by a save-and-create-stream redirect.
func (s *Streams) New(sourceSlug, receiverSlug string) resource.Stream {
	return resource.Stream{
		SourceSlug:              sourceSlug,
		ReceiverSlug:            receiverSlug,
		ReceiverOptionsOverride: "{}",
		Active:                  true,
	}
}

// Prepare fills in empty options objects.
func (s *Streams) Prepare(st resource.Stream) resource.Stream {
	st.ReceiverOptionsOverride = blankObject(st.ReceiverOptionsOverride)
	for i := range st.Modifiers {
		st.Modifiers[i].Options = blankObject(st.Modifiers[i].Options)
	}
	return st
}

// Validation returns the validation of st. Modifier errors are keyed by position,
// as in modifiers.1.type.
func (s *Streams) Validation(ctx context.Context, st resource.Stream) CheckedForm {
	return CheckedForm{Check: func() []resource.ValidationError {
		var fields validation.Fields
		fields.Add("slug", st.Slug, validation.Required(), validation.MaxTextLength(255))
		fields.Add("sourceSlug", st.SourceSlug, validation.Required())
		fields.Add("receiverSlug", st.ReceiverSlug, validation.Required())
		fields.Add("receiverOptionsOverride", blankObject(st.ReceiverOptionsOverride), validation.JSON())
		for i, m := range st.Modifiers {
			fields.Add(fmt.Sprintf("modifiers.%d.type", i), m.Type, validation.Required())
			fields.Add(fmt.Sprintf("modifiers.%d.options", i), blankObject(m.Options), validation.JSON())
		}

		errs := fields.Validate()
		for i, m := range st.Modifiers {
			field := fmt.Sprintf("modifiers.%d.options", i)
			errs = append(errs, checkOptions(ctx, s.schemas, s.logger, HandlerModifiers, m.Type, field, m.Options, errs)...)
		}
		return errs
	}}
}
