package app

import (
	"context"
	"net/url"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/domain/validation"
	"github.com/feedwatchdog/admin/ports"
)

// Receivers is the workspace of the receiver screens.
type Receivers struct {
	*Workspace[resource.Receiver]

	schemas *SchemaCatalog
}

// NewReceivers creates the receivers workspace.
func NewReceivers(api ports.ResourceAPI[resource.Receiver], schemas *SchemaCatalog, opts WorkspaceOptions) *Receivers {
	ws := NewWorkspace[resource.Receiver](resource.KindReceivers, api, resource.Receiver.Key, opts)
	ws.afterSave = func(r resource.Receiver) string {
		return CreatePath(resource.KindStreams) + "?receiver=" + url.QueryEscape(r.Slug)
	}
	ws.blank = func(slug string) resource.Receiver { return resource.Receiver{Slug: slug} }
	ws.rebase = resource.Receiver.Rebase
	return &Receivers{Workspace: ws, schemas: schemas}
}

// BeginForm starts a form session by fetching the receiver schemas again.
func (r *Receivers) BeginForm(ctx context.Context) {
	r.schemas.Refresh(ctx, HandlerReceivers)
}

// ReceiverTypes lists the receiver type tags.
func (r *Receivers) ReceiverTypes(ctx context.Context) ([]string, error) {
	return r.schemas.Types(ctx, HandlerReceivers)
}

// OverridableOptions lists the option names of typ that a stream may
// override, from the type's schema. Unknown types have none.
func (r *Receivers) OverridableOptions(ctx context.Context, typ string) ([]string, error) {
	v, err := r.schemas.Variant(ctx, HandlerReceivers, typ)
	if err != nil || v == nil {
		return nil, err
	}
	names := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		names = append(names, f.Name)
	}
	return names, nil
}

// Prepare fills in a slug derived from the name and an empty options object.
func (r *Receivers) Prepare(rcv resource.Receiver) resource.Receiver {
	rcv.Slug = SuggestSlug(rcv.Name, rcv.Slug)
	rcv.Options = blankObject(rcv.Options)
	return rcv
}

// Validation returns the validation of rcv.
func (r *Receivers) Validation(ctx context.Context, rcv resource.Receiver) CheckedForm {
	return CheckedForm{Check: func() []resource.ValidationError {
		var fields validation.Fields
		fields.Add("name", rcv.Name, validation.Required(), validation.MaxTextLength(255))
		fields.Add("slug", rcv.Slug, validation.Required(), validation.MaxTextLength(255))
		fields.Add("type", rcv.Type, validation.Required())
		fields.Add("options", blankObject(rcv.Options), validation.JSON())

		errs := fields.Validate()
		return append(errs, checkOptions(ctx, r.schemas, r.logger, HandlerReceivers, rcv.Type, "options", rcv.Options, errs)...)
	}}
}
