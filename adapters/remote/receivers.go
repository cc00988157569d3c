package remote

import (
	"encoding/json"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
)

type receiverWire struct {
	Name                     string          `json:"name"`
	Slug                     string          `json:"slug"`
	Type                     string          `json:"type"`
	Options                  json.RawMessage `json:"options"`
	OptionsAllowedToOverride []string        `json:"options_allowed_to_override"`
}

func receiverToWire(r resource.Receiver) (receiverWire, error) {
	options, err := resource.DecodeOptions("options", r.Options)
	if err != nil {
		return receiverWire{}, err
	}

	allowed := r.OptionsAllowedToOverride
	if allowed == nil {
		allowed = []string{}
	}

	return receiverWire{
		Name:                     r.Name,
		Slug:                     r.Slug,
		Type:                     r.Type,
		Options:                  options,
		OptionsAllowedToOverride: allowed,
	}, nil
}

func receiverFromWire(w receiverWire) resource.Receiver {
	return resource.Receiver{
		Name:                     w.Name,
		Slug:                     w.Slug,
		Type:                     w.Type,
		Options:                  resource.EncodeOptions(w.Options),
		OptionsAllowedToOverride: w.OptionsAllowedToOverride,
	}
}

// Receivers is the /receivers/ collection.
type Receivers struct {
	collection[resource.Receiver, receiverWire]
}

// NewReceivers creates the receivers API.
func NewReceivers(client *Client) *Receivers {
	return &Receivers{collection[resource.Receiver, receiverWire]{
		client:   client,
		kind:     resource.KindReceivers,
		toWire:   receiverToWire,
		fromWire: receiverFromWire,
		key:      resource.Receiver.Key,
		snapshot: (*resource.Receiver).Snapshot,
	}}
}

// Ensure interface compliance.
var _ ports.ResourceAPI[resource.Receiver] = (*Receivers)(nil)
