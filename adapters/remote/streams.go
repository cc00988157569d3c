package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
)

type modifierWire struct {
	Type    string          `json:"type"`
	Options json.RawMessage `json:"options"`
}

// refWire is the short form of a source or receiver embedded in stream lists.
type refWire struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type streamWire struct {
	Slug                    string          `json:"slug"`
	SourceSlug              string          `json:"source_slug,omitempty"`
	ReceiverSlug            string          `json:"receiver_slug,omitempty"`
	Intervals               []string        `json:"intervals"`
	Squash                  bool            `json:"squash"`
	ReceiverOptionsOverride json.RawMessage `json:"receiver_options_override"`
	MessageTemplate         string          `json:"message_template"`
	Modifiers               []modifierWire  `json:"modifiers"`
	Active                  bool            `json:"active"`

	// Present on list results only.
	Source   *refWire `json:"source,omitempty"`
	Receiver *refWire `json:"receiver,omitempty"`
}

func streamToWire(s resource.Stream) (streamWire, error) {
	override, err := resource.DecodeOptions("receiverOptionsOverride", s.ReceiverOptionsOverride)
	if err != nil {
		return streamWire{}, err
	}
	options, err := resource.DecodeModifiers(s.Modifiers)
	if err != nil {
		return streamWire{}, err
	}

	modifiers := make([]modifierWire, len(s.Modifiers))
	for i, m := range s.Modifiers {
		modifiers[i] = modifierWire{Type: m.Type, Options: options[i]}
	}

	intervals := s.Intervals
	if intervals == nil {
		intervals = []string{}
	}

	return streamWire{
		Slug:                    s.Slug,
		SourceSlug:              s.SourceSlug,
		ReceiverSlug:            s.ReceiverSlug,
		Intervals:               intervals,
		Squash:                  s.Squash,
		ReceiverOptionsOverride: override,
		MessageTemplate:         s.MessageTemplate,
		Modifiers:               modifiers,
		Active:                  s.Active,
	}, nil
}

func streamFromWire(w streamWire) resource.Stream {
	s := resource.Stream{
		Slug:                    w.Slug,
		SourceSlug:              w.SourceSlug,
		ReceiverSlug:            w.ReceiverSlug,
		Intervals:               w.Intervals,
		Squash:                  w.Squash,
		ReceiverOptionsOverride: resource.EncodeOptions(w.ReceiverOptionsOverride),
		MessageTemplate:         w.MessageTemplate,
		Active:                  w.Active,
	}

	for _, m := range w.Modifiers {
		s.Modifiers = append(s.Modifiers, resource.Modifier{
			Type:    m.Type,
			Options: resource.EncodeOptions(m.Options),
		})
	}

	if w.Source != nil {
		s.Source = &resource.Source{Name: w.Source.Name, Slug: w.Source.Slug}
		if s.SourceSlug == "" {
			s.SourceSlug = w.Source.Slug
		}
	}
	if w.Receiver != nil {
		s.Receiver = &resource.Receiver{Name: w.Receiver.Name, Slug: w.Receiver.Slug}
		if s.ReceiverSlug == "" {
			s.ReceiverSlug = w.Receiver.Slug
		}
	}

	return s
}

type choiceWire struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Streams is the /streams/ collection.
type Streams struct {
	collection[resource.Stream, streamWire]
}

// NewStreams creates the streams API.
func NewStreams(client *Client) *Streams {
	return &Streams{collection[resource.Stream, streamWire]{
		client:   client,
		kind:     resource.KindStreams,
		toWire:   streamToWire,
		fromWire: streamFromWire,
		key:      resource.Stream.Key,
		snapshot: (*resource.Stream).Snapshot,
	}}
}

// Intervals lists the schedule intervals a stream can run on.
func (s *Streams) Intervals(ctx context.Context) ([]resource.Choice, error) {
	return s.choices(ctx, "/streams/intervals/")
}

// MessageTemplates lists the predefined message templates.
func (s *Streams) MessageTemplates(ctx context.Context) ([]resource.Choice, error) {
	return s.choices(ctx, "/streams/message_templates/")
}

func (s *Streams) choices(ctx context.Context, path string) ([]resource.Choice, error) {
	var wire []choiceWire
	if err := s.client.Request(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	choices := make([]resource.Choice, len(wire))
	for i, c := range wire {
		choices[i] = resource.Choice{Text: c.Text, Value: c.Value}
	}
	return choices, nil
}

// Ensure interface compliance.
var _ ports.ResourceAPI[resource.Stream] = (*Streams)(nil)
