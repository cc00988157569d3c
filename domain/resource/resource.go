// Package resource defines the configuration records managed by the admin:
// sources, receivers and streams.
package resource

import "slices"

// Kind identifies a resource collection on the REST API.
type Kind string

const (
	KindSources   Kind = "sources"
	KindReceivers Kind = "receivers"
	KindStreams   Kind = "streams"
)

// Title returns the display name of the collection.
func (k Kind) Title() string {
	switch k {
	case KindSources:
		return "Sources"
	case KindReceivers:
		return "Receivers"
	case KindStreams:
		return "Streams"
	default:
		return string(k)
	}
}

// Source describes where posts come from and how they are parsed.
// FetcherOptions and ParserOptions hold JSON text.
type Source struct {
	Name           string
	Slug           string
	FetcherType    string
	FetcherOptions string
	ParserType     string
	ParserOptions  string
	Description    string
	Tags           []string

	SavedFetcherOptions string
	SavedParserOptions  string
}

// Key returns the slug.
func (s Source) Key() string { return s.Slug }

// Snapshot records the current options as the saved baseline.
func (s *Source) Snapshot() {
	s.SavedFetcherOptions = s.FetcherOptions
	s.SavedParserOptions = s.ParserOptions
}

// Rebase returns s carrying the saved baseline of prev.
func (s Source) Rebase(prev Source) Source {
	s.SavedFetcherOptions = prev.SavedFetcherOptions
	s.SavedParserOptions = prev.SavedParserOptions
	return s
}

// Dirty reports whether the options differ from the saved baseline.
func (s Source) Dirty() bool {
	return !SameOptions(s.FetcherOptions, s.SavedFetcherOptions) ||
		!SameOptions(s.ParserOptions, s.SavedParserOptions)
}

// Receiver describes where messages are delivered.
type Receiver struct {
	Name                     string
	Slug                     string
	Type                     string
	Options                  string
	OptionsAllowedToOverride []string

	SavedOptions string
}

// Key returns the slug.
func (r Receiver) Key() string { return r.Slug }

// Snapshot records the current options as the saved baseline.
func (r *Receiver) Snapshot() {
	r.SavedOptions = r.Options
}

// Rebase returns r carrying the saved baseline of prev.
func (r Receiver) Rebase(prev Receiver) Receiver {
	r.SavedOptions = prev.SavedOptions
	return r
}

// Dirty reports whether the options differ from the saved baseline.
func (r Receiver) Dirty() bool {
	return !SameOptions(r.Options, r.SavedOptions)
}

// Modifier is one transformation step of a stream. Options holds JSON text.
type Modifier struct {
	Type    string
	Options string
}

// Stream binds a source to a receiver on a schedule.
// Modifiers are applied in slice order.
type Stream struct {
	Slug                    string
	SourceSlug              string
	ReceiverSlug            string
	Intervals               []string
	Squash                  bool
	ReceiverOptionsOverride string
	MessageTemplate         string
	Modifiers               []Modifier
	Active                  bool

	// Populated on list results only.
	Source   *Source
	Receiver *Receiver

	SavedReceiverOptionsOverride string
	SavedModifiers               []Modifier
}

// Key returns the slug.
func (s Stream) Key() string { return s.Slug }

// Snapshot records the current options and modifiers as the saved baseline.
func (s *Stream) Snapshot() {
	s.SavedReceiverOptionsOverride = s.ReceiverOptionsOverride
	s.SavedModifiers = slices.Clone(s.Modifiers)
}

// Rebase returns s carrying the saved baseline of prev.
func (s Stream) Rebase(prev Stream) Stream {
	s.SavedReceiverOptionsOverride = prev.SavedReceiverOptionsOverride
	s.SavedModifiers = slices.Clone(prev.SavedModifiers)
	return s
}

// Dirty reports whether the options or modifiers differ from the saved baseline.
func (s Stream) Dirty() bool {
	if !SameOptions(s.ReceiverOptionsOverride, s.SavedReceiverOptionsOverride) {
		return true
	}
	if len(s.Modifiers) != len(s.SavedModifiers) {
		return true
	}
	for i, m := range s.Modifiers {
		saved := s.SavedModifiers[i]
		if m.Type != saved.Type || !SameOptions(m.Options, saved.Options) {
			return true
		}
	}
	return false
}

// Choice is a labelled value offered by the backend, such as a schedule
// interval or a message template.
type Choice struct {
	Text  string
	Value string
}

// SaveType selects where a form goes after a successful save.
type SaveType string

const (
	SaveAndEdit         SaveType = "save"
	SaveAndList         SaveType = "save-and-list"
	SaveAndCreateStream SaveType = "save-and-create-stream"
)

// ParseSaveType maps a submit button value to a SaveType, defaulting to SaveAndEdit.
func ParseSaveType(s string) SaveType {
	switch SaveType(s) {
	case SaveAndList, SaveAndCreateStream:
		return SaveType(s)
	default:
		return SaveAndEdit
	}
}
