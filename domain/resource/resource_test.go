package resource

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{101, 25, 5},
		{5, 0, 0},
		{5, -1, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.count, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.count, tt.size, got, tt.want)
		}
	}
}

func TestNewList(t *testing.T) {
	l := NewList[Source](26, 2, 25, nil)
	if l.Pages != 2 {
		t.Errorf("Pages = %d, want 2", l.Pages)
	}
	if l.Results == nil {
		t.Error("Results should be an empty slice, not nil")
	}
	if !l.HasPrev() {
		t.Error("HasPrev = false on page 2")
	}
	if l.HasNext() {
		t.Error("HasNext = true on last page")
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"chat_id": "123", "disable_link_preview": false}`,
		"{\n  \"url\": \"https://example.com/rss\",\n  \"nested\": {\"a\": [1, 2, 3]}\n}",
		`[]`,
		`null`,
		`  `,
	}

	for _, in := range inputs {
		first, err := DecodeOptions("options", in)
		if err != nil {
			t.Fatalf("DecodeOptions(%q) error: %v", in, err)
		}
		second, err := DecodeOptions("options", EncodeOptions(first))
		if err != nil {
			t.Fatalf("DecodeOptions(EncodeOptions(%q)) error: %v", in, err)
		}
		if string(first) != string(second) {
			t.Errorf("round trip of %q: %s != %s", in, first, second)
		}
	}
}

func TestDecodeOptions_Invalid(t *testing.T) {
	_, err := DecodeOptions("fetcherOptions", `{"url": `)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("errors.Is(err, ErrInvalidOptions) = false for %v", err)
	}
	var oe *OptionsError
	if !errors.As(err, &oe) || oe.Field != "fetcherOptions" {
		t.Errorf("expected OptionsError for fetcherOptions, got %#v", err)
	}
}

func TestDecodeModifiers(t *testing.T) {
	mods := []Modifier{
		{Type: "replace_text", Options: `{"field": "title"}`},
		{Type: "compare_and_filter", Options: `{"field": "score", "operator": ">"}`},
	}

	raw, err := DecodeModifiers(mods)
	if err != nil {
		t.Fatalf("DecodeModifiers error: %v", err)
	}
	want := []string{`{"field":"title"}`, `{"field":"score","operator":">"}`}
	got := []string{string(raw[0]), string(raw[1])}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded modifiers mismatch (-want +got):\n%s", diff)
	}

	mods = append(mods, Modifier{Type: "broken", Options: "{"})
	_, err = DecodeModifiers(mods)
	var oe *OptionsError
	if !errors.As(err, &oe) || oe.Field != "modifiers.2.options" {
		t.Errorf("expected OptionsError on modifiers.2.options, got %v", err)
	}
}

func TestSnapshotAndDirty(t *testing.T) {
	s := Stream{
		ReceiverOptionsOverride: `{"chat_id": "1"}`,
		Modifiers:               []Modifier{{Type: "replace_text", Options: `{}`}},
	}
	if !s.Dirty() {
		t.Error("new stream with options should be dirty")
	}

	s.Snapshot()
	if s.Dirty() {
		t.Error("stream should be clean right after snapshot")
	}

	// Whitespace differences are not changes.
	s.ReceiverOptionsOverride = `{ "chat_id" : "1" }`
	if s.Dirty() {
		t.Error("reformatted options should not be dirty")
	}

	s.Modifiers[0].Options = `{"field": "title"}`
	if !s.Dirty() {
		t.Error("edited modifier should be dirty")
	}
	if s.SavedModifiers[0].Options != `{}` {
		t.Error("snapshot must not alias the live modifiers")
	}
}

func TestSourceAndReceiverDirty(t *testing.T) {
	src := Source{FetcherOptions: `{}`, ParserOptions: `{}`}
	src.Snapshot()
	src.ParserOptions = `{"limit": 5}`
	if !src.Dirty() {
		t.Error("source with changed parser options should be dirty")
	}

	rcv := Receiver{Options: `{"chat_id": "1"}`}
	rcv.Snapshot()
	if rcv.Dirty() {
		t.Error("receiver should be clean after snapshot")
	}
}

func TestRebase(t *testing.T) {
	loaded := Stream{
		Slug:                    "hn",
		ReceiverOptionsOverride: `{"chat_id": "1"}`,
		Modifiers:               []Modifier{{Type: "limit", Options: `{"count": 5}`}},
	}
	loaded.Snapshot()

	edited := Stream{Slug: "hn", ReceiverOptionsOverride: `{"chat_id": "2"}`}.Rebase(loaded)
	if edited.SavedReceiverOptionsOverride != `{"chat_id": "1"}` {
		t.Errorf("SavedReceiverOptionsOverride = %q", edited.SavedReceiverOptionsOverride)
	}
	if !edited.Dirty() {
		t.Error("edited stream should be dirty against the loaded baseline")
	}
	edited.SavedModifiers[0].Options = "{}"
	if loaded.SavedModifiers[0].Options != `{"count": 5}` {
		t.Error("rebase must not alias the previous baseline")
	}

	src := Source{FetcherOptions: `{"url": "a"}`, ParserOptions: "{}"}
	src.Snapshot()
	if got := (Source{FetcherOptions: `{"url": "b"}`}).Rebase(src); got.SavedFetcherOptions != `{"url": "a"}` || got.SavedParserOptions != "{}" {
		t.Errorf("source rebase = %+v", got)
	}

	rcv := Receiver{Options: `{"chat_id": 1}`}
	rcv.Snapshot()
	if got := (Receiver{}).Rebase(rcv); got.SavedOptions != `{"chat_id": 1}` {
		t.Errorf("receiver rebase = %+v", got)
	}
}

func TestParseSaveType(t *testing.T) {
	tests := map[string]SaveType{
		"":                       SaveAndEdit,
		"save":                   SaveAndEdit,
		"save-and-list":          SaveAndList,
		"save-and-create-stream": SaveAndCreateStream,
		"bogus":                  SaveAndEdit,
	}
	for in, want := range tests {
		if got := ParseSaveType(in); got != want {
			t.Errorf("ParseSaveType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOptions(t *testing.T) {
	if got := FormatOptions(`{"a":1}`); got != "{\n  \"a\": 1\n}" {
		t.Errorf("FormatOptions = %q", got)
	}
	if got := FormatOptions(`{bad`); got != `{bad` {
		t.Errorf("FormatOptions should return invalid text unchanged, got %q", got)
	}
}
