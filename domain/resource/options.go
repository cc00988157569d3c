package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is matched by every OptionsError.
var ErrInvalidOptions = errors.New("invalid options")

// OptionsError reports an options field whose text is not valid JSON.
type OptionsError struct {
	Field string
	Err   error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid JSON in %s", e.Field)
}

func (e *OptionsError) Unwrap() error { return e.Err }

func (e *OptionsError) Is(target error) bool { return target == ErrInvalidOptions }

// DecodeOptions parses options text into compact JSON ready to be sent.
// Blank text decodes as an empty object.
func DecodeOptions(field, text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return json.RawMessage(`{}`), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return nil, &OptionsError{Field: field, Err: err}
	}
	return json.RawMessage(buf.Bytes()), nil
}

// EncodeOptions renders received options as JSON text for editing.
// Missing or null options render as an empty object.
func EncodeOptions(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "{}"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// FormatOptions pretty-prints options text for a textarea. Invalid text is
// returned unchanged so the user can fix it.
func FormatOptions(text string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(text)), "", "  "); err != nil {
		return text
	}
	return buf.String()
}

// SameOptions compares two options texts by their compact form.
func SameOptions(a, b string) bool {
	ca, errA := DecodeOptions("", a)
	cb, errB := DecodeOptions("", b)
	if errA != nil || errB != nil {
		return a == b
	}
	return bytes.Equal(ca, cb)
}

// DecodeModifiers decodes every modifier's options, failing on the first
// invalid one. Order is preserved.
func DecodeModifiers(mods []Modifier) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(mods))
	for i, m := range mods {
		raw, err := DecodeOptions(fmt.Sprintf("modifiers.%d.options", i), m.Options)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
