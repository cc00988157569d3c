package optionsform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/feedwatchdog/admin/domain/resource"
)

// Values decodes options text into one display string per field. Fields
// missing from the text show their default. Invalid text yields defaults only.
func (v *Variant) Values(optionsText string) map[string]string {
	current := map[string]json.RawMessage{}
	if strings.TrimSpace(optionsText) != "" {
		_ = json.Unmarshal([]byte(optionsText), &current)
	}

	out := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		raw, ok := current[f.Name]
		if !ok {
			out[f.Name] = f.Default
			continue
		}
		out[f.Name] = displayValue(f.Kind, raw)
	}
	return out
}

// Encode builds options text from submitted form values. Optional fields
// left blank are omitted. The returned error is a resource.ValidationError
// naming the offending field.
func (v *Variant) Encode(form map[string]string) (string, error) {
	out := make(map[string]any, len(v.Fields))

	for _, f := range v.Fields {
		value := strings.TrimSpace(form[f.Name])

		if f.Kind == KindCheckbox {
			out[f.Name] = value == "on" || value == "true" || value == "1"
			continue
		}
		if value == "" {
			if f.Required {
				return "", resource.ValidationError{Field: f.Name, Message: "Field is required."}
			}
			continue
		}

		switch f.Kind {
		case KindInteger:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "", resource.ValidationError{Field: f.Name, Message: "Must be a whole number."}
			}
			out[f.Name] = n
		case KindNumber:
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return "", resource.ValidationError{Field: f.Name, Message: "Must be a number."}
			}
			out[f.Name] = n
		case KindJSON:
			if !json.Valid([]byte(value)) {
				return "", resource.ValidationError{Field: f.Name, Message: "Invalid JSON."}
			}
			out[f.Name] = json.RawMessage(value)
		default:
			out[f.Name] = value
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Draft builds options text from form values that Encode rejected, so the
// form can be shown again with the user's input. Values are kept as entered,
// as strings, except checkboxes. Blank values are omitted.
func (v *Variant) Draft(form map[string]string) string {
	out := make(map[string]any, len(v.Fields))
	for _, f := range v.Fields {
		value := strings.TrimSpace(form[f.Name])
		switch {
		case f.Kind == KindCheckbox:
			out[f.Name] = value == "on" || value == "true" || value == "1"
		case value != "":
			out[f.Name] = value
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func displayValue(kind Kind, raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	switch kind {
	case KindText, KindSelect:
		return scalarText(raw)
	case KindCheckbox:
		var b bool
		if json.Unmarshal(raw, &b) == nil && b {
			return "true"
		}
		return "false"
	case KindJSON:
		return resource.FormatOptions(string(raw))
	default:
		return scalarText(raw)
	}
}
