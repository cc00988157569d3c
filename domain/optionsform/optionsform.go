// Package optionsform turns the processor option schemas served by the API
// into a table of form variants keyed by type tag.
//
// A variant is built once from its JSON schema. Rendering, encoding and
// validation then work from the variant's fields instead of re-reading the
// schema document.
package optionsform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Kind is the widget used for an option field.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindJSON     Kind = "json"
)

// Field is a single option property.
type Field struct {
	Name     string
	Label    string
	Help     string // sanitized HTML
	Kind     Kind
	Enum     []string
	Default  string
	Required bool
}

// Variant is the form for one type tag.
type Variant struct {
	Type   string
	Title  string
	Fields []Field

	schema     *jsonschema.Schema
	compileErr error
}

// Table maps type tags to variants.
type Table struct {
	variants map[string]*Variant
	types    []string
}

// ParseCatalog builds a table from a type -> JSON schema mapping.
func ParseCatalog(raw map[string]json.RawMessage) (*Table, error) {
	t := &Table{variants: make(map[string]*Variant, len(raw))}

	for typ, doc := range raw {
		v, err := parseVariant(typ, doc)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", typ, err)
		}
		t.variants[typ] = v
		t.types = append(t.types, typ)
	}
	sort.Strings(t.types)

	return t, nil
}

// Types returns the known type tags in sorted order.
func (t *Table) Types() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.types...)
}

// Variant returns the form for a type tag.
func (t *Table) Variant(typ string) (*Variant, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.variants[typ]
	return v, ok
}

// Len returns the number of variants.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.variants)
}

type objectSchema struct {
	Title       string                     `json:"title"`
	Properties  json.RawMessage            `json:"properties"`
	Required    []string                   `json:"required"`
	Defs        map[string]json.RawMessage `json:"$defs"`
	Definitions map[string]json.RawMessage `json:"definitions"`
}

type propertySchema struct {
	Ref         string            `json:"$ref"`
	Type        json.RawMessage   `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Enum        []json.RawMessage `json:"enum"`
	Default     json.RawMessage   `json:"default"`
	AllOf       []propertySchema  `json:"allOf"`
}

func parseVariant(typ string, doc json.RawMessage) (*Variant, error) {
	var obj objectSchema
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	v := &Variant{Type: typ, Title: obj.Title}
	if v.Title == "" || v.Title == "type" {
		v.Title = typ
	}

	names, err := orderedKeys(obj.Properties)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	var props map[string]propertySchema
	if len(obj.Properties) > 0 {
		if err := json.Unmarshal(obj.Properties, &props); err != nil {
			return nil, fmt.Errorf("decode properties: %w", err)
		}
	}

	required := make(map[string]bool, len(obj.Required))
	for _, name := range obj.Required {
		required[name] = true
	}

	for _, name := range names {
		prop := resolve(props[name], obj)
		v.Fields = append(v.Fields, newField(name, prop, required[name]))
	}

	v.schema, v.compileErr = compile(typ, doc)
	return v, nil
}

// resolve follows a local $ref, or a single-element allOf wrapping one,
// keeping the referring property's own title and description.
func resolve(p propertySchema, root objectSchema) propertySchema {
	ref := p.Ref
	if ref == "" && len(p.AllOf) == 1 {
		ref = p.AllOf[0].Ref
	}
	if ref == "" {
		return p
	}

	var target json.RawMessage
	switch {
	case strings.HasPrefix(ref, "#/$defs/"):
		target = root.Defs[strings.TrimPrefix(ref, "#/$defs/")]
	case strings.HasPrefix(ref, "#/definitions/"):
		target = root.Definitions[strings.TrimPrefix(ref, "#/definitions/")]
	}

	var resolved propertySchema
	if len(target) == 0 || json.Unmarshal(target, &resolved) != nil {
		return p
	}
	if p.Title != "" {
		resolved.Title = p.Title
	}
	if p.Description != "" {
		resolved.Description = p.Description
	}
	if len(p.Default) > 0 {
		resolved.Default = p.Default
	}
	return resolved
}

func newField(name string, p propertySchema, required bool) Field {
	f := Field{
		Name:     name,
		Label:    p.Title,
		Help:     sanitizeHelp(p.Description),
		Required: required,
	}
	if f.Label == "" {
		f.Label = name
	}

	for _, e := range p.Enum {
		f.Enum = append(f.Enum, scalarText(e))
	}

	switch primaryType(p.Type) {
	case "string":
		f.Kind = KindText
	case "integer":
		f.Kind = KindInteger
	case "number":
		f.Kind = KindNumber
	case "boolean":
		f.Kind = KindCheckbox
	default:
		f.Kind = KindJSON
	}
	if len(f.Enum) > 0 && f.Kind != KindCheckbox {
		f.Kind = KindSelect
	}

	if len(p.Default) > 0 {
		f.Default = displayValue(f.Kind, p.Default)
	}
	return f
}

// primaryType picks the first non-null entry of "type", which may be a
// string or a list of strings.
func primaryType(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return single
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		for _, t := range many {
			if t != "null" {
				return t
			}
		}
	}
	return ""
}

// orderedKeys returns the keys of a JSON object in document order.
func orderedKeys(raw json.RawMessage) ([]string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("properties is not an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func scalarText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
