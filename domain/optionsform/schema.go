package optionsform

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

func compile(typ string, doc []byte) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	loc := "mem://options/" + url.PathEscape(typ) + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, parsed); err != nil {
		return nil, err
	}
	return c.Compile(loc)
}

// Validate checks options text against the variant's schema. Every message
// is attributed to field. A schema that failed to compile accepts anything.
func (v *Variant) Validate(field, optionsText string) []resource.ValidationError {
	text := strings.TrimSpace(optionsText)
	if text == "" {
		text = "{}"
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return []resource.ValidationError{{Field: field, Message: "Invalid JSON."}}
	}
	if v.schema == nil {
		return nil
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []resource.ValidationError{{Field: field, Message: err.Error()}}
	}

	var out []resource.ValidationError
	for _, msg := range causeMessages(ve.Error()) {
		out = append(out, resource.ValidationError{Field: field, Message: msg})
	}
	if len(out) == 0 {
		out = append(out, resource.ValidationError{Field: field, Message: ve.Error()})
	}
	return out
}

// CompileError reports why the variant's schema could not be compiled.
func (v *Variant) CompileError() error { return v.compileErr }

// causeMessages extracts the leaf lines of a validation error, which look
// like "- at '/chat_id': got number, want string".
func causeMessages(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "- at '")
		if !ok {
			continue
		}
		loc, msg, ok := strings.Cut(rest, "': ")
		if !ok {
			continue
		}
		if loc = strings.TrimPrefix(loc, "/"); loc != "" {
			msg = loc + ": " + msg
		}
		out = append(out, msg)
	}
	return out
}

func sanitizeHelp(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	helpPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "i", "em", "strong", "code", "br")
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		policy.AllowStandardURLs()
		helpPolicy = policy
	})
	return strings.TrimSpace(helpPolicy.Sanitize(trimmed))
}
