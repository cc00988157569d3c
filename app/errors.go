// Package app holds the admin's UI-agnostic core: list and form controllers,
// debounced search and the per-resource workspaces built on them.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/pkg/naming"
)

// NonFieldKey is the FormErrors key of form-level errors.
const NonFieldKey = "nonFieldError"

// NormalizeErrors converts a failed operation into validation errors that a
// form can render. Field names come back in camelCase.
func NormalizeErrors(err error) []resource.ValidationError {
	if err == nil {
		return nil
	}

	var optErr *resource.OptionsError
	if errors.As(err, &optErr) {
		return []resource.ValidationError{{Message: fmt.Sprintf("Invalid JSON in %s.", optErr.Field)}}
	}

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.Details) == 0 {
			return []resource.ValidationError{{Message: apiErr.Message}}
		}
		out := make([]resource.ValidationError, 0, len(apiErr.Details))
		for _, d := range apiErr.Details {
			out = append(out, resource.ValidationError{
				Field:   naming.FieldPath(d.Field),
				Message: d.Message,
			})
		}
		return out
	}

	return []resource.ValidationError{{Message: err.Error()}}
}

// FormErrors keys validation errors by field name, with form-level errors
// under NonFieldKey. A later error on the same key wins.
func FormErrors(errs []resource.ValidationError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if e.NonField() {
			out[NonFieldKey] = e.Message
			continue
		}
		out[e.Field] = e.Message
	}
	return out
}

// Errors is the validation error list shared by a workspace and its form.
type Errors struct {
	mu   sync.RWMutex
	list []resource.ValidationError
}

// Set replaces the list.
func (e *Errors) Set(list []resource.ValidationError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = list
}

// Clear empties the list.
func (e *Errors) Clear() { e.Set(nil) }

// List returns a copy of the list.
func (e *Errors) List() []resource.ValidationError {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]resource.ValidationError(nil), e.list...)
}

// Fields returns the list keyed for rendering, see FormErrors.
func (e *Errors) Fields() map[string]string {
	return FormErrors(e.List())
}
