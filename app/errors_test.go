package app

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/google/go-cmp/cmp"
)

func notFound() error {
	return &remote.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []resource.ValidationError
	}{
		{name: "nil", err: nil, want: nil},
		{
			name: "invalid options",
			err:  fmt.Errorf("create: %w", &resource.OptionsError{Field: "fetcherOptions"}),
			want: []resource.ValidationError{{Message: "Invalid JSON in fetcherOptions."}},
		},
		{
			name: "api message",
			err:  &remote.APIError{StatusCode: 409, Message: "Slug already taken"},
			want: []resource.ValidationError{{Message: "Slug already taken"}},
		},
		{
			name: "api field details",
			err: &remote.APIError{StatusCode: 422, Message: "Validation failed", Details: []remote.FieldDetail{
				{Field: "fetcher_type", Message: "field required"},
				{Field: "modifiers.0.options", Message: "bad"},
			}},
			want: []resource.ValidationError{
				{Field: "fetcherType", Message: "field required"},
				{Field: "modifiers.0.options", Message: "bad"},
			},
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: []resource.ValidationError{{Message: "boom"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeErrors(tt.err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormalizeErrors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormErrors(t *testing.T) {
	got := FormErrors([]resource.ValidationError{
		{Field: "name", Message: "first"},
		{Message: "form level"},
		{Field: "name", Message: "second"},
	})
	want := map[string]string{"name": "second", NonFieldKey: "form level"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormErrors mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_ListIsCopy(t *testing.T) {
	var e Errors
	e.Set([]resource.ValidationError{{Field: "slug", Message: "taken"}})

	list := e.List()
	list[0].Message = "changed"

	if got := e.Fields()["slug"]; got != "taken" {
		t.Errorf("Fields[slug] = %q, want taken", got)
	}

	e.Clear()
	if len(e.List()) != 0 {
		t.Errorf("List after Clear = %v, want empty", e.List())
	}
}
