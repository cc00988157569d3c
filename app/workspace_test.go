package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/google/go-cmp/cmp"
)

func newTestWorkspace(items ...resource.Receiver) (*Receivers, *fakeAPI[resource.Receiver], *fakeNavigator, *Chrome) {
	api := newFakeAPI(resource.Receiver.Key, items...)
	nav := &fakeNavigator{}
	chrome := NewChrome()
	rcv := NewReceivers(api, nil, WorkspaceOptions{Chrome: chrome, Navigator: nav})
	return rcv, api, nav, chrome
}

func TestPaths(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ListPath(resource.KindSources), "/sources"},
		{CreatePath(resource.KindStreams), "/streams/create"},
		{EditPath(resource.KindReceivers, "tg main"), "/receivers/tg%20main/edit"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestWorkspace_LoadNotFound(t *testing.T) {
	w, _, nav, chrome := newTestWorkspace()

	err := w.Load(context.Background(), "missing")
	if !remote.IsNotFound(err) {
		t.Fatalf("Load error = %v, want not found", err)
	}
	if nav.notFound != 1 {
		t.Errorf("NotFound calls = %d, want 1", nav.notFound)
	}
	if len(w.Errors.List()) != 0 || chrome.Dialog.Snapshot().Active {
		t.Error("not found should not report a form or dialog error")
	}
}

func TestWorkspace_Load(t *testing.T) {
	w, _, _, _ := newTestWorkspace(resource.Receiver{Slug: "tg", Name: "Telegram"})
	w.Errors.Set([]resource.ValidationError{{Message: "old"}})

	if err := w.Load(context.Background(), "tg"); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if w.Current().Name != "Telegram" {
		t.Errorf("Current = %+v", w.Current())
	}
	if len(w.Errors.List()) != 0 {
		t.Error("errors not cleared")
	}
}

func TestWorkspace_LoadFailureResetsCurrent(t *testing.T) {
	w, api, _, chrome := newTestWorkspace(
		resource.Receiver{Slug: "alpha", Name: "Alpha", Options: `{"chat_id": 1}`},
		resource.Receiver{Slug: "beta", Name: "Beta"},
	)
	ctx := context.Background()

	if err := w.Load(ctx, "alpha"); err != nil {
		t.Fatalf("Load(alpha) error: %v", err)
	}
	api.fail(&remote.APIError{StatusCode: 503, Message: "Service Unavailable"})

	if err := w.Load(ctx, "beta"); err == nil {
		t.Fatal("Load(beta) should fail")
	}
	if diff := cmp.Diff(resource.Receiver{Slug: "beta"}, w.Current()); diff != "" {
		t.Errorf("Current mismatch (-want +got):\n%s", diff)
	}
	if !chrome.Dialog.Snapshot().Active {
		t.Error("server error not shown in the dialog")
	}
}

func TestWorkspace_FailedUpdateKeepsBaseline(t *testing.T) {
	loaded := resource.Receiver{Slug: "tg", Name: "TG", Type: "telegram", Options: `{"chat_id": 1}`}
	loaded.Snapshot()
	ctx := context.Background()

	t.Run("api error", func(t *testing.T) {
		w, api, _, _ := newTestWorkspace(loaded)
		if err := w.Load(ctx, "tg"); err != nil {
			t.Fatalf("Load error: %v", err)
		}
		api.fail(&remote.APIError{StatusCode: 400, Message: "rejected"})

		edited := resource.Receiver{Slug: "tg", Name: "TG", Type: "telegram", Options: `{"chat_id": 2}`}
		if err := w.Update(ctx, edited, resource.SaveAndEdit); err == nil {
			t.Fatal("Update should fail")
		}

		got := w.Current()
		if got.Options != `{"chat_id": 2}` {
			t.Errorf("Options = %q, want the submitted options", got.Options)
		}
		if got.SavedOptions != `{"chat_id": 1}` {
			t.Errorf("SavedOptions = %q, want the loaded baseline", got.SavedOptions)
		}
		if !got.Dirty() {
			t.Error("edited receiver should be dirty")
		}
	})

	t.Run("invalid form", func(t *testing.T) {
		w, _, _, _ := newTestWorkspace(loaded)
		if err := w.Load(ctx, "tg"); err != nil {
			t.Fatalf("Load error: %v", err)
		}

		edited := resource.Receiver{Slug: "tg", Options: `{"chat_id": 3}`}
		err := w.Submit(ctx, w.Validation(ctx, edited), edited, resource.SaveAndEdit, false)
		if !errors.Is(err, ErrInvalidForm) {
			t.Fatalf("Submit error = %v, want ErrInvalidForm", err)
		}
		if got := w.Current().SavedOptions; got != `{"chat_id": 1}` {
			t.Errorf("SavedOptions = %q, want the loaded baseline", got)
		}
	})

	t.Run("other resource", func(t *testing.T) {
		w, api, _, _ := newTestWorkspace(loaded)
		if err := w.Load(ctx, "tg"); err != nil {
			t.Fatalf("Load error: %v", err)
		}
		api.fail(errors.New("connection reset"))

		if err := w.Update(ctx, resource.Receiver{Slug: "slack"}, resource.SaveAndEdit); err == nil {
			t.Fatal("Update should fail")
		}
		if got := w.Current().SavedOptions; got != "" {
			t.Errorf("SavedOptions = %q, want none for a different slug", got)
		}
	})
}

func TestWorkspace_SaveRedirects(t *testing.T) {
	tests := []struct {
		saveType resource.SaveType
		want     string
	}{
		{resource.SaveAndEdit, "/receivers/tg/edit"},
		{resource.SaveAndList, "/receivers"},
		{resource.SaveAndCreateStream, "/streams/create?receiver=tg"},
	}

	for _, tt := range tests {
		t.Run(string(tt.saveType), func(t *testing.T) {
			w, api, nav, _ := newTestWorkspace()
			if err := w.Create(context.Background(), resource.Receiver{Slug: "tg"}, tt.saveType); err != nil {
				t.Fatalf("Create error: %v", err)
			}
			if got := nav.last(); got != tt.want {
				t.Errorf("redirect = %q, want %q", got, tt.want)
			}
			if _, ok := api.items["tg"]; !ok {
				t.Error("receiver not stored")
			}
		})
	}
}

func TestWorkspace_UpdateFailure(t *testing.T) {
	w, api, nav, _ := newTestWorkspace(resource.Receiver{Slug: "tg"})
	api.fail(&remote.APIError{StatusCode: 422, Details: []remote.FieldDetail{{Field: "options_allowed_to_override", Message: "unknown option"}}})

	edited := resource.Receiver{Slug: "tg", Options: `{"x":1}`}
	err := w.Update(context.Background(), edited, resource.SaveAndEdit)
	if err == nil {
		t.Fatal("Update should fail")
	}

	if diff := cmp.Diff(edited, w.Current()); diff != "" {
		t.Errorf("Current mismatch (-want +got):\n%s", diff)
	}
	want := map[string]string{"optionsAllowedToOverride": "unknown option"}
	if diff := cmp.Diff(want, w.Errors.Fields()); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
	if len(nav.redirects) != 0 {
		t.Errorf("redirected on failure: %v", nav.redirects)
	}
}

func TestWorkspace_SessionExpired(t *testing.T) {
	w, api, nav, _ := newTestWorkspace()
	api.fail(fmt.Errorf("%w: refresh rejected", remote.ErrSessionExpired))

	w.Create(context.Background(), resource.Receiver{Slug: "tg"}, resource.SaveAndEdit)
	if got := nav.last(); got != LoginPath {
		t.Errorf("redirect = %q, want %q", got, LoginPath)
	}

	nav.redirects = nil
	w.Delete(context.Background(), "tg")
	if got := nav.last(); got != LoginPath {
		t.Errorf("delete redirect = %q, want %q", got, LoginPath)
	}
}

func TestWorkspace_DeleteFailureIsSwallowed(t *testing.T) {
	w, api, nav, chrome := newTestWorkspace(resource.Receiver{Slug: "tg"})
	api.fail(errors.New("connection reset"))

	w.Delete(context.Background(), "tg")

	if diff := cmp.Diff([]string{"tg"}, api.deletes); diff != "" {
		t.Errorf("deletes mismatch (-want +got):\n%s", diff)
	}
	if len(w.Errors.List()) != 0 || chrome.Dialog.Snapshot().Active || len(nav.redirects) != 0 {
		t.Error("delete failure should not be reported")
	}
}

func TestWorkspace_ServerErrorEscalates(t *testing.T) {
	w, api, _, chrome := newTestWorkspace()
	api.fail(&remote.APIError{StatusCode: 503, Message: "Service Unavailable"})

	w.Create(context.Background(), resource.Receiver{Slug: "tg"}, resource.SaveAndEdit)

	if !chrome.Dialog.Snapshot().Active {
		t.Error("server error not shown in the dialog")
	}
	if got := w.Errors.Fields()[NonFieldKey]; got != "Service Unavailable" {
		t.Errorf("non-field error = %q", got)
	}
}

func TestWorkspace_SubmitInvalid(t *testing.T) {
	w, api, nav, _ := newTestWorkspace()
	item := resource.Receiver{Name: "TG"}

	err := w.Submit(context.Background(), w.Validation(context.Background(), item), item, resource.SaveAndList, true)
	if !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("Submit error = %v, want ErrInvalidForm", err)
	}
	if len(api.items) != 0 || len(nav.redirects) != 0 {
		t.Error("invalid form reached the API")
	}
	if w.Current().Name != "TG" {
		t.Errorf("Current = %+v, want the submitted receiver", w.Current())
	}
	fields := w.Errors.Fields()
	if fields["slug"] == "" || fields["type"] == "" {
		t.Errorf("Errors = %v", fields)
	}
}

func TestWorkspace_SubmitUpdate(t *testing.T) {
	w, _, nav, _ := newTestWorkspace(resource.Receiver{Slug: "tg", Name: "Old"})
	item := resource.Receiver{Slug: "tg", Name: "New", Type: "telegram", Options: "{}"}

	if err := w.Submit(context.Background(), w.Validation(context.Background(), item), item, resource.SaveAndList, false); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if got := nav.last(); got != "/receivers" {
		t.Errorf("redirect = %q, want /receivers", got)
	}
	if w.Form.Loading() {
		t.Error("still loading")
	}
}
