package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/google/go-cmp/cmp"
)

func TestSourcesList(t *testing.T) {
	var gotQuery url.Values
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sources/" {
			t.Errorf("path = %q, want /sources/", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		// The API always answers page 1 and floors pages.
		w.Write([]byte(`{
			"count": 21, "page": 1, "page_size": 10, "pages": 2,
			"results": [
				{"name": "B", "slug": "b", "fetcher_type": "fetch_text", "fetcher_options": {"url": "https://b"},
				 "parser_type": "rss", "parser_options": {}, "description": "", "tags": ["news"]},
				{"name": "A", "slug": "a", "fetcher_type": "fetch_text", "fetcher_options": null,
				 "parser_type": "rss", "parser_options": {"limit": 5}}
			]
		}`))
	}))

	list, err := NewSources(client).List(context.Background(), ports.ListParams{Query: "news", Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if gotQuery.Get("q") != "news" || gotQuery.Get("page") != "3" || gotQuery.Get("page_size") != "10" {
		t.Errorf("query = %v", gotQuery)
	}

	want := resource.List[resource.Source]{
		Count:    21,
		Page:     3,
		PageSize: 10,
		Pages:    3,
		Results: []resource.Source{
			{Name: "B", Slug: "b", FetcherType: "fetch_text", FetcherOptions: `{"url":"https://b"}`,
				ParserType: "rss", ParserOptions: `{}`, Tags: []string{"news"}},
			{Name: "A", Slug: "a", FetcherType: "fetch_text", FetcherOptions: `{}`,
				ParserType: "rss", ParserOptions: `{"limit":5}`},
		},
	}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestSourcesList_EmptyQueryOmitted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("q") {
			t.Errorf("q sent for empty query: %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("only_active") != "true" {
			t.Errorf("filter not forwarded: %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"count": 0, "page": 1, "page_size": 25, "results": null}`))
	}))

	list, err := NewStreams(client).List(context.Background(), ports.ListParams{
		Filters: map[string]string{"only_active": "true", "interval": ""},
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Page != 1 || list.PageSize != 25 || list.Pages != 0 {
		t.Errorf("page = %d, pageSize = %d, pages = %d", list.Page, list.PageSize, list.Pages)
	}
	if list.Results == nil {
		t.Error("Results is nil, want empty slice")
	}
}

func TestSourcesGet_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Source not found"})
	}))

	_, err := NewSources(client).Get(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
}

func TestSourcesGet_Snapshot(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "A", "slug": "a", "fetcher_type": "f", "fetcher_options": {"url": "x"},
			"parser_type": "p", "parser_options": {"n": 1}}`))
	}))

	src, err := NewSources(client).Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if src.SavedFetcherOptions != `{"url":"x"}` || src.SavedParserOptions != `{"n":1}` {
		t.Errorf("snapshot = %q, %q", src.SavedFetcherOptions, src.SavedParserOptions)
	}
	if src.Dirty() {
		t.Error("freshly loaded source is dirty")
	}
}

func TestSourcesCreate_InvalidOptionsSendsNothing(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := NewSources(client).Create(context.Background(), resource.Source{
		Slug:           "a",
		FetcherOptions: `{"url": }`,
	})
	if !errors.Is(err, resource.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
	var optErr *resource.OptionsError
	if !errors.As(err, &optErr) || optErr.Field != "fetcherOptions" {
		t.Errorf("OptionsError field = %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("requests sent = %d, want 0", calls.Load())
	}
}

func TestSourcesCreate_Wire(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sources/" {
			t.Errorf("%s %s, want POST /sources/", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		json.Unmarshal(body, &got)

		want := map[string]any{
			"name":            "Hacker News",
			"slug":            "hacker-news",
			"fetcher_type":    "fetch_text",
			"fetcher_options": map[string]any{"url": "https://news.ycombinator.com/rss"},
			"parser_type":     "rss",
			"parser_options":  map[string]any{},
			"description":     "",
			"tags":            []any{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))

	saved, err := NewSources(client).Create(context.Background(), resource.Source{
		Name:           "Hacker News",
		Slug:           "hacker-news",
		FetcherType:    "fetch_text",
		FetcherOptions: "{\n  \"url\": \"https://news.ycombinator.com/rss\"\n}",
		ParserType:     "rss",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if saved.FetcherOptions != `{"url":"https://news.ycombinator.com/rss"}` {
		t.Errorf("FetcherOptions = %q", saved.FetcherOptions)
	}
}

func TestReceiversUpdate_SnapshotOnlyOnSuccess(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/receivers/tg/" {
			t.Errorf("%s %s, want PUT /receivers/tg/", r.Method, r.URL.Path)
		}
		if fail.Load() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{
					"type":    "value_error",
					"message": "bad",
					"details": []map[string]string{{"field": "options.chat_id", "message": "bad"}},
				},
			})
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))

	api := NewReceivers(client)
	original := resource.Receiver{Name: "TG", Slug: "tg", Type: "telegram", Options: `{"chat_id": 1}`}
	original.Snapshot()
	edited := original
	edited.Options = `{"chat_id": 2}`

	if _, err := api.Update(context.Background(), edited); err == nil {
		t.Fatal("expected update to fail")
	}
	if edited.SavedOptions != `{"chat_id": 1}` {
		t.Errorf("snapshot changed on failure: %q", edited.SavedOptions)
	}

	fail.Store(false)
	saved, err := api.Update(context.Background(), edited)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if saved.SavedOptions != `{"chat_id":2}` {
		t.Errorf("SavedOptions = %q, want submitted options", saved.SavedOptions)
	}
	if saved.Dirty() {
		t.Error("saved receiver is dirty")
	}
}

func TestStreamsList_DerivesSlugs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 1, "page": 1, "page_size": 10, "pages": 0, "results": [
			{"slug": "hn-to-tg", "source": {"name": "HN", "slug": "hn"}, "receiver": {"name": "TG", "slug": "tg"},
			 "intervals": ["*/10 * * * *"], "active": true}
		]}`))
	}))

	list, err := NewStreams(client).List(context.Background(), ports.ListParams{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Pages != 1 {
		t.Errorf("Pages = %d, want 1", list.Pages)
	}

	got := list.Results[0]
	if got.SourceSlug != "hn" || got.ReceiverSlug != "tg" {
		t.Errorf("slugs = %q, %q", got.SourceSlug, got.ReceiverSlug)
	}
	if got.Source == nil || got.Source.Name != "HN" {
		t.Errorf("Source = %+v", got.Source)
	}
	if got.ReceiverOptionsOverride != "{}" {
		t.Errorf("ReceiverOptionsOverride = %q, want {}", got.ReceiverOptionsOverride)
	}
}

func TestStreamsCreate_ModifierOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var got streamWire
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if got.Source != nil || got.Receiver != nil {
			t.Error("list-only fields sent")
		}
		var types []string
		for _, m := range got.Modifiers {
			types = append(types, m.Type)
		}
		if diff := cmp.Diff([]string{"replace", "comparison", "replace"}, types); diff != "" {
			t.Errorf("modifier order (-want +got):\n%s", diff)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))

	stream := resource.Stream{
		Slug:         "s",
		SourceSlug:   "hn",
		ReceiverSlug: "tg",
		Modifiers: []resource.Modifier{
			{Type: "replace", Options: `{"old": "a", "new": "b"}`},
			{Type: "comparison", Options: ``},
			{Type: "replace", Options: `{"old": "c", "new": "d"}`},
		},
	}

	saved, err := NewStreams(client).Create(context.Background(), stream)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if saved.Modifiers[1].Options != "{}" {
		t.Errorf("blank modifier options = %q, want {}", saved.Modifiers[1].Options)
	}

	stream.Modifiers[2].Options = "nope"
	_, err = NewStreams(client).Create(context.Background(), stream)
	var optErr *resource.OptionsError
	if !errors.As(err, &optErr) || optErr.Field != "modifiers.2.options" {
		t.Errorf("err = %v, want OptionsError on modifiers.2.options", err)
	}
}

func TestStreamsChoices(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/streams/intervals/":
			w.Write([]byte(`[{"text": "Every 10 minutes", "value": "*/10 * * * *"}]`))
		case "/streams/message_templates/":
			w.Write([]byte(`[{"text": "Title and link", "value": "{{title}}\n{{url}}"}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	api := NewStreams(client)
	intervals, err := api.Intervals(context.Background())
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	if diff := cmp.Diff([]resource.Choice{{Text: "Every 10 minutes", Value: "*/10 * * * *"}}, intervals); diff != "" {
		t.Errorf("Intervals mismatch (-want +got):\n%s", diff)
	}

	templates, err := api.MessageTemplates(context.Background())
	if err != nil {
		t.Fatalf("MessageTemplates failed: %v", err)
	}
	if len(templates) != 1 || templates[0].Value != "{{title}}\n{{url}}" {
		t.Errorf("templates = %+v", templates)
	}
}

func TestDelete(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/receivers/a b/" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := NewReceivers(client).Delete(context.Background(), "a b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestProcessorsSchema(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/processors/config/parsers/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"rss": {"title": "RSS", "type": "object", "properties": {}}}`))
	}))

	api := NewProcessors(client)
	schemas, err := api.Schema(context.Background(), "parsers")
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if _, ok := schemas["rss"]; !ok {
		t.Errorf("schemas = %v, want rss", schemas)
	}

	if _, err := api.Schema(context.Background(), "streams"); err == nil {
		t.Error("expected error for unknown handler")
	}
}

func TestAuthLoginLogout(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/login/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		r.ParseForm()
		if r.Form.Get("username") != "admin@example.com" || r.Form.Get("password") != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		writeJSON(w, http.StatusOK, TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"})
	}))

	api := NewAuth(client)
	ctx := context.Background()

	err := api.Login(ctx, "admin@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Incorrect email or password" {
		t.Fatalf("err = %v, want bad credentials", err)
	}

	if err := api.Login(ctx, "admin@example.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ok, _ := api.LoggedIn(ctx); !ok {
		t.Error("LoggedIn() = false after login")
	}
	if v, _ := tokens.Get(ctx, ports.RefreshTokenKey); v != "r" {
		t.Errorf("refresh token = %q, want r", v)
	}

	if err := api.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ok, _ := api.LoggedIn(ctx); ok {
		t.Error("LoggedIn() = true after logout")
	}
}
