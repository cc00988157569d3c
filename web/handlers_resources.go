package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/domain/optionsform"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/pkg/urlstate"
	"github.com/go-chi/chi/v5"
)

// -----------------------------------------------------------------------------
// Lists
// -----------------------------------------------------------------------------

type listPage[T any] struct {
	PageData
	Kind  string
	Query string
	Items []T
	Count int
	Pager *urlstate.Pager
	State string
	Error string
}

func renderList[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind resource.Kind, list *app.ListController[T]) {
	defaults := urlstate.Defaults{Page: 1, PageSize: h.settings.PageSize()}
	params := urlstate.Read(r.URL.Query(), defaults)

	err := list.Load(r.Context(), params)
	if errors.Is(err, remote.ErrSessionExpired) {
		http.Redirect(w, r, app.LoginPath, http.StatusFound)
		return
	}

	snap := list.Snapshot()
	data := listPage[T]{
		PageData: h.newPageData(r.Context(), r.URL.Path, kind.Title()),
		Kind:     string(kind),
		Query:    params.Query,
		Items:    snap.List.Results,
		Count:    snap.List.Count,
		Pager:    urlstate.NewPager(r.URL, params, snap.List.Pages, defaults),
		State:    snap.State.String(),
	}
	if snap.Err != nil && !data.Dialog.Active {
		data.Error = snap.Err.Error()
	}
	h.render(w, http.StatusOK, string(kind), data)
}

// SourcesPage lists sources.
func (h *Handler) SourcesPage(w http.ResponseWriter, r *http.Request) {
	renderList(h, w, r, resource.KindSources, sessionFrom(r.Context()).Sources.List)
}

// ReceiversPage lists receivers.
func (h *Handler) ReceiversPage(w http.ResponseWriter, r *http.Request) {
	renderList(h, w, r, resource.KindReceivers, sessionFrom(r.Context()).Receivers.List)
}

// StreamsPage lists streams.
func (h *Handler) StreamsPage(w http.ResponseWriter, r *http.Request) {
	renderList(h, w, r, resource.KindStreams, sessionFrom(r.Context()).Streams.List)
}

// -----------------------------------------------------------------------------
// Shared form plumbing
// -----------------------------------------------------------------------------

// formMode selects how a form page is rendered.
type formMode int

const (
	modeCreate formMode = iota
	modeEdit
	// modeUnavailable is an edit page whose resource could not be loaded.
	// It shows the error without a form.
	modeUnavailable
)

type formPage[T any] struct {
	PageData
	Item        T
	Create      bool
	Unavailable bool
	Dirty       bool
	Action      string
	Errors      map[string]string
}

func newFormPage[T interface{ Dirty() bool }](pd PageData, item T, mode formMode, action string, errs map[string]string) formPage[T] {
	return formPage[T]{
		PageData:    pd,
		Item:        item,
		Create:      mode == modeCreate,
		Unavailable: mode == modeUnavailable,
		Dirty:       mode == modeEdit && item.Dirty(),
		Action:      action,
		Errors:      errs,
	}
}

// editMode is the mode of an edit page after loading its resource.
func editMode(err error) formMode {
	if err != nil {
		return modeUnavailable
	}
	return modeEdit
}

func saveMode(create bool) formMode {
	if create {
		return modeCreate
	}
	return modeEdit
}

// applyNavigation answers the request with the navigation a workspace
// operation asked for. It reports whether the response was written.
func (h *Handler) applyNavigation(w http.ResponseWriter, r *http.Request, redirect string, notFound bool) bool {
	switch {
	case notFound:
		h.notFound(w, r)
		return true
	case redirect != "":
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return true
	}
	return false
}

// parseForm reads the request body, answering 400 when it is malformed.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("malformed form")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

// formStatus is the status of a re-rendered form after a failed submit.
func formStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func formTitle(mode formMode, noun string) string {
	if mode == modeCreate {
		return "Create " + noun
	}
	return "Edit " + noun
}

func (h *Handler) variant(ctx context.Context, handler, typ string) *optionsform.Variant {
	if h.schemas == nil || typ == "" {
		return nil
	}
	v, err := h.schemas.Variant(ctx, handler, typ)
	if err != nil {
		return nil
	}
	return v
}

func (h *Handler) types(ctx context.Context, handler string) []string {
	if h.schemas == nil {
		return nil
	}
	types, err := h.schemas.Types(ctx, handler)
	if err != nil {
		h.logger.Warn().Err(err).Str("handler", handler).Msg("list types failed")
		return nil
	}
	return types
}

// optionsEditor is the input of one options field. A type with a known
// schema gets a widget per field; anything else is edited as raw JSON.
type optionsEditor struct {
	Name   string
	Type   string
	Rows   int
	Fields []optionsform.Field
	Values map[string]string
	Text   string
}

// typeKey names the hidden input recording the type an editor's widgets
// were rendered for.
func typeKey(name string) string { return name + "@type" }

func (h *Handler) optionsEditor(ctx context.Context, name, handler, typ, text string, rows int) optionsEditor {
	ed := optionsEditor{Name: name, Type: typ, Rows: rows, Text: text}
	if v := h.variant(ctx, handler, typ); v != nil && len(v.Fields) > 0 {
		ed.Fields = v.Fields
		ed.Values = v.Values(text)
	}
	return ed
}

// optionInputs reads the options editors of a submitted form. Problems with
// widget values are collected in errs.
type optionInputs struct {
	form    url.Values
	variant func(handler, typ string) *optionsform.Variant
	errs    []resource.ValidationError
}

func (h *Handler) optionInputs(r *http.Request) *optionInputs {
	ctx := r.Context()
	return &optionInputs{
		form: r.Form,
		variant: func(handler, typ string) *optionsform.Variant {
			return h.variant(ctx, handler, typ)
		},
	}
}

// text returns the options text of editor name for processor type typ.
// Widgets rendered for another type than the one submitted are dropped and
// the options start over as an empty object.
func (in *optionInputs) text(name, handler, typ string) string {
	rendered, ok := in.form[typeKey(name)]
	if !ok {
		return in.form.Get(name)
	}
	if len(rendered) == 0 || rendered[0] != typ || in.variant == nil {
		return "{}"
	}
	v := in.variant(handler, typ)
	if v == nil {
		return "{}"
	}

	values := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		values[f.Name] = in.form.Get(name + "." + f.Name)
	}
	text, err := v.Encode(values)
	if err == nil {
		return text
	}

	msg := err.Error()
	var ve resource.ValidationError
	if errors.As(err, &ve) {
		msg = fieldLabel(v, ve.Field) + ": " + ve.Message
	}
	in.errs = append(in.errs, resource.ValidationError{Field: name, Message: msg})
	return v.Draft(values)
}

func fieldLabel(v *optionsform.Variant, name string) string {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}

// withErrors adds the errors found while reading the form to its validation.
func withErrors(form app.CheckedForm, errs []resource.ValidationError) app.CheckedForm {
	if len(errs) == 0 {
		return form
	}
	check := form.Check
	form.Check = func() []resource.ValidationError {
		var out []resource.ValidationError
		if check != nil {
			out = check()
		}
		return append(out, errs...)
	}
	return form
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Sources
// -----------------------------------------------------------------------------

type sourceForm struct {
	formPage[resource.Source]
	FetcherTypes   []string
	ParserTypes    []string
	Tags           []string
	FetcherOptions optionsEditor
	ParserOptions  optionsEditor
}

func parseSource(r *http.Request, in *optionInputs) resource.Source {
	src := resource.Source{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Slug:        strings.TrimSpace(r.FormValue("slug")),
		FetcherType: r.FormValue("fetcherType"),
		ParserType:  r.FormValue("parserType"),
		Description: r.FormValue("description"),
		Tags:        splitList(r.FormValue("tags")),
	}
	src.FetcherOptions = in.text("fetcherOptions", app.HandlerFetchers, src.FetcherType)
	src.ParserOptions = in.text("parserOptions", app.HandlerParsers, src.ParserType)
	return src
}

func (h *Handler) renderSourceForm(w http.ResponseWriter, r *http.Request, status int, sources *app.Sources, mode formMode) {
	ctx := r.Context()
	src := sources.Current()

	var tags []string
	if mode != modeUnavailable {
		var err error
		if tags, err = sources.Tags(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("load source tags failed")
		}
	}

	action := app.CreatePath(resource.KindSources)
	if mode != modeCreate {
		action = app.EditPath(resource.KindSources, src.Slug)
	}

	h.render(w, status, "source_form", sourceForm{
		formPage:       newFormPage(h.newPageData(ctx, r.URL.Path, formTitle(mode, "source")), src, mode, action, sources.Errors.Fields()),
		FetcherTypes:   h.types(ctx, app.HandlerFetchers),
		ParserTypes:    h.types(ctx, app.HandlerParsers),
		Tags:           tags,
		FetcherOptions: h.optionsEditor(ctx, "fetcherOptions", app.HandlerFetchers, src.FetcherType, src.FetcherOptions, 6),
		ParserOptions:  h.optionsEditor(ctx, "parserOptions", app.HandlerParsers, src.ParserType, src.ParserOptions, 6),
	})
}

// SourceNewPage renders an empty source form.
func (h *Handler) SourceNewPage(w http.ResponseWriter, r *http.Request) {
	sources := sessionFrom(r.Context()).Sources
	sources.BeginForm(r.Context())
	sources.Errors.Clear()
	sources.SetCurrent(resource.Source{FetcherOptions: "{}", ParserOptions: "{}"})
	h.renderSourceForm(w, r, http.StatusOK, sources, modeCreate)
}

// SourceEditPage renders the form of an existing source.
func (h *Handler) SourceEditPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var err error
	redirect, notFound := sess.Navigate(func() {
		err = sess.Sources.Load(r.Context(), chi.URLParam(r, "slug"))
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	sess.Sources.BeginForm(r.Context())
	h.renderSourceForm(w, r, formStatus(err), sess.Sources, editMode(err))
}

// SourceCreate stores a new source.
func (h *Handler) SourceCreate(w http.ResponseWriter, r *http.Request) {
	h.saveSource(w, r, true)
}

// SourceUpdate replaces a source.
func (h *Handler) SourceUpdate(w http.ResponseWriter, r *http.Request) {
	h.saveSource(w, r, false)
}

func (h *Handler) saveSource(w http.ResponseWriter, r *http.Request, create bool) {
	if !h.parseForm(w, r) {
		return
	}
	ctx := r.Context()
	sess := sessionFrom(ctx)
	sources := sess.Sources

	in := h.optionInputs(r)
	src := parseSource(r, in)
	if !create {
		src.Slug = chi.URLParam(r, "slug")
	}
	src = sources.Prepare(src)
	saveType := resource.ParseSaveType(r.FormValue("save"))

	var err error
	redirect, notFound := sess.Navigate(func() {
		err = sources.Submit(ctx, withErrors(sources.Validation(ctx, src), in.errs), src, saveType, create)
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	h.renderSourceForm(w, r, formStatus(err), sources, saveMode(create))
}

// SourceDelete removes a source and returns to the list.
func (h *Handler) SourceDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	redirect, _ := sess.Navigate(func() {
		sess.Sources.Delete(r.Context(), chi.URLParam(r, "slug"))
	})
	if redirect == "" {
		redirect = app.ListPath(resource.KindSources)
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// -----------------------------------------------------------------------------
// Receivers
// -----------------------------------------------------------------------------

type receiverForm struct {
	formPage[resource.Receiver]
	Types       []string
	Options     optionsEditor
	Overridable []string
}

func parseReceiver(r *http.Request, in *optionInputs) resource.Receiver {
	rcv := resource.Receiver{
		Name:                     strings.TrimSpace(r.FormValue("name")),
		Slug:                     strings.TrimSpace(r.FormValue("slug")),
		Type:                     r.FormValue("type"),
		OptionsAllowedToOverride: r.Form["optionsAllowedToOverride"],
	}
	rcv.Options = in.text("options", app.HandlerReceivers, rcv.Type)
	return rcv
}

func (h *Handler) renderReceiverForm(w http.ResponseWriter, r *http.Request, status int, receivers *app.Receivers, mode formMode) {
	ctx := r.Context()
	rcv := receivers.Current()

	overridable, err := receivers.OverridableOptions(ctx, rcv.Type)
	if err != nil {
		h.logger.Warn().Err(err).Msg("load overridable options failed")
	}

	action := app.CreatePath(resource.KindReceivers)
	if mode != modeCreate {
		action = app.EditPath(resource.KindReceivers, rcv.Slug)
	}

	h.render(w, status, "receiver_form", receiverForm{
		formPage:    newFormPage(h.newPageData(ctx, r.URL.Path, formTitle(mode, "receiver")), rcv, mode, action, receivers.Errors.Fields()),
		Types:       h.types(ctx, app.HandlerReceivers),
		Options:     h.optionsEditor(ctx, "options", app.HandlerReceivers, rcv.Type, rcv.Options, 6),
		Overridable: overridable,
	})
}

// ReceiverNewPage renders an empty receiver form.
func (h *Handler) ReceiverNewPage(w http.ResponseWriter, r *http.Request) {
	receivers := sessionFrom(r.Context()).Receivers
	receivers.BeginForm(r.Context())
	receivers.Errors.Clear()
	receivers.SetCurrent(resource.Receiver{Options: "{}"})
	h.renderReceiverForm(w, r, http.StatusOK, receivers, modeCreate)
}

// ReceiverEditPage renders the form of an existing receiver.
func (h *Handler) ReceiverEditPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var err error
	redirect, notFound := sess.Navigate(func() {
		err = sess.Receivers.Load(r.Context(), chi.URLParam(r, "slug"))
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	sess.Receivers.BeginForm(r.Context())
	h.renderReceiverForm(w, r, formStatus(err), sess.Receivers, editMode(err))
}

// ReceiverCreate stores a new receiver.
func (h *Handler) ReceiverCreate(w http.ResponseWriter, r *http.Request) {
	h.saveReceiver(w, r, true)
}

// ReceiverUpdate replaces a receiver.
func (h *Handler) ReceiverUpdate(w http.ResponseWriter, r *http.Request) {
	h.saveReceiver(w, r, false)
}

func (h *Handler) saveReceiver(w http.ResponseWriter, r *http.Request, create bool) {
	if !h.parseForm(w, r) {
		return
	}
	ctx := r.Context()
	sess := sessionFrom(ctx)
	receivers := sess.Receivers

	in := h.optionInputs(r)
	rcv := parseReceiver(r, in)
	if !create {
		rcv.Slug = chi.URLParam(r, "slug")
	}
	rcv = receivers.Prepare(rcv)
	saveType := resource.ParseSaveType(r.FormValue("save"))

	var err error
	redirect, notFound := sess.Navigate(func() {
		err = receivers.Submit(ctx, withErrors(receivers.Validation(ctx, rcv), in.errs), rcv, saveType, create)
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	h.renderReceiverForm(w, r, formStatus(err), receivers, saveMode(create))
}

// ReceiverDelete removes a receiver and returns to the list.
func (h *Handler) ReceiverDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	redirect, _ := sess.Navigate(func() {
		sess.Receivers.Delete(r.Context(), chi.URLParam(r, "slug"))
	})
	if redirect == "" {
		redirect = app.ListPath(resource.KindReceivers)
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// -----------------------------------------------------------------------------
// Streams
// -----------------------------------------------------------------------------

type modifierRow struct {
	Type    string
	Options optionsEditor
}

type streamForm struct {
	formPage[resource.Stream]
	Intervals        []resource.Choice
	MessageTemplates []resource.Choice
	ModifierTypes    []string

	// Modifiers holds the stream's modifiers plus one blank row for adding.
	Modifiers []modifierRow
}

// parseStream reads the stream form. Modifier rows are numbered
// modifiers.N.type / modifiers.N.options; rows marked for removal and blank
// rows are dropped, the rest keep their order.
func parseStream(r *http.Request, in *optionInputs) resource.Stream {
	st := resource.Stream{
		Slug:                    strings.TrimSpace(r.FormValue("slug")),
		SourceSlug:              strings.TrimSpace(r.FormValue("sourceSlug")),
		ReceiverSlug:            strings.TrimSpace(r.FormValue("receiverSlug")),
		Intervals:               r.Form["intervals"],
		Squash:                  r.FormValue("squash") != "",
		ReceiverOptionsOverride: r.FormValue("receiverOptionsOverride"),
		MessageTemplate:         r.FormValue("messageTemplate"),
		Active:                  r.FormValue("active") != "",
	}

	var indexes []int
	for key := range r.Form {
		rest, ok := strings.CutPrefix(key, "modifiers.")
		if !ok {
			continue
		}
		idx, field, ok := strings.Cut(rest, ".")
		if !ok || field != "type" {
			continue
		}
		if n, err := strconv.Atoi(idx); err == nil && n >= 0 {
			indexes = append(indexes, n)
		}
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		prefix := fmt.Sprintf("modifiers.%d.", i)
		if r.FormValue(prefix+"remove") != "" {
			continue
		}
		m := resource.Modifier{Type: strings.TrimSpace(r.FormValue(prefix + "type"))}
		m.Options = in.text(prefix+"options", app.HandlerModifiers, m.Type)
		if m.Type == "" && isBlankOptions(m.Options) {
			continue
		}
		st.Modifiers = append(st.Modifiers, m)
	}
	return st
}

func isBlankOptions(text string) bool {
	text = strings.TrimSpace(text)
	return text == "" || text == "{}"
}

func (h *Handler) renderStreamForm(w http.ResponseWriter, r *http.Request, status int, streams *app.Streams, mode formMode) {
	ctx := r.Context()
	st := streams.Current()

	intervals, err := streams.Intervals(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("load intervals failed")
	}
	templates, err := streams.MessageTemplates(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("load message templates failed")
	}

	action := app.CreatePath(resource.KindStreams)
	if mode != modeCreate {
		action = app.EditPath(resource.KindStreams, st.Slug)
	}

	rows := make([]modifierRow, 0, len(st.Modifiers)+1)
	for i, m := range append(slices.Clone(st.Modifiers), resource.Modifier{Options: "{}"}) {
		name := fmt.Sprintf("modifiers.%d.options", i)
		rows = append(rows, modifierRow{
			Type:    m.Type,
			Options: h.optionsEditor(ctx, name, app.HandlerModifiers, m.Type, m.Options, 3),
		})
	}

	h.render(w, status, "stream_form", streamForm{
		formPage:         newFormPage(h.newPageData(ctx, r.URL.Path, formTitle(mode, "stream")), st, mode, action, streams.Errors.Fields()),
		Intervals:        intervals,
		MessageTemplates: templates,
		ModifierTypes:    h.types(ctx, app.HandlerModifiers),
		Modifiers:        rows,
	})
}

// StreamNewPage renders an empty stream form, preselecting the source or
// receiver passed in the query.
func (h *Handler) StreamNewPage(w http.ResponseWriter, r *http.Request) {
	streams := sessionFrom(r.Context()).Streams
	q := r.URL.Query()
	streams.BeginForm(r.Context())
	streams.Errors.Clear()
	streams.SetCurrent(streams.New(q.Get("source"), q.Get("receiver")))
	h.renderStreamForm(w, r, http.StatusOK, streams, modeCreate)
}

// StreamEditPage renders the form of an existing stream.
func (h *Handler) StreamEditPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var err error
	redirect, notFound := sess.Navigate(func() {
		err = sess.Streams.Load(r.Context(), chi.URLParam(r, "slug"))
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	sess.Streams.BeginForm(r.Context())
	h.renderStreamForm(w, r, formStatus(err), sess.Streams, editMode(err))
}

// StreamCreate stores a new stream.
func (h *Handler) StreamCreate(w http.ResponseWriter, r *http.Request) {
	h.saveStream(w, r, true)
}

// StreamUpdate replaces a stream.
func (h *Handler) StreamUpdate(w http.ResponseWriter, r *http.Request) {
	h.saveStream(w, r, false)
}

func (h *Handler) saveStream(w http.ResponseWriter, r *http.Request, create bool) {
	if !h.parseForm(w, r) {
		return
	}
	ctx := r.Context()
	sess := sessionFrom(ctx)
	streams := sess.Streams

	in := h.optionInputs(r)
	st := parseStream(r, in)
	if !create {
		st.Slug = chi.URLParam(r, "slug")
	}
	st = streams.Prepare(st)
	saveType := resource.ParseSaveType(r.FormValue("save"))

	var err error
	redirect, notFound := sess.Navigate(func() {
		err = streams.Submit(ctx, withErrors(streams.Validation(ctx, st), in.errs), st, saveType, create)
	})
	if h.applyNavigation(w, r, redirect, notFound) {
		return
	}
	h.renderStreamForm(w, r, formStatus(err), streams, saveMode(create))
}

// StreamDelete removes a stream and returns to the list.
func (h *Handler) StreamDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	redirect, _ := sess.Navigate(func() {
		sess.Streams.Delete(r.Context(), chi.URLParam(r, "slug"))
	})
	if redirect == "" {
		redirect = app.ListPath(resource.KindStreams)
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
