package app

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/rs/zerolog"
)

// Paths of the admin screens.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// ListPath returns the list screen of kind.
func ListPath(kind resource.Kind) string { return "/" + string(kind) }

// CreatePath returns the create screen of kind.
func CreatePath(kind resource.Kind) string { return "/" + string(kind) + "/create" }

// EditPath returns the edit screen of one resource.
func EditPath(kind resource.Kind, slug string) string {
	return "/" + string(kind) + "/" + url.PathEscape(slug) + "/edit"
}

// WorkspaceOptions carries the collaborators shared by every workspace.
type WorkspaceOptions struct {
	Chrome    *Chrome
	Navigator ports.Navigator
	Metrics   *metrics.Collector
	Logger    zerolog.Logger
}

// Workspace owns the screens of one resource kind: its list, the resource
// being edited, and the form errors.
type Workspace[T any] struct {
	kind    resource.Kind
	api     ports.ResourceAPI[T]
	key     func(T) string
	chrome  *Chrome
	nav     ports.Navigator
	metrics *metrics.Collector
	logger  zerolog.Logger

	List   *ListController[T]
	Errors *Errors
	Form   *FormController

	// afterSave maps a SaveAndCreateStream redirect to the stream creation
	// screen prefilled with the saved resource.
	afterSave func(T) string

	// blank returns an empty resource carrying only slug.
	blank func(slug string) T

	// rebase returns item with the saved options baseline of prev.
	rebase func(item, prev T) T

	mu      sync.RWMutex
	current T
}

// NewWorkspace creates a workspace for kind. key returns a resource's slug.
func NewWorkspace[T any](kind resource.Kind, api ports.ResourceAPI[T], key func(T) string, opts WorkspaceOptions) *Workspace[T] {
	errs := &Errors{}
	logger := opts.Logger.With().Str("resource", string(kind)).Logger()

	return &Workspace[T]{
		kind:    kind,
		api:     api,
		key:     key,
		chrome:  opts.Chrome,
		nav:     opts.Navigator,
		metrics: opts.Metrics,
		logger:  logger,
		List: NewListController[T](api, ListOptions{
			Kind:    kind,
			Chrome:  opts.Chrome,
			Metrics: opts.Metrics,
			Logger:  opts.Logger,
		}),
		Errors: errs,
		Form:   NewFormController(errs),
	}
}

// Kind returns the resource kind.
func (w *Workspace[T]) Kind() resource.Kind { return w.kind }

// Current returns the resource being edited.
func (w *Workspace[T]) Current() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// SetCurrent replaces the resource being edited.
func (w *Workspace[T]) SetCurrent(item T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = item
}

// Load fetches one resource into Current. A missing resource shows the
// not-found view instead of a form error. On any failure Current is reset to
// an empty resource carrying only slug.
func (w *Workspace[T]) Load(ctx context.Context, slug string) error {
	item, err := w.api.Get(ctx, slug)
	if err != nil {
		w.SetCurrent(w.placeholder(slug))
		if remote.IsNotFound(err) {
			w.logger.Debug().Str("slug", slug).Msg("resource not found")
			w.nav.NotFound()
			return err
		}
		w.fail(err)
		return err
	}

	w.Errors.Clear()
	w.SetCurrent(item)
	return nil
}

// Create stores item and navigates according to saveType. On failure the
// errors are recorded and item stays current for correction.
func (w *Workspace[T]) Create(ctx context.Context, item T, saveType resource.SaveType) error {
	return w.save(ctx, item, saveType, w.api.Create)
}

// Update replaces item and navigates according to saveType. Current carries
// the refreshed options baseline only after a successful save.
func (w *Workspace[T]) Update(ctx context.Context, item T, saveType resource.SaveType) error {
	return w.save(ctx, w.keepBaseline(item), saveType, w.api.Update)
}

// Submit runs form through the form controller and, when it is valid,
// creates or updates item. item stays current while the user corrects it.
func (w *Workspace[T]) Submit(ctx context.Context, form Form, item T, saveType resource.SaveType, create bool) error {
	if !create {
		item = w.keepBaseline(item)
	}
	w.SetCurrent(item)

	op := w.Update
	if create {
		op = w.Create
	}
	return w.Form.Submit(ctx, form, func(ctx context.Context) error {
		return op(ctx, item, saveType)
	})
}

func (w *Workspace[T]) save(ctx context.Context, item T, saveType resource.SaveType, op func(context.Context, T) (T, error)) error {
	saved, err := op(ctx, item)
	if err != nil {
		w.SetCurrent(item)
		w.fail(err)
		return err
	}

	w.SetCurrent(saved)
	w.logger.Info().Str("slug", w.key(saved)).Str("save_type", string(saveType)).Msg("resource saved")
	w.nav.Redirect(w.redirectPath(saved, saveType))
	return nil
}

// keepBaseline carries the saved options of the resource being edited over
// to item when both have the same slug.
func (w *Workspace[T]) keepBaseline(item T) T {
	if w.rebase == nil {
		return item
	}
	prev := w.Current()
	if w.key(prev) != w.key(item) {
		return item
	}
	return w.rebase(item, prev)
}

func (w *Workspace[T]) placeholder(slug string) T {
	if w.blank == nil {
		var zero T
		return zero
	}
	return w.blank(slug)
}

func (w *Workspace[T]) redirectPath(saved T, saveType resource.SaveType) string {
	switch saveType {
	case resource.SaveAndList:
		return ListPath(w.kind)
	case resource.SaveAndCreateStream:
		if w.afterSave != nil {
			return w.afterSave(saved)
		}
		return CreatePath(resource.KindStreams)
	default:
		return EditPath(w.kind, w.key(saved))
	}
}

// Delete removes a resource. Failures are logged and counted but not
// reported, except an expired session, which still logs the user out.
func (w *Workspace[T]) Delete(ctx context.Context, slug string) {
	err := w.api.Delete(ctx, slug)
	if err == nil {
		w.logger.Info().Str("slug", slug).Msg("resource deleted")
		return
	}

	if errors.Is(err, remote.ErrSessionExpired) {
		w.nav.Redirect(LoginPath)
		return
	}
	w.metrics.ObserveDeleteFailure(string(w.kind))
	w.logger.Error().Err(err).Str("slug", slug).Msg("delete failed")
}

// fail records err on the form and escalates server failures.
func (w *Workspace[T]) fail(err error) {
	if errors.Is(err, remote.ErrSessionExpired) {
		w.nav.Redirect(LoginPath)
		return
	}
	w.Errors.Set(NormalizeErrors(err))
	if w.chrome.Escalate(err) {
		w.logger.Error().Err(err).Msg("server error")
	}
}
