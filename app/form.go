package app

import (
	"context"
	"errors"
	"sync"

	"github.com/feedwatchdog/admin/domain/resource"
)

// ErrInvalidForm is returned by Submit when local validation fails.
var ErrInvalidForm = errors.New("form is invalid")

// Form is the bound form a FormController submits.
type Form interface {
	// Validate runs the field rules and returns every failure.
	Validate() []resource.ValidationError

	// ResetValidation clears the form's error highlighting.
	ResetValidation()
}

// FormState is a point-in-time copy of a FormController.
type FormState struct {
	Loading   bool
	ScrollTop bool
	Errors    map[string]string
}

// FormController runs the validate, submit and report cycle of a form.
type FormController struct {
	errors *Errors

	mu        sync.Mutex
	loading   bool
	scrollTop bool
}

// NewFormController creates a controller reporting into errs.
func NewFormController(errs *Errors) *FormController {
	if errs == nil {
		errs = &Errors{}
	}
	return &FormController{errors: errs}
}

// Submit validates form and, when it is valid, runs submit to completion.
// An invalid form never reaches submit and never enters the loading state.
// The view is scrolled to the top in every case.
func (f *FormController) Submit(ctx context.Context, form Form, submit func(context.Context) error) error {
	if errs := form.Validate(); len(errs) > 0 {
		f.errors.Set(errs)
		f.mu.Lock()
		f.scrollTop = true
		f.mu.Unlock()
		return ErrInvalidForm
	}

	f.mu.Lock()
	f.loading = true
	f.mu.Unlock()

	f.errors.Clear()
	form.ResetValidation()

	err := submit(ctx)

	f.mu.Lock()
	f.loading = false
	f.scrollTop = true
	f.mu.Unlock()

	return err
}

// Loading reports whether a submission is running.
func (f *FormController) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// TakeScrollTop reports whether the view should scroll to the top and
// clears the request.
func (f *FormController) TakeScrollTop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.scrollTop
	f.scrollTop = false
	return v
}

// State returns the current state without clearing the scroll request.
func (f *FormController) State() FormState {
	f.mu.Lock()
	state := FormState{Loading: f.loading, ScrollTop: f.scrollTop}
	f.mu.Unlock()
	state.Errors = f.errors.Fields()
	return state
}

// CheckedForm is a Form backed by a validation function.
type CheckedForm struct {
	Check func() []resource.ValidationError
	Reset func()
}

// Validate runs Check.
func (f CheckedForm) Validate() []resource.ValidationError {
	if f.Check == nil {
		return nil
	}
	return f.Check()
}

// ResetValidation runs Reset when set.
func (f CheckedForm) ResetValidation() {
	if f.Reset != nil {
		f.Reset()
	}
}
