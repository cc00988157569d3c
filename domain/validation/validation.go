// Package validation provides the field rules shared by the admin forms.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/feedwatchdog/admin/domain/resource"
)

// Rule checks a single field value. A nil result means the value is valid;
// otherwise the error text is shown to the user.
type Rule func(value string) error

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

// Required rejects blank values.
func Required() Rule {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return errors.New("Field is required.")
		}
		return nil
	}
}

// MinTextLength rejects values shorter than n characters.
func MinTextLength(n int) Rule {
	return func(value string) error {
		if utf8.RuneCountInString(value) < n {
			return fmt.Errorf("Minimum length is %d characters.", n)
		}
		return nil
	}
}

// MaxTextLength rejects values longer than n characters.
func MaxTextLength(n int) Rule {
	return func(value string) error {
		if utf8.RuneCountInString(value) > n {
			return fmt.Errorf("Maximum length is %d characters.", n)
		}
		return nil
	}
}

// Email rejects values that do not look like an address.
func Email() Rule {
	return func(value string) error {
		if !emailPattern.MatchString(value) {
			return errors.New("This is not a valid email.")
		}
		return nil
	}
}

// JSON rejects values that do not parse as JSON.
func JSON() Rule {
	return func(value string) error {
		if !json.Valid([]byte(value)) {
			return errors.New("Invalid JSON.")
		}
		return nil
	}
}

// Field binds a value to its rules.
type Field struct {
	Name  string
	Value string
	Rules []Rule
}

// Fields is an ordered set of fields validated together.
type Fields []Field

// Add appends a field.
func (f *Fields) Add(name, value string, rules ...Rule) {
	*f = append(*f, Field{Name: name, Value: value, Rules: rules})
}

// Validate runs each field's rules in order and reports the first failure
// of every invalid field.
func (f Fields) Validate() []resource.ValidationError {
	var errs []resource.ValidationError
	for _, field := range f {
		for _, rule := range field.Rules {
			if err := rule(field.Value); err != nil {
				errs = append(errs, resource.ValidationError{Field: field.Name, Message: err.Error()})
				break
			}
		}
	}
	return errs
}
