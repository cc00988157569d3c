package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/feedwatchdog/admin/domain/validation"
)

// Prompter asks the user for input on the terminal.
type Prompter interface {
	Input(message string, rules ...validation.Rule) (string, error)
	Password(message string, rules ...validation.Rule) (string, error)
	Confirm(message string) (bool, error)
}

// prompter is replaced in tests.
var prompter Prompter = surveyPrompter{}

type surveyPrompter struct{}

func (surveyPrompter) Input(message string, rules ...validation.Rule) (string, error) {
	var out string
	if err := survey.AskOne(&survey.Input{Message: message}, &out, askOpts(rules)...); err != nil {
		return "", fmt.Errorf("prompt %q: %w", message, err)
	}
	return out, nil
}

func (surveyPrompter) Password(message string, rules ...validation.Rule) (string, error) {
	var out string
	if err := survey.AskOne(&survey.Password{Message: message}, &out, askOpts(rules)...); err != nil {
		return "", fmt.Errorf("prompt %q: %w", message, err)
	}
	return out, nil
}

func (surveyPrompter) Confirm(message string) (bool, error) {
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message}, &out); err != nil {
		return false, fmt.Errorf("prompt %q: %w", message, err)
	}
	return out, nil
}

// askOpts runs the form rules as survey validators, so the prompt repeats
// until the answer passes.
func askOpts(rules []validation.Rule) []survey.AskOpt {
	opts := make([]survey.AskOpt, 0, len(rules))
	for _, rule := range rules {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return rule(s)
		}))
	}
	return opts
}
