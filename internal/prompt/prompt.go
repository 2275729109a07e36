// Package prompt contains the interactive questions synadm asks, built on
// the Survey library. Commands depend on the Prompter interface so that
// tests can answer questions from a script.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrPasswordMismatch is returned when the confirmation never matched.
var ErrPasswordMismatch = errors.New("the two entered values do not match")

// ErrInterrupted is returned when the user pressed Ctrl-C at a prompt.
var ErrInterrupted = terminal.InterruptErr

// maxPasswordAttempts bounds how often a mismatching confirmation is retried.
const maxPasswordAttempts = 3

// Prompter asks the user questions.
type Prompter interface {
	// Input asks for a line of text, proposing def.
	Input(msg, def string) (string, error)
	// Password asks for a hidden value, asking twice when confirm is set.
	Password(msg string, confirm bool) (string, error)
	// Confirm asks a yes/no question.
	Confirm(msg string, def bool) (bool, error)
	// Select asks to pick one of options.
	Select(msg string, options []string, def string) (string, error)
}

// Survey is a Prompter on the terminal.
type Survey struct {
	opts []survey.AskOpt
	errW io.Writer
}

// NewSurvey creates a terminal prompter. stdio may be nil for the process's
// standard streams.
func NewSurvey(stdio *terminal.Stdio) *Survey {
	s := &Survey{errW: os.Stderr}
	if stdio != nil {
		s.opts = append(s.opts, survey.WithStdio(stdio.In, stdio.Out, stdio.Err))
		s.errW = stdio.Err
	}
	return s
}

func (s *Survey) Input(msg, def string) (string, error) {
	var answer string
	q := &survey.Input{Message: msg, Default: def}
	if err := survey.AskOne(q, &answer, s.opts...); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Survey) Password(msg string, confirm bool) (string, error) {
	for attempt := 0; attempt < maxPasswordAttempts; attempt++ {
		var first string
		if err := survey.AskOne(&survey.Password{Message: msg}, &first, s.opts...); err != nil {
			return "", err
		}
		if !confirm {
			return first, nil
		}
		var second string
		if err := survey.AskOne(&survey.Password{Message: "Repeat for confirmation"}, &second, s.opts...); err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		fmt.Fprintln(s.errW, "Error: "+ErrPasswordMismatch.Error())
	}
	return "", ErrPasswordMismatch
}

func (s *Survey) Confirm(msg string, def bool) (bool, error) {
	var b bool
	if err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &b, s.opts...); err != nil {
		return false, err
	}
	return b, nil
}

func (s *Survey) Select(msg string, options []string, def string) (string, error) {
	q := &survey.Select{Message: msg, Options: options}
	for _, o := range options {
		if o == def {
			q.Default = def
			break
		}
	}
	var answer string
	if err := survey.AskOne(q, &answer, s.opts...); err != nil {
		return "", err
	}
	return answer, nil
}
