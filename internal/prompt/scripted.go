package prompt

import "fmt"

// Scripted answers questions from a fixed list, in order. An empty string
// answer to Input or Select takes the default. It records every question.
type Scripted struct {
	Answers   []string
	Questions []string
}

// NewScripted creates a prompter that returns answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) next(msg string) (string, error) {
	s.Questions = append(s.Questions, msg)
	if len(s.Answers) == 0 {
		return "", fmt.Errorf("no scripted answer for %q", msg)
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

func (s *Scripted) Input(msg, def string) (string, error) {
	answer, err := s.next(msg)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (s *Scripted) Password(msg string, confirm bool) (string, error) {
	return s.next(msg)
}

func (s *Scripted) Confirm(msg string, def bool) (bool, error) {
	answer, err := s.next(msg)
	if err != nil {
		return false, err
	}
	switch answer {
	case "":
		return def, nil
	case "y", "yes", "true":
		return true, nil
	default:
		return false, nil
	}
}

func (s *Scripted) Select(msg string, options []string, def string) (string, error) {
	answer, err := s.next(msg)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	for _, o := range options {
		if o == answer {
			return answer, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %v", answer, options)
}
