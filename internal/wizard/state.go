// Package wizard implements the generation wizard's state machine. The
// state record owns every field the multi-step flow collects, and all
// mutations go through named transition functions so each legal
// transition is enumerable and testable in isolation. The package does
// no I/O: network calls are issued by the caller between BeginX and
// ApplyX/FailX.
package wizard

import (
	"fmt"
	"strings"

	"introdeck/internal/api"
	"introdeck/internal/sanitize"
)

// Step identifies which part of the flow is active.
type Step int

const (
	StepName Step = iota
	StepQuestions
	StepAnswers
	StepExtraLoading
	StepExtraAndStyle
	StepIntroLoading
	StepResult
)

// ConcreteSteps counts the steps the progress indicator tracks; the two
// loading states report the step that initiated them instead.
const ConcreteSteps = 4

// Label returns the user-facing name of a step.
func (s Step) Label() string {
	switch s {
	case StepName:
		return "Name"
	case StepQuestions:
		return "Questions"
	case StepAnswers:
		return "Answers"
	case StepExtraLoading:
		return "Generating extra questions"
	case StepExtraAndStyle:
		return "Extra answers & style"
	case StepIntroLoading:
		return "Generating introduction"
	case StepResult:
		return "Result"
	}
	return "Unknown"
}

// Progress returns the 1-based position of the step on the progress
// indicator and the total. Loading states keep the position of the step
// that initiated them; the result step pins the bar at full.
func (s Step) Progress() (int, int) {
	switch s {
	case StepName:
		return 1, ConcreteSteps
	case StepQuestions:
		return 2, ConcreteSteps
	case StepAnswers, StepExtraLoading:
		return 3, ConcreteSteps
	case StepExtraAndStyle, StepIntroLoading, StepResult:
		return 4, ConcreteSteps
	}
	return 1, ConcreteSteps
}

// State is the wizard's session record. One instance exists per
// session; it is never persisted.
type State struct {
	step       Step
	returnStep Step // where a loading state falls back to on failure

	UserName       string
	Questions      []string
	Answers        api.AnswerSet
	ExtraQuestions []string
	ExtraAnswers   api.AnswerSet
	Style          string

	LastAnswers api.AnswerSet
	LastStyle   string

	GeneratedText string
}

// New returns a fresh wizard at the Name step.
func New() *State {
	return &State{step: StepName, Questions: []string{""}}
}

// Step reports the active step.
func (s *State) Step() Step { return s.step }

// Loading reports whether a network call is in flight for this wizard.
func (s *State) Loading() bool {
	return s.step == StepExtraLoading || s.step == StepIntroLoading
}

// Restart clears every field and returns to the Name step. Legal from
// any state.
func (s *State) Restart() {
	*s = *New()
}

// SubmitName validates and stores the display name, advancing to the
// Questions step. The name is sanitized first; an empty or over-long
// result rejects the transition and leaves the state unchanged.
func (s *State) SubmitName(raw string) error {
	if s.step != StepName {
		return fmt.Errorf("wizard: name already submitted")
	}
	name, err := sanitize.ValidateName(raw)
	if err != nil {
		return err
	}
	s.UserName = name
	s.step = StepQuestions
	return nil
}

// AddQuestion appends an empty question slot.
func (s *State) AddQuestion() {
	s.Questions = append(s.Questions, "")
}

// SetQuestion updates the text of one question slot.
func (s *State) SetQuestion(i int, text string) {
	if i >= 0 && i < len(s.Questions) {
		s.Questions[i] = text
	}
}

// RemoveQuestion deletes one question slot. The last remaining slot
// cannot be removed; the flow always shows at least one input.
func (s *State) RemoveQuestion(i int) error {
	if i < 0 || i >= len(s.Questions) {
		return fmt.Errorf("wizard: no question at position %d", i+1)
	}
	if len(s.Questions) == 1 {
		return fmt.Errorf("wizard: at least one question is required")
	}
	s.Questions = append(s.Questions[:i], s.Questions[i+1:]...)
	return nil
}

// ApplySuggestion inserts a server-suggested question into the first
// blank slot, or appends a new slot when none is blank. Non-blank
// inputs are never overwritten.
func (s *State) ApplySuggestion(question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q) == "" {
			s.Questions[i] = question
			return
		}
	}
	s.Questions = append(s.Questions, question)
}

// SubmitQuestions trims the question list, drops blank entries, and
// advances to the Answers step. At least one non-blank question is
// required; order is preserved.
func (s *State) SubmitQuestions() error {
	if s.step != StepQuestions {
		return fmt.Errorf("wizard: not at the questions step")
	}
	kept := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("wizard: enter at least one question")
	}
	s.Questions = kept
	s.Answers = nil
	s.step = StepAnswers
	return nil
}

// BeginExtraFetch records the first-round answers (one per question, in
// question order, none blank) and enters the extra-question loading
// state. The caller issues the network call and reports back through
// ApplyExtraQuestions or FailExtraFetch.
func (s *State) BeginExtraFetch(answers []string) error {
	if s.step != StepAnswers {
		return fmt.Errorf("wizard: not at the answers step")
	}
	if len(answers) != len(s.Questions) {
		return fmt.Errorf("wizard: expected %d answers, got %d", len(s.Questions), len(answers))
	}
	var set api.AnswerSet
	for i, q := range s.Questions {
		a := strings.TrimSpace(answers[i])
		if a == "" {
			return fmt.Errorf("wizard: answer %d is required", i+1)
		}
		set.Set(q, a)
	}
	s.Answers = set
	s.returnStep = StepAnswers
	s.step = StepExtraLoading
	return nil
}

// ApplyExtraQuestions stores the server-suggested questions and shows
// the extra-answer form. Any returned length is accepted, including
// zero: the requested count is a request, not a guarantee.
func (s *State) ApplyExtraQuestions(questions []string) {
	if s.step != StepExtraLoading {
		return
	}
	kept := make([]string, 0, len(questions))
	for _, q := range questions {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	s.ExtraQuestions = kept
	s.ExtraAnswers = nil
	s.step = StepExtraAndStyle
}

// BeginIntroFetch merges the two answer rounds (second round wins on
// key collision), sanitizes the style, snapshots the exact inputs for
// later regeneration, and enters the introduction loading state.
func (s *State) BeginIntroFetch(extraAnswers []string, style string) error {
	if s.step != StepExtraAndStyle {
		return fmt.Errorf("wizard: not at the extra-answer step")
	}
	if len(extraAnswers) != len(s.ExtraQuestions) {
		return fmt.Errorf("wizard: expected %d extra answers, got %d", len(s.ExtraQuestions), len(extraAnswers))
	}
	var extra api.AnswerSet
	for i, q := range s.ExtraQuestions {
		a := strings.TrimSpace(extraAnswers[i])
		if a == "" {
			return fmt.Errorf("wizard: extra answer %d is required", i+1)
		}
		extra.Set(q, a)
	}
	s.ExtraAnswers = extra
	s.Style = sanitize.Style(style)
	s.LastAnswers = s.Answers.Merge(extra)
	s.LastStyle = s.Style
	s.returnStep = StepExtraAndStyle
	s.step = StepIntroLoading
	return nil
}

// BeginRegenerate re-enters the introduction loading state reusing the
// snapshot from the previous generation. Refused without a network
// call when the prerequisites are missing.
func (s *State) BeginRegenerate() error {
	if s.step != StepResult {
		return fmt.Errorf("wizard: nothing to regenerate yet")
	}
	if len(s.LastAnswers) == 0 || s.UserName == "" {
		return fmt.Errorf("wizard: regeneration inputs are missing; restart the wizard")
	}
	s.returnStep = StepResult
	s.step = StepIntroLoading
	return nil
}

// GenerationInputs returns the exact payload for the pending
// introduction call.
func (s *State) GenerationInputs() (api.AnswerSet, string, string) {
	return s.LastAnswers, s.LastStyle, s.UserName
}

// ApplyIntroduction stores the generated text and shows the result.
func (s *State) ApplyIntroduction(text string) {
	if s.step != StepIntroLoading {
		return
	}
	s.GeneratedText = text
	s.step = StepResult
}

// Fail exits a loading state backward to the step that initiated it.
// Loading states are never terminal: every exit path lands on a
// concrete, interactive step.
func (s *State) Fail() {
	if !s.Loading() {
		return
	}
	s.step = s.returnStep
}
