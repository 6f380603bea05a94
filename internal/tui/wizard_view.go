package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"introdeck/internal/api"
	"introdeck/internal/sanitize"
	"introdeck/internal/wizard"
)

// copyNoticeWindow is how long the copy control stays disabled while
// the "copied" confirmation is shown.
const copyNoticeWindow = 1500 * time.Millisecond

var (
	questionLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	resultStyle        = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#5B8DEF")).
				Padding(0, 1)
	suggestionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#F7B801")).
			Padding(0, 1)
)

// Pipeline result messages. Each network round trip resolves into
// exactly one of these; the handler renders from the resolved payload,
// never from the request that happened to be issued last.
type suggestionMsg struct {
	question string
	err      error
}

type extraQuestionsMsg struct {
	questions []string
	err       error
}

type introductionMsg struct {
	text string
	err  error
}

type copyDoneMsg struct {
	err error
}

type copyResetMsg struct{}

// wizardView drives the generation wizard: it renders exactly one step
// at a time and issues the pipeline's network calls.
type wizardView struct {
	app   *App
	state *wizard.State

	nameInput      textinput.Model
	questionInputs []textinput.Model
	answerInputs   []textinput.Model
	extraInputs    []textinput.Model
	styleInput     textinput.Model
	focus          int

	suggestion  string
	suggestBusy bool

	extraCount int

	spin spinner.Model
	prog progress.Model

	errMsg      string
	copyBusy    bool
	publishBusy bool
	width       int
}

func newWizardView(app *App) *wizardView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 400
	name.Width = 40
	name.Focus()

	style := textinput.New()
	style.Placeholder = "e.g. casual and funny / formal / Kansai dialect"
	style.Width = 48

	_, _, initial := app.cfg.ExtraCountBounds()

	v := &wizardView{
		app:        app,
		state:      wizard.New(),
		nameInput:  name,
		styleInput: style,
		extraCount: initial,
		spin:       sp,
		prog:       progress.New(progress.WithDefaultGradient()),
	}
	v.questionInputs = []textinput.Model{v.newQuestionInput(1)}
	return v
}

func (v *wizardView) newQuestionInput(n int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("Question %d", n)
	ti.Width = 48
	return ti
}

func (v *wizardView) setWidth(w int) {
	v.width = w
	v.prog.Width = max(20, min(60, w-20))
}

// Update handles one message for the wizard screen.
func (v *wizardView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd
	case suggestionMsg:
		return v.handleSuggestion(msg)
	case extraQuestionsMsg:
		return v.handleExtraQuestions(msg)
	case introductionMsg:
		return v.handleIntroduction(msg)
	case copyDoneMsg:
		if msg.err != nil {
			v.errMsg = "Copy failed: clipboard unavailable"
			v.copyBusy = false
			return nil
		}
		v.app.setStatus("Copied introduction to clipboard")
		return tea.Tick(copyNoticeWindow, func(time.Time) tea.Msg { return copyResetMsg{} })
	case copyResetMsg:
		v.copyBusy = false
		return nil
	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *wizardView) handleKey(msg tea.KeyMsg) tea.Cmd {
	// While a pipeline call is in flight the step's interactive view is
	// replaced by the loading placeholder; no input reaches it.
	if v.state.Loading() {
		return nil
	}
	if msg.String() == "esc" && v.errMsg != "" {
		v.errMsg = ""
		return nil
	}
	switch v.state.Step() {
	case wizard.StepName:
		return v.handleNameKey(msg)
	case wizard.StepQuestions:
		return v.handleQuestionsKey(msg)
	case wizard.StepAnswers:
		return v.handleAnswersKey(msg)
	case wizard.StepExtraAndStyle:
		return v.handleExtraKey(msg)
	case wizard.StepResult:
		return v.handleResultKey(msg)
	}
	return nil
}

func (v *wizardView) handleNameKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "enter" {
		if err := v.state.SubmitName(v.nameInput.Value()); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.errMsg = ""
		v.nameInput.Blur()
		v.focus = 0
		return v.focusQuestion(0)
	}
	var cmd tea.Cmd
	v.nameInput, cmd = v.nameInput.Update(msg)
	return cmd
}

func (v *wizardView) handleQuestionsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		v.syncQuestions()
		if err := v.state.SubmitQuestions(); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.errMsg = ""
		v.suggestion = ""
		v.buildAnswerInputs()
		return v.focusAnswer(0)
	case "ctrl+a":
		v.syncQuestions()
		v.state.AddQuestion()
		v.questionInputs = append(v.questionInputs, v.newQuestionInput(len(v.questionInputs)+1))
		return v.focusQuestion(len(v.questionInputs) - 1)
	case "ctrl+d":
		v.syncQuestions()
		if err := v.state.RemoveQuestion(v.focus); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.questionInputs = append(v.questionInputs[:v.focus], v.questionInputs[v.focus+1:]...)
		if v.focus >= len(v.questionInputs) {
			v.focus = len(v.questionInputs) - 1
		}
		return v.focusQuestion(v.focus)
	case "ctrl+s":
		// One suggestion call in flight at a time; the trigger is
		// disabled until the previous one resolves.
		if v.suggestBusy {
			return nil
		}
		v.suggestBusy = true
		return v.fetchSuggestion()
	case "ctrl+y":
		if v.suggestion == "" {
			return nil
		}
		v.syncQuestions()
		v.state.ApplySuggestion(v.suggestion)
		v.suggestion = ""
		v.rebuildQuestionInputs()
		return nil
	case "tab", "down":
		return v.moveQuestionFocus(1)
	case "shift+tab", "up":
		return v.moveQuestionFocus(-1)
	}
	var cmd tea.Cmd
	v.questionInputs[v.focus], cmd = v.questionInputs[v.focus].Update(msg)
	return cmd
}

func (v *wizardView) handleAnswersKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		answers := make([]string, len(v.answerInputs))
		for i := range v.answerInputs {
			answers[i] = v.answerInputs[i].Value()
		}
		if err := v.state.BeginExtraFetch(answers); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.errMsg = ""
		return tea.Batch(v.fetchExtraQuestions(), v.spin.Tick)
	case "ctrl+up":
		_, maxCount, _ := v.app.cfg.ExtraCountBounds()
		if v.extraCount < maxCount {
			v.extraCount++
		}
		return nil
	case "ctrl+down":
		minCount, _, _ := v.app.cfg.ExtraCountBounds()
		if v.extraCount > minCount {
			v.extraCount--
		}
		return nil
	case "tab", "down":
		return v.moveAnswerFocus(1)
	case "shift+tab", "up":
		return v.moveAnswerFocus(-1)
	}
	var cmd tea.Cmd
	v.answerInputs[v.focus], cmd = v.answerInputs[v.focus].Update(msg)
	return cmd
}

func (v *wizardView) handleExtraKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		answers := make([]string, len(v.extraInputs))
		for i := range v.extraInputs {
			answers[i] = v.extraInputs[i].Value()
		}
		if err := v.state.BeginIntroFetch(answers, v.styleInput.Value()); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.errMsg = ""
		return tea.Batch(v.fetchIntroduction(), v.spin.Tick)
	case "tab", "down":
		return v.moveExtraFocus(1)
	case "shift+tab", "up":
		return v.moveExtraFocus(-1)
	}
	var cmd tea.Cmd
	if v.focus < len(v.extraInputs) {
		v.extraInputs[v.focus], cmd = v.extraInputs[v.focus].Update(msg)
	} else {
		v.styleInput, cmd = v.styleInput.Update(msg)
	}
	return cmd
}

func (v *wizardView) handleResultKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "c":
		if v.copyBusy {
			return nil
		}
		v.copyBusy = true
		text := v.state.GeneratedText
		return func() tea.Msg {
			return copyDoneMsg{err: clipboard.WriteAll(text)}
		}
	case "r":
		if err := v.state.BeginRegenerate(); err != nil {
			v.errMsg = err.Error()
			return nil
		}
		v.errMsg = ""
		return tea.Batch(v.fetchIntroduction(), v.spin.Tick)
	case "p":
		if v.publishBusy {
			return nil
		}
		v.publishBusy = true
		return v.publish()
	case "n":
		v.restart()
		return v.nameInput.Focus()
	}
	return nil
}

// restart clears the state record and every input so no residue from
// the previous run leaks into the next one.
func (v *wizardView) restart() {
	v.state.Restart()
	v.nameInput.Reset()
	v.styleInput.Reset()
	v.questionInputs = []textinput.Model{v.newQuestionInput(1)}
	v.answerInputs = nil
	v.extraInputs = nil
	v.suggestion = ""
	v.errMsg = ""
	v.focus = 0
	_, _, v.extraCount = v.app.cfg.ExtraCountBounds()
	v.app.logInfo("Wizard restarted")
}

// Pipeline driver commands. One in-flight instance per operation; the
// wizard's interactive view is swapped for a loading placeholder until
// the resolution message arrives.

func (v *wizardView) fetchSuggestion() tea.Cmd {
	client := v.app.client
	return func() tea.Msg {
		q, err := client.SuggestQuestion(context.Background())
		return suggestionMsg{question: q, err: err}
	}
}

func (v *wizardView) fetchExtraQuestions() tea.Cmd {
	client := v.app.client
	answers := v.state.Answers
	count := v.extraCount
	return func() tea.Msg {
		qs, err := client.GenerateExtraQuestions(context.Background(), answers, count)
		return extraQuestionsMsg{questions: qs, err: err}
	}
}

func (v *wizardView) fetchIntroduction() tea.Cmd {
	client := v.app.client
	answers, style, name := v.state.GenerationInputs()
	return func() tea.Msg {
		text, err := client.GenerateIntroduction(context.Background(), answers, style, name)
		return introductionMsg{text: text, err: err}
	}
}

func (v *wizardView) publish() tea.Cmd {
	client := v.app.client
	intro := v.state.GeneratedText
	name := v.state.UserName
	return func() tea.Msg {
		return publishedMsg{err: client.PublishPost(context.Background(), intro, name)}
	}
}

func (v *wizardView) handleSuggestion(msg suggestionMsg) tea.Cmd {
	v.suggestBusy = false
	if v.state.Step() != wizard.StepQuestions {
		// Resolved after the step moved on; drop it.
		return nil
	}
	if msg.err != nil {
		v.reportAuthOrError(msg.err, "Question suggestion failed")
		return nil
	}
	// Last resolved suggestion wins; an earlier unapplied one is
	// simply replaced.
	v.suggestion = strings.TrimSpace(msg.question)
	return nil
}

func (v *wizardView) handleExtraQuestions(msg extraQuestionsMsg) tea.Cmd {
	if v.state.Step() != wizard.StepExtraLoading {
		return nil
	}
	if msg.err != nil {
		v.state.Fail()
		v.reportAuthOrError(msg.err, "Extra question generation failed")
		return v.focusAnswer(v.focus)
	}
	v.state.ApplyExtraQuestions(msg.questions)
	v.buildExtraInputs()
	return v.focusExtra(0)
}

func (v *wizardView) handleIntroduction(msg introductionMsg) tea.Cmd {
	if v.state.Step() != wizard.StepIntroLoading {
		return nil
	}
	if msg.err != nil {
		v.state.Fail()
		v.reportAuthOrError(msg.err, "Introduction generation failed")
		return nil
	}
	v.state.ApplyIntroduction(msg.text)
	v.app.logInfo("Introduction generated for %s", v.state.UserName)
	return nil
}

// reportAuthOrError maps a failed call onto the user-facing error
// taxonomy: 401 points at the login entry, everything else becomes a
// dismissible message.
func (v *wizardView) reportAuthOrError(err error, prefix string) {
	switch {
	case errors.Is(err, api.ErrAuthRequired):
		v.errMsg = fmt.Sprintf("Login required — open %s in your browser", v.app.client.LoginURL())
	case errors.Is(err, api.ErrForbidden):
		v.errMsg = "Permission denied"
	default:
		v.errMsg = fmt.Sprintf("%s: %v", prefix, err)
	}
	v.app.logError("%s: %v", prefix, err)
}

// Focus plumbing. Exactly one input is focused at a time.

func (v *wizardView) moveQuestionFocus(delta int) tea.Cmd {
	v.focus = clamp(v.focus+delta, 0, len(v.questionInputs)-1)
	return v.focusQuestion(v.focus)
}

func (v *wizardView) focusQuestion(i int) tea.Cmd {
	var cmd tea.Cmd
	for idx := range v.questionInputs {
		if idx == i {
			cmd = v.questionInputs[idx].Focus()
		} else {
			v.questionInputs[idx].Blur()
		}
	}
	v.focus = i
	return cmd
}

func (v *wizardView) moveAnswerFocus(delta int) tea.Cmd {
	v.focus = clamp(v.focus+delta, 0, len(v.answerInputs)-1)
	return v.focusAnswer(v.focus)
}

func (v *wizardView) focusAnswer(i int) tea.Cmd {
	i = clamp(i, 0, len(v.answerInputs)-1)
	var cmd tea.Cmd
	for idx := range v.answerInputs {
		if idx == i {
			cmd = v.answerInputs[idx].Focus()
		} else {
			v.answerInputs[idx].Blur()
		}
	}
	v.focus = i
	return cmd
}

func (v *wizardView) moveExtraFocus(delta int) tea.Cmd {
	v.focus = clamp(v.focus+delta, 0, len(v.extraInputs))
	return v.focusExtra(v.focus)
}

// focusExtra treats the style input as the slot one past the extra
// answers.
func (v *wizardView) focusExtra(i int) tea.Cmd {
	i = clamp(i, 0, len(v.extraInputs))
	var cmd tea.Cmd
	for idx := range v.extraInputs {
		if idx == i {
			cmd = v.extraInputs[idx].Focus()
		} else {
			v.extraInputs[idx].Blur()
		}
	}
	if i == len(v.extraInputs) {
		cmd = v.styleInput.Focus()
	} else {
		v.styleInput.Blur()
	}
	v.focus = i
	return cmd
}

// syncQuestions copies the input texts back into the state record so
// transition guards operate on what the user actually typed.
func (v *wizardView) syncQuestions() {
	for i := range v.questionInputs {
		v.state.SetQuestion(i, v.questionInputs[i].Value())
	}
}

// rebuildQuestionInputs re-materializes the inputs from the state,
// used after a suggestion lands in one of the slots.
func (v *wizardView) rebuildQuestionInputs() {
	inputs := make([]textinput.Model, len(v.state.Questions))
	for i, q := range v.state.Questions {
		ti := v.newQuestionInput(i + 1)
		ti.SetValue(q)
		inputs[i] = ti
	}
	v.questionInputs = inputs
	if v.focus >= len(inputs) {
		v.focus = len(inputs) - 1
	}
	_ = v.focusQuestion(v.focus)
}

// buildAnswerInputs creates exactly one input per question, in
// question order.
func (v *wizardView) buildAnswerInputs() {
	inputs := make([]textinput.Model, len(v.state.Questions))
	for i := range v.state.Questions {
		ti := textinput.New()
		ti.Placeholder = "Your answer"
		ti.Width = 48
		inputs[i] = ti
	}
	v.answerInputs = inputs
	v.focus = 0
}

func (v *wizardView) buildExtraInputs() {
	inputs := make([]textinput.Model, len(v.state.ExtraQuestions))
	for i := range v.state.ExtraQuestions {
		ti := textinput.New()
		ti.Placeholder = "Your answer"
		ti.Width = 48
		inputs[i] = ti
	}
	v.extraInputs = inputs
	v.styleInput.Reset()
	v.focus = 0
}

// View renders the active step and the progress indicator.
func (v *wizardView) View() string {
	pos, total := v.state.Step().Progress()
	header := lipgloss.JoinVertical(lipgloss.Left,
		v.prog.ViewAs(float64(pos)/float64(total)),
		hintStyle.Render(fmt.Sprintf("Step %d / %d · %s", pos, total, v.state.Step().Label())),
		"",
	)
	var body string
	switch v.state.Step() {
	case wizard.StepName:
		body = v.viewName()
	case wizard.StepQuestions:
		body = v.viewQuestions()
	case wizard.StepAnswers:
		body = v.viewAnswers()
	case wizard.StepExtraLoading:
		body = v.viewLoading("Generating extra questions…")
	case wizard.StepExtraAndStyle:
		body = v.viewExtra()
	case wizard.StepIntroLoading:
		body = v.viewLoading("Generating your introduction…")
	case wizard.StepResult:
		body = v.viewResult()
	}
	sections := []string{header, body}
	if v.errMsg != "" {
		sections = append(sections, "", errorStyle.Render("⚠ "+v.errMsg)+hintStyle.Render("   esc → dismiss"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *wizardView) viewName() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"What name should the introduction use?",
		"",
		v.nameInput.View(),
		"",
		hintStyle.Render("enter → next"),
	)
}

func (v *wizardView) viewQuestions() string {
	lines := []string{"Which questions should the introduction answer?", ""}
	for i := range v.questionInputs {
		lines = append(lines, v.questionInputs[i].View())
	}
	if v.suggestion != "" {
		lines = append(lines, "",
			suggestionStyle.Render(fmt.Sprintf("Suggested: %s", sanitize.Display(v.suggestion))),
			hintStyle.Render("ctrl+y → use it    ctrl+s → another one"),
		)
	}
	suggestHint := "ctrl+s → suggest a question"
	if v.suggestBusy {
		suggestHint = v.spin.View() + " fetching suggestion…"
	}
	lines = append(lines, "",
		hintStyle.Render("ctrl+a → add    ctrl+d → remove    "+suggestHint),
		hintStyle.Render("enter → next"),
	)
	return strings.Join(lines, "\n")
}

func (v *wizardView) viewAnswers() string {
	lines := []string{"Answer each question:", ""}
	for i, q := range v.state.Questions {
		lines = append(lines,
			questionLabelStyle.Render(sanitize.Display(q)),
			v.answerInputs[i].View(),
		)
	}
	minCount, maxCount, _ := v.app.cfg.ExtraCountBounds()
	lines = append(lines, "",
		fmt.Sprintf("Extra questions to generate: %d (range %d–%d)", v.extraCount, minCount, maxCount),
		hintStyle.Render("ctrl+↑/ctrl+↓ → adjust    enter → next"),
	)
	return strings.Join(lines, "\n")
}

func (v *wizardView) viewExtra() string {
	lines := []string{}
	if len(v.state.ExtraQuestions) > 0 {
		lines = append(lines, "A few follow-up questions:", "")
		for i, q := range v.state.ExtraQuestions {
			lines = append(lines,
				questionLabelStyle.Render(sanitize.Display(q)),
				v.extraInputs[i].View(),
			)
		}
		lines = append(lines, "")
	}
	lines = append(lines,
		"What style should the introduction be written in?",
		v.styleInput.View(),
		"",
		hintStyle.Render("enter → generate introduction"),
	)
	return strings.Join(lines, "\n")
}

func (v *wizardView) viewLoading(label string) string {
	return v.spin.View() + " " + label
}

func (v *wizardView) viewResult() string {
	copyLabel := "c → copy"
	if v.copyBusy {
		copyLabel = "copied!"
	}
	publishLabel := "p → publish to board"
	if v.publishBusy {
		publishLabel = v.spin.View() + " publishing…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Here is %s's introduction:", sanitize.Display(v.state.UserName)),
		"",
		resultStyle.Width(max(40, v.width-8)).Render(sanitize.Display(v.state.GeneratedText)),
		"",
		hintStyle.Render(fmt.Sprintf("%s    r → regenerate    %s    n → start over", copyLabel, publishLabel)),
	)
}

func clamp(value, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
