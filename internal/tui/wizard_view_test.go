package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"introdeck/internal/api"
	"introdeck/internal/wizard"
)

func TestWizardHappyPath(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	fix.extraQuestions = []string{"Favorite food?"}
	fix.intro = "Hello, I am Alice from Mars."
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepQuestions {
		t.Fatalf("expected questions step after name, got %v", got)
	}

	app = typeText(t, app, "Where are you from?")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepAnswers {
		t.Fatalf("expected answers step, got %v", got)
	}
	if len(app.wizard.answerInputs) != 1 {
		t.Fatalf("expected one answer input per question, got %d", len(app.wizard.answerInputs))
	}

	app = typeText(t, app, "Mars")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepExtraAndStyle {
		t.Fatalf("expected extra-question step, got %v", got)
	}
	if fix.calls["/generate_extra_questions"] != 1 {
		t.Fatalf("expected one extra-question call, got %d", fix.calls["/generate_extra_questions"])
	}
	if len(app.wizard.extraInputs) != 1 {
		t.Fatalf("expected one extra answer input, got %d", len(app.wizard.extraInputs))
	}

	app = typeText(t, app, "Pizza")
	app = pressKey(t, app, tea.KeyTab)
	app = typeText(t, app, "casual")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepResult {
		t.Fatalf("expected result step, got %v", got)
	}
	if app.wizard.state.GeneratedText != fix.intro {
		t.Fatalf("unexpected generated text %q", app.wizard.state.GeneratedText)
	}

	merged := app.wizard.state.LastAnswers
	if len(merged) != 2 {
		t.Fatalf("expected two merged answers, got %d", len(merged))
	}
	if merged[0].Question != "Where are you from?" || merged[1].Question != "Favorite food?" {
		t.Fatalf("merged answers out of order: %+v", merged)
	}
}

func TestWizardRegenerateReusesSnapshot(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	fix.extraQuestions = nil
	fix.intro = "First draft."
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Hobby?")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Chess")
	app = pressKey(t, app, tea.KeyEnter)
	// No extra questions returned: the form is just the style input.
	app = typeText(t, app, "formal")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepResult {
		t.Fatalf("expected result step, got %v", got)
	}

	fix.intro = "Second draft."
	app = typeText(t, app, "r")
	if got := app.wizard.state.GeneratedText; got != "Second draft." {
		t.Fatalf("regeneration should replace the text, got %q", got)
	}
	if fix.calls["/generate_intro"] != 2 {
		t.Fatalf("expected two generation calls, got %d", fix.calls["/generate_intro"])
	}
}

func TestWizardNameIsRequired(t *testing.T) {
	fix := newBoardFixture()
	app := newTestApp(t, fix.start(t))
	app = typeText(t, app, "  【】 ")
	app = pressKey(t, app, tea.KeyEnter)
	if got := app.wizard.state.Step(); got != wizard.StepName {
		t.Fatalf("blank name must not advance, got step %v", got)
	}
	if app.wizard.errMsg == "" {
		t.Fatalf("expected a validation message")
	}
}

func TestWizardSuggestionFillsFirstBlankSlot(t *testing.T) {
	fix := newBoardFixture()
	fix.suggestion = "What do you do on weekends?"
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "First question")
	app = pressKey(t, app, tea.KeyCtrlA)
	app = pressKey(t, app, tea.KeyCtrlS)
	if app.wizard.suggestion != fix.suggestion {
		t.Fatalf("suggestion not stored: %q", app.wizard.suggestion)
	}
	app = pressKey(t, app, tea.KeyCtrlY)
	if got := app.wizard.state.Questions[1]; got != fix.suggestion {
		t.Fatalf("suggestion should land in the blank slot, got %q", got)
	}
	if got := app.wizard.state.Questions[0]; got != "First question" {
		t.Fatalf("non-blank slot must not be overwritten, got %q", got)
	}
	if app.wizard.suggestion != "" {
		t.Fatalf("applied suggestion should be cleared")
	}
}

func TestWizardGenerationFailureReturnsToForm(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Hobby?")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Chess")
	app = pressKey(t, app, tea.KeyEnter)

	app, _ = applyMsg(t, app, introductionMsg{err: api.ErrAuthRequired})
	if got := app.wizard.state.Step(); got != wizard.StepExtraAndStyle {
		t.Fatalf("a failed generation falls back to the form, got %v", got)
	}
	if !strings.Contains(app.wizard.errMsg, app.client.LoginURL()) {
		t.Fatalf("401 should point at the login page, got %q", app.wizard.errMsg)
	}
}

func TestWizardPublishSwitchesToBoard(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	fix.intro = "Hi there."
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Hobby?")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Chess")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "casual")
	app = pressKey(t, app, tea.KeyEnter)
	if app.wizard.state.Step() != wizard.StepResult {
		t.Fatalf("expected result step, got %v", app.wizard.state.Step())
	}

	fix.posts = []api.Post{{ID: "p1", Author: "alice", Name: "Alice", Intro: "Hi there."}}
	app = typeText(t, app, "p")
	if fix.calls["/local_save"] != 1 {
		t.Fatalf("expected one publish call, got %d", fix.calls["/local_save"])
	}
	if app.screen != screenBoard {
		t.Fatalf("publish success should land on the board")
	}
	if len(app.board.posts) != 1 || app.board.posts[0].ID != "p1" {
		t.Fatalf("board should hold the refetched post list: %+v", app.board.posts)
	}
	if app.wizard.publishBusy {
		t.Fatalf("publish busy flag must be cleared")
	}
}

func TestWizardRestartClearsEverything(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	fix.intro = "Hi."
	app := newTestApp(t, fix.start(t))

	app = typeText(t, app, "Alice")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Hobby?")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "Chess")
	app = pressKey(t, app, tea.KeyEnter)
	app = typeText(t, app, "casual")
	app = pressKey(t, app, tea.KeyEnter)

	app = typeText(t, app, "n")
	st := app.wizard.state
	if st.Step() != wizard.StepName {
		t.Fatalf("restart should return to the name step, got %v", st.Step())
	}
	if st.UserName != "" || st.GeneratedText != "" || len(st.LastAnswers) != 0 {
		t.Fatalf("restart left residue: %+v", st)
	}
	if got := app.wizard.nameInput.Value(); got != "" {
		t.Fatalf("name input should be cleared, got %q", got)
	}
	if len(app.wizard.questionInputs) != 1 {
		t.Fatalf("restart should show a single blank question input")
	}
}
