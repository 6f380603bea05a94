// internal/tui/app.go
//
// This is the main TUI for introdeck. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Two screens share the model: the generation wizard and the board.
// Each network call is issued as a tea.Cmd whose result comes back as a
// message, so all continuations resume on the single update loop.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"introdeck/internal/api"
	"introdeck/internal/board"
	"introdeck/internal/config"
	"introdeck/internal/logbook"
)

// screen represents which view is active.
type screen int

const (
	screenWizard screen = iota
	screenBoard
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// sessionMsg carries the identity context fetched once at startup.
type sessionMsg struct {
	identity api.Identity
	err      error
}

// publishedMsg reports the outcome of saving the generated
// introduction to the board.
type publishedMsg struct {
	err error
}

// App is the main application model. In bubbletea, this holds ALL the
// state for both views.
type App struct {
	cfg    *config.Config
	client *api.Client
	book   *logbook.Logbook

	identity      board.Identity
	identityKnown bool

	screen screen
	wizard *wizardView
	board  *boardView

	width  int
	height int

	statusMsg     string
	lastLogStatus string
}

// AppOption customizes App construction for tests.
type AppOption func(*App)

// WithClock overrides the time source used for cool-down bookkeeping.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.board.now = now
		}
	}
}

// NewApp creates the application model.
func NewApp(cfg *config.Config, client *api.Client, book *logbook.Logbook, opts ...AppOption) *App {
	app := &App{
		cfg:    cfg,
		client: client,
		book:   book,
		screen: screenWizard,
	}
	app.wizard = newWizardView(app)
	app.board = newBoardView(app)
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init fetches the identity context and the initial post list.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchSession(), a.board.fetchPosts(), a.wizard.spin.Tick)
}

func (a *App) fetchSession() tea.Cmd {
	return func() tea.Msg {
		id, err := a.client.Session(context.Background())
		return sessionMsg{identity: id, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.wizard.setWidth(msg.Width)
		return a, nil

	case sessionMsg:
		if msg.err != nil {
			// An unreachable session endpoint means an anonymous view,
			// not a fatal error: the board stays readable.
			a.logWarn("Session lookup failed: %v", msg.err)
			a.identityKnown = true
			return a, nil
		}
		a.identity = board.FromSession(msg.identity)
		a.identityKnown = true
		if a.identity.Authenticated {
			a.logInfo("Session · signed in as %s", a.identity.User)
		} else {
			a.logInfo("Session · anonymous viewer")
		}
		return a, nil

	case publishedMsg:
		return a, a.handlePublished(msg)

	// Async results are routed to the view that issued them, not the
	// view that happens to be on screen when they resolve.
	case boardPostsMsg, reactionResultMsg, postDeletedMsg, commentsResultMsg:
		return a, a.board.Update(msg)
	case suggestionMsg, extraQuestionsMsg, introductionMsg, copyDoneMsg, copyResetMsg, spinner.TickMsg:
		return a, a.wizard.Update(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+b":
			a.toggleScreen()
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch a.screen {
	case screenWizard:
		cmd = a.wizard.Update(msg)
	case screenBoard:
		cmd = a.board.Update(msg)
	}
	return a, cmd
}

// handlePublished is the single handoff point from the wizard to the
// board: on success the board screen takes over and re-fetches the
// authoritative post list.
func (a *App) handlePublished(msg publishedMsg) tea.Cmd {
	a.wizard.publishBusy = false
	if msg.err != nil {
		a.wizard.reportAuthOrError(msg.err, "Publish failed")
		return nil
	}
	a.setStatus("Introduction published")
	a.screen = screenBoard
	return a.board.fetchPosts()
}

func (a *App) toggleScreen() {
	if a.screen == screenWizard {
		a.screen = screenBoard
		return
	}
	a.screen = screenWizard
}

// View renders the active screen with the shared chrome.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := headerStyle.Render("⬢ INTRODECK")
	var content, title string
	switch a.screen {
	case screenWizard:
		title = "Generation Wizard"
		content = a.wizard.View()
	case screenBoard:
		title = "Introduction Board"
		content = a.board.View()
	}
	body := panelStyle.Width(max(40, width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			hintStyle.Render(fmt.Sprintf("%s · %s    ctrl+b → switch view", title, a.identityLabel())),
			"",
			content,
		),
	)
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, footerStyle.Render(a.statusMsg))
	}
	return strings.Join(sections, "\n")
}

func (a *App) identityLabel() string {
	switch {
	case !a.identityKnown:
		return "connecting…"
	case a.identity.Authenticated:
		return "signed in as " + a.identity.User
	default:
		return "viewing as guest"
	}
}

func (a *App) renderLogPanel() string {
	if a.book == nil {
		return ""
	}
	lines := a.book.Tail(4)
	if len(lines) == 0 {
		return ""
	}
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(body)
}

func (a *App) setStatus(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	a.statusMsg = message
	a.logProgress(message)
}

func (a *App) logProgress(status string) {
	if status == "" || status == a.lastLogStatus {
		return
	}
	a.lastLogStatus = status
	a.logInfo(status)
}

func (a *App) logInfo(format string, args ...any) {
	if a.book == nil {
		return
	}
	a.book.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.book == nil {
		return
	}
	a.book.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.book == nil {
		return
	}
	a.book.Error(format, args...)
}
