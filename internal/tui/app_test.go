package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"

	"introdeck/internal/api"
	"introdeck/internal/config"
	"introdeck/internal/logbook"
)

// boardFixture is a scriptable stand-in for the board server. Tests set
// its fields and point a real client at its httptest handler.
type boardFixture struct {
	identity       api.Identity
	posts          []api.Post
	suggestion     string
	extraQuestions []string
	intro          string
	reactions      map[string][]string
	comments       []api.Comment
	calls          map[string]int
}

func newBoardFixture() *boardFixture {
	return &boardFixture{calls: map[string]int{}}
}

func (f *boardFixture) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	handle := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			f.calls[path]++
			fn(w, r)
		})
	}
	requireAuth := func(w http.ResponseWriter) bool {
		if !f.identity.Authenticated {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}
	handle("/api/session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.identity)
	})
	handle("/api/intros", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.posts)
	})
	handle("/suggest_question", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"question": f.suggestion})
	})
	handle("/generate_extra_questions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"extra_questions": f.extraQuestions})
	})
	handle("/generate_intro", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"introduction": f.intro})
	})
	handle("/local_save", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w) {
			return
		}
		writeJSON(w, map[string]string{"status": "success"})
	})
	handle("/api/react", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w) {
			return
		}
		writeJSON(w, map[string]any{"reactions": f.reactions})
	})
	handle("/api/delete_intro", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w) {
			return
		}
		writeJSON(w, map[string]string{"status": "success"})
	})
	handle("/api/comment", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w) {
			return
		}
		writeJSON(w, map[string]any{"comments": f.comments})
	})
	handle("/api/delete_comment", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w) {
			return
		}
		writeJSON(w, map[string]any{"status": "success", "comments": f.comments})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, srv *httptest.Server, opts ...AppOption) *App {
	t.Helper()
	dir := t.TempDir()
	if err := config.InitConfigDir(dir); err != nil {
		t.Fatalf("init config dir: %v", err)
	}
	cfg, err := config.New(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	book, err := logbook.New(filepath.Join(cfg.LogsDir(), "introdeck.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	app := NewApp(cfg, client, book, opts...)
	return runCommands(t, app, app.Init())
}

// runCommands drains a command and every command it transitively
// produces, feeding the resulting messages back through Update.
// Spinner frames are dropped: they tick forever.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		if next == nil {
			continue
		}
		msg := next()
		if msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			pending = append(pending, batch...)
			continue
		}
		if _, isTick := msg.(spinner.TickMsg); isTick {
			continue
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		pending = append(pending, nextCmd)
	}
	return app
}

func press(t *testing.T, app *App, msg tea.KeyMsg) *App {
	t.Helper()
	model, cmd := app.Update(msg)
	return runCommands(t, model, cmd)
}

func pressKey(t *testing.T, app *App, key tea.KeyType) *App {
	t.Helper()
	return press(t, app, tea.KeyMsg{Type: key})
}

func typeText(t *testing.T, app *App, text string) *App {
	t.Helper()
	for _, r := range text {
		app = press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return app
}

func TestSessionEstablishesIdentity(t *testing.T) {
	fix := newBoardFixture()
	fix.identity = api.Identity{Authenticated: true, User: "alice"}
	app := newTestApp(t, fix.start(t))
	if !app.identityKnown {
		t.Fatalf("identity should be resolved after init")
	}
	if !app.identity.Authenticated || app.identity.User != "alice" {
		t.Fatalf("unexpected identity: %+v", app.identity)
	}
	if fix.calls["/api/session"] != 1 {
		t.Fatalf("expected exactly one session call, got %d", fix.calls["/api/session"])
	}
}

func TestSessionFailureFallsBackToGuest(t *testing.T) {
	fix := newBoardFixture()
	srv := fix.start(t)
	app := newTestApp(t, srv)
	app, _ = applyMsg(t, app, sessionMsg{err: &api.StatusError{Code: 500}})
	if !app.identityKnown {
		t.Fatalf("a failed session lookup still resolves the identity")
	}
	if app.identity.Authenticated {
		t.Fatalf("failed lookup must not grant authentication")
	}
	if !strings.Contains(app.View(), "guest") {
		t.Fatalf("header should show the guest label")
	}
}

func TestToggleScreenSwitchesViews(t *testing.T) {
	fix := newBoardFixture()
	app := newTestApp(t, fix.start(t))
	if app.screen != screenWizard {
		t.Fatalf("app starts on the wizard")
	}
	app = pressKey(t, app, tea.KeyCtrlB)
	if app.screen != screenBoard {
		t.Fatalf("ctrl+b should open the board")
	}
	app = pressKey(t, app, tea.KeyCtrlB)
	if app.screen != screenWizard {
		t.Fatalf("ctrl+b should return to the wizard")
	}
}

func applyMsg(t *testing.T, app *App, msg tea.Msg) (*App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	next, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	return next, cmd
}
