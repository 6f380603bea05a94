package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"introdeck/internal/api"
	"introdeck/internal/board"
	"introdeck/internal/sanitize"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("#5B8DEF"))
	authorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	mineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
)

// boardMode says what the keyboard currently drives on the board
// screen.
type boardMode int

const (
	modeBrowse boardMode = iota
	modeComment
	modeConfirmDeletePost
	modeConfirmDeleteComment
)

// Board result messages. Every mutation resolves into one of these
// carrying the server's authoritative state for the affected post.
type boardPostsMsg struct {
	posts []api.Post
	err   error
}

type reactionResultMsg struct {
	postID    string
	reactions map[string][]string
	err       error
}

type postDeletedMsg struct {
	postID string
	err    error
}

type commentsResultMsg struct {
	postID     string
	comments   []api.Comment
	err        error
	fromSubmit bool
}

// boardView renders the introduction board and handles its mutations.
// All counts and threads come from the server; the view never keeps a
// local tally.
type boardView struct {
	app *App

	posts   []api.Post
	loaded  bool
	loadErr error

	selection int
	expanded  map[string]bool
	busy      map[string]bool
	cooldown  map[string]time.Time
	drafts    map[string]string

	commentInput textinput.Model
	commentSel   int

	mode          boardMode
	targetPost    string
	targetComment string

	errMsg string
	now    func() time.Time
}

func newBoardView(app *App) *boardView {
	ci := textinput.New()
	ci.Placeholder = "Write a reply"
	ci.CharLimit = 500
	ci.Width = 48
	return &boardView{
		app:          app,
		expanded:     map[string]bool{},
		busy:         map[string]bool{},
		cooldown:     map[string]time.Time{},
		drafts:       map[string]string{},
		commentInput: ci,
		now:          time.Now,
	}
}

// fetchPosts reloads the full board from the server.
func (v *boardView) fetchPosts() tea.Cmd {
	client := v.app.client
	return func() tea.Msg {
		posts, err := client.ListPosts(context.Background())
		return boardPostsMsg{posts: posts, err: err}
	}
}

// Update handles one message for the board screen.
func (v *boardView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case boardPostsMsg:
		v.loaded = true
		v.loadErr = msg.err
		if msg.err != nil {
			v.app.logError("Board load failed: %v", msg.err)
			return nil
		}
		v.posts = msg.posts
		if v.selection >= len(v.posts) {
			v.selection = max(0, len(v.posts)-1)
		}
		v.app.logInfo("Board loaded · %d posts", len(v.posts))
		return nil
	case reactionResultMsg:
		return v.handleReactionResult(msg)
	case postDeletedMsg:
		return v.handlePostDeleted(msg)
	case commentsResultMsg:
		return v.handleCommentsResult(msg)
	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *boardView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.mode {
	case modeComment:
		return v.handleCommentKey(msg)
	case modeConfirmDeletePost, modeConfirmDeleteComment:
		return v.handleConfirmKey(msg)
	}
	return v.handleBrowseKey(msg)
}

func (v *boardView) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" && v.errMsg != "" {
		v.errMsg = ""
		return nil
	}
	switch msg.String() {
	case "g":
		return v.fetchPosts()
	case "j", "down":
		if v.selection < len(v.posts)-1 {
			v.selection++
			v.commentSel = 0
		}
		return nil
	case "k", "up":
		if v.selection > 0 {
			v.selection--
			v.commentSel = 0
		}
		return nil
	case "t":
		if post, ok := v.selected(); ok {
			v.expanded[post.ID] = !v.expanded[post.ID]
			v.commentSel = 0
		}
		return nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return v.reactByIndex(int(msg.String()[0] - '1'))
	case "d":
		return v.beginDeletePost()
	case "c":
		return v.beginComment()
	case "J":
		if post, ok := v.selected(); ok && v.expanded[post.ID] {
			if v.commentSel < len(post.Comments)-1 {
				v.commentSel++
			}
		}
		return nil
	case "K":
		if v.commentSel > 0 {
			v.commentSel--
		}
		return nil
	case "x":
		return v.beginDeleteComment()
	}
	return nil
}

func (v *boardView) selected() (api.Post, bool) {
	if v.selection < 0 || v.selection >= len(v.posts) {
		return api.Post{}, false
	}
	return v.posts[v.selection], true
}

// reactByIndex toggles the catalogue emoji at position i on the
// selected post.
func (v *boardView) reactByIndex(i int) tea.Cmd {
	post, ok := v.selected()
	if !ok {
		return nil
	}
	catalogue := v.app.cfg.ReactionEmojis()
	if i < 0 || i >= len(catalogue) {
		return nil
	}
	if !board.CanReact(v.app.identity) {
		v.promptLogin("react to a post")
		return nil
	}
	// One mutation in flight per post; other posts stay interactive.
	if v.busy[post.ID] {
		return nil
	}
	v.busy[post.ID] = true
	client := v.app.client
	postID, emoji := post.ID, catalogue[i]
	return func() tea.Msg {
		reactions, err := client.ToggleReaction(context.Background(), postID, emoji)
		return reactionResultMsg{postID: postID, reactions: reactions, err: err}
	}
}

func (v *boardView) handleReactionResult(msg reactionResultMsg) tea.Cmd {
	v.busy[msg.postID] = false
	if msg.err != nil {
		v.reportAuthOrError(msg.err, "Reaction failed")
		return nil
	}
	// Replace only the affected post's reaction mapping with the
	// server's answer; counts are never derived locally.
	if i, ok := board.FindPost(v.posts, msg.postID); ok {
		v.posts[i].Reactions = msg.reactions
	}
	return nil
}

func (v *boardView) beginDeletePost() tea.Cmd {
	post, ok := v.selected()
	if !ok {
		return nil
	}
	if !board.CanDelete(v.app.identity, post.Author) {
		// No delete control is offered, so a stray keypress is just
		// ignored for someone else's post.
		return nil
	}
	if v.busy[post.ID] {
		return nil
	}
	v.mode = modeConfirmDeletePost
	v.targetPost = post.ID
	return nil
}

func (v *boardView) beginDeleteComment() tea.Cmd {
	post, ok := v.selected()
	if !ok || !v.expanded[post.ID] {
		return nil
	}
	display := board.NewestFirst(post.Comments)
	if v.commentSel < 0 || v.commentSel >= len(display) {
		return nil
	}
	comment := display[v.commentSel]
	if !board.CanDelete(v.app.identity, comment.Author) {
		return nil
	}
	if v.busy[post.ID] {
		return nil
	}
	v.mode = modeConfirmDeleteComment
	v.targetPost = post.ID
	v.targetComment = comment.ID
	return nil
}

func (v *boardView) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y":
		mode := v.mode
		v.mode = modeBrowse
		if mode == modeConfirmDeletePost {
			return v.deletePost(v.targetPost)
		}
		return v.deleteComment(v.targetPost, v.targetComment)
	case "n", "esc":
		v.mode = modeBrowse
		v.targetPost = ""
		v.targetComment = ""
		return nil
	}
	return nil
}

func (v *boardView) deletePost(postID string) tea.Cmd {
	v.busy[postID] = true
	client := v.app.client
	return func() tea.Msg {
		return postDeletedMsg{postID: postID, err: client.DeletePost(context.Background(), postID)}
	}
}

func (v *boardView) handlePostDeleted(msg postDeletedMsg) tea.Cmd {
	v.busy[msg.postID] = false
	if msg.err != nil {
		v.reportAuthOrError(msg.err, "Delete failed")
		return nil
	}
	if i, ok := board.FindPost(v.posts, msg.postID); ok {
		v.posts = append(v.posts[:i], v.posts[i+1:]...)
	}
	delete(v.expanded, msg.postID)
	delete(v.drafts, msg.postID)
	delete(v.cooldown, msg.postID)
	if v.selection >= len(v.posts) {
		v.selection = max(0, len(v.posts)-1)
	}
	v.app.setStatus("Post deleted")
	return nil
}

func (v *boardView) deleteComment(postID, commentID string) tea.Cmd {
	v.busy[postID] = true
	client := v.app.client
	return func() tea.Msg {
		comments, err := client.DeleteComment(context.Background(), postID, commentID)
		return commentsResultMsg{postID: postID, comments: comments, err: err}
	}
}

func (v *boardView) beginComment() tea.Cmd {
	post, ok := v.selected()
	if !ok {
		return nil
	}
	if !board.CanReact(v.app.identity) {
		v.promptLogin("reply to a post")
		return nil
	}
	if remaining := v.cooldownRemaining(post.ID); remaining > 0 {
		v.errMsg = fmt.Sprintf("Please wait %ds before replying to this post again", int(remaining.Seconds())+1)
		return nil
	}
	if v.busy[post.ID] {
		return nil
	}
	v.mode = modeComment
	v.targetPost = post.ID
	v.commentInput.SetValue(v.drafts[post.ID])
	v.commentInput.CursorEnd()
	return v.commentInput.Focus()
}

func (v *boardView) handleCommentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(v.commentInput.Value())
		if text == "" {
			v.errMsg = "Reply text is required"
			return nil
		}
		postID := v.targetPost
		if remaining := v.cooldownRemaining(postID); remaining > 0 {
			v.errMsg = fmt.Sprintf("Please wait %ds before replying to this post again", int(remaining.Seconds())+1)
			return nil
		}
		v.mode = modeBrowse
		v.errMsg = ""
		v.commentInput.Blur()
		v.drafts[postID] = v.commentInput.Value()
		v.busy[postID] = true
		// The cool-down starts at dispatch and holds regardless of the
		// outcome; it throttles attempts, not successes.
		v.cooldown[postID] = v.now().Add(v.app.cfg.CommentCooldown())
		client := v.app.client
		return func() tea.Msg {
			comments, err := client.SubmitComment(context.Background(), postID, text)
			return commentsResultMsg{postID: postID, comments: comments, err: err, fromSubmit: true}
		}
	case "esc":
		// Keep the draft for the next attempt on the same post.
		v.drafts[v.targetPost] = v.commentInput.Value()
		v.mode = modeBrowse
		v.commentInput.Blur()
		return nil
	}
	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return cmd
}

func (v *boardView) handleCommentsResult(msg commentsResultMsg) tea.Cmd {
	v.busy[msg.postID] = false
	if msg.err != nil {
		if msg.fromSubmit {
			// The draft survives a failed submit.
			v.reportAuthOrError(msg.err, "Reply failed")
		} else {
			v.reportAuthOrError(msg.err, "Delete failed")
		}
		return nil
	}
	if i, ok := board.FindPost(v.posts, msg.postID); ok {
		v.posts[i].Comments = msg.comments
	}
	if msg.fromSubmit {
		delete(v.drafts, msg.postID)
		v.expanded[msg.postID] = true
		v.commentSel = 0
		v.app.setStatus("Reply posted")
	} else {
		v.app.setStatus("Reply deleted")
		if post, ok := v.selected(); ok && v.commentSel >= len(post.Comments) {
			v.commentSel = max(0, len(post.Comments)-1)
		}
	}
	return nil
}

func (v *boardView) cooldownRemaining(postID string) time.Duration {
	until, ok := v.cooldown[postID]
	if !ok {
		return 0
	}
	remaining := until.Sub(v.now())
	if remaining <= 0 {
		delete(v.cooldown, postID)
		return 0
	}
	return remaining
}

func (v *boardView) promptLogin(action string) {
	v.errMsg = fmt.Sprintf("Sign in to %s — open %s in your browser", action, v.app.client.LoginURL())
}

func (v *boardView) reportAuthOrError(err error, prefix string) {
	switch {
	case errors.Is(err, api.ErrAuthRequired):
		v.errMsg = fmt.Sprintf("Login required — open %s in your browser", v.app.client.LoginURL())
	case errors.Is(err, api.ErrForbidden):
		v.errMsg = "You can only delete your own content"
	default:
		v.errMsg = fmt.Sprintf("%s: %v", prefix, err)
	}
	v.app.logError("%s: %v", prefix, err)
}

// View renders the post list with reaction clusters and threads.
func (v *boardView) View() string {
	if !v.loaded {
		return "Loading the board…"
	}
	if v.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("⚠ Could not load the board: %v", v.loadErr)) +
			"\n" + hintStyle.Render("g → retry")
	}
	if len(v.posts) == 0 {
		return "No introductions yet.\n" + hintStyle.Render("ctrl+b → open the wizard and write one")
	}
	sections := make([]string, 0, len(v.posts)+2)
	for i, post := range v.posts {
		sections = append(sections, v.renderPost(post, i == v.selection))
	}
	sections = append(sections, "", hintStyle.Render(v.browseHints()))
	if v.errMsg != "" {
		sections = append(sections, errorStyle.Render("⚠ "+v.errMsg)+hintStyle.Render("   esc → dismiss"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *boardView) browseHints() string {
	switch v.mode {
	case modeComment:
		return "enter → send reply    esc → cancel (draft kept)"
	case modeConfirmDeletePost:
		return confirmStyle.Render("Delete this post? y / n")
	case modeConfirmDeleteComment:
		return confirmStyle.Render("Delete this reply? y / n")
	}
	hints := []string{"j/k → select", "t → thread", "g → refresh"}
	if board.CanReact(v.app.identity) {
		hints = append(hints, "1-"+fmt.Sprint(len(v.app.cfg.ReactionEmojis()))+" → react", "c → reply")
	}
	if post, ok := v.selected(); ok {
		if board.CanDelete(v.app.identity, post.Author) {
			hints = append(hints, "d → delete post")
		}
		if v.expanded[post.ID] {
			hints = append(hints, "J/K → select reply", "x → delete reply")
		}
	}
	return strings.Join(hints, "    ")
}

func (v *boardView) renderPost(post api.Post, selected bool) string {
	author := post.Author
	if author == "" {
		author = "anonymous"
	}
	lines := []string{
		authorStyle.Render(sanitize.Display(post.Name)) +
			hintStyle.Render("  by "+sanitize.Display(author)),
		"",
		sanitize.Display(post.Intro),
		"",
		v.renderReactions(post),
	}
	busy := v.busy[post.ID]
	if busy {
		lines = append(lines, hintStyle.Render("working…"))
	}
	if v.expanded[post.ID] {
		lines = append(lines, "", v.renderThread(post, selected))
	} else if n := len(post.Comments); n > 0 {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("%d replies · t → show", n)))
	}
	if selected && v.mode == modeComment && v.targetPost == post.ID {
		lines = append(lines, "", v.commentInput.View())
	}
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderReactions shows the reaction cluster. Authenticated viewers see
// the whole catalogue as numbered toggles with their own reactions
// highlighted; guests see read-only counts, zero-count emojis omitted.
func (v *boardView) renderReactions(post api.Post) string {
	tally := board.Tally(post, v.app.cfg.ReactionEmojis(), v.app.identity)
	parts := make([]string, 0, len(tally))
	if board.CanReact(v.app.identity) {
		for i, r := range tally {
			cell := fmt.Sprintf("%d·%s %d", i+1, r.Emoji, r.Count)
			if r.Mine {
				cell = mineStyle.Render(cell)
			}
			parts = append(parts, cell)
		}
	} else {
		for _, r := range tally {
			if r.Count > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", r.Emoji, r.Count))
			}
		}
		if len(parts) == 0 {
			return hintStyle.Render("no reactions yet")
		}
	}
	return strings.Join(parts, "  ")
}

func (v *boardView) renderThread(post api.Post, selected bool) string {
	display := board.NewestFirst(post.Comments)
	if len(display) == 0 {
		return hintStyle.Render("no replies yet")
	}
	lines := make([]string, 0, len(display))
	for i, c := range display {
		marker := "  "
		if selected && i == v.commentSel {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s: %s", marker,
			authorStyle.Render(sanitize.Display(c.Author)),
			sanitize.Display(c.Text))
		if board.CanDelete(v.app.identity, c.Author) {
			line += hintStyle.Render("  (yours)")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
