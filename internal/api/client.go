// Package api implements the HTTP client for the introduction board
// service. The server owns sessions, persistence, and the generation
// model; this client only speaks the wire contract and reports failures
// through a small error taxonomy the UI can act on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request/response exchange. Generation
// calls go through a language model, so the bound is generous.
const DefaultTimeout = 90 * time.Second

// Sentinel errors for the two authorization outcomes the UI
// distinguishes: 401 asks the user to log in, 403 is a hard denial.
var (
	ErrAuthRequired = errors.New("api: authentication required")
	ErrForbidden    = errors.New("api: permission denied")
)

// StatusError reports any other non-success response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("api: server returned status %d", e.Code)
	}
	return fmt.Sprintf("api: server returned status %d: %s", e.Code, e.Message)
}

// Client talks to one board server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client; tests use it to
// inject short timeouts.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New builds a client for the given base URL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("api: server base URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api: invalid server base URL %q", baseURL)
	}
	c := &Client{
		baseURL: trimmed,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the server base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// LoginURL returns the server's login entry point. The client never
// follows it; the UI shows it when a call comes back 401.
func (c *Client) LoginURL() string { return c.baseURL + "/login" }

// Session fetches the viewer's identity context once at startup.
func (c *Client) Session(ctx context.Context) (Identity, error) {
	var id Identity
	err := c.getJSON(ctx, "/api/session", &id)
	return id, err
}

// ListPosts returns every published introduction in server order.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.getJSON(ctx, "/api/intros", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SuggestQuestion asks the server for one candidate question.
func (c *Client) SuggestQuestion(ctx context.Context) (string, error) {
	var resp struct {
		Question string `json:"question"`
	}
	if err := c.postJSON(ctx, "/suggest_question", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Question, nil
}

// GenerateExtraQuestions submits the first-round answers and a
// requested count. The count is a request, not a guarantee: the caller
// must accept any length the server returns.
func (c *Client) GenerateExtraQuestions(ctx context.Context, answers AnswerSet, extraCount int) ([]string, error) {
	req := struct {
		Answers    AnswerSet `json:"answers"`
		ExtraCount int       `json:"extra_count"`
	}{Answers: answers, ExtraCount: extraCount}
	var resp struct {
		ExtraQuestions []string `json:"extra_questions"`
	}
	if err := c.postJSON(ctx, "/generate_extra_questions", req, &resp); err != nil {
		return nil, err
	}
	return resp.ExtraQuestions, nil
}

// GenerateIntroduction produces the introduction text. Calling it again
// with the identical payload regenerates a fresh variant.
func (c *Client) GenerateIntroduction(ctx context.Context, answers AnswerSet, style, name string) (string, error) {
	req := struct {
		Answers AnswerSet `json:"answers"`
		Style   string    `json:"style"`
		Name    string    `json:"name"`
	}{Answers: answers, Style: style, Name: name}
	var resp struct {
		Introduction string `json:"introduction"`
	}
	if err := c.postJSON(ctx, "/generate_intro", req, &resp); err != nil {
		return "", err
	}
	return resp.Introduction, nil
}

// PublishPost saves the finished introduction to the board. The author
// is implied by the server-side session; only the intro text and the
// poster-declared display name travel. This endpoint predates the JSON
// ones and still takes a form body.
func (c *Client) PublishPost(ctx context.Context, intro, name string) error {
	form := url.Values{}
	form.Set("intro", intro)
	form.Set("name", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/local_save", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("api: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "success" {
		return &StatusError{Code: http.StatusOK, Message: resp.Message}
	}
	return nil
}

// ToggleReaction flips the viewer's reaction for one emoji on one post
// and returns the server's authoritative reaction mapping.
func (c *Client) ToggleReaction(ctx context.Context, postID, emoji string) (map[string][]string, error) {
	req := struct {
		PostID string `json:"post_id"`
		Emoji  string `json:"emoji"`
	}{PostID: postID, Emoji: emoji}
	var resp struct {
		Reactions map[string][]string `json:"reactions"`
	}
	if err := c.postJSON(ctx, "/api/react", req, &resp); err != nil {
		return nil, err
	}
	return resp.Reactions, nil
}

// DeletePost removes the viewer's own post.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	req := struct {
		PostID string `json:"post_id"`
	}{PostID: postID}
	return c.postJSON(ctx, "/api/delete_intro", req, nil)
}

// SubmitComment attaches a reply and returns the post's full reply
// list as the server now holds it.
func (c *Client) SubmitComment(ctx context.Context, postID, text string) ([]Comment, error) {
	req := struct {
		PostID string `json:"post_id"`
		Text   string `json:"text"`
	}{PostID: postID, Text: text}
	var resp struct {
		Comments []Comment `json:"comments"`
	}
	if err := c.postJSON(ctx, "/api/comment", req, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// DeleteComment removes the viewer's own reply and returns the post's
// remaining reply list.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) ([]Comment, error) {
	req := struct {
		PostID    string `json:"post_id"`
		CommentID string `json:"comment_id"`
	}{PostID: postID, CommentID: commentID}
	var resp struct {
		Status   string    `json:"status"`
		Comments []Comment `json:"comments"`
	}
	if err := c.postJSON(ctx, "/api/delete_comment", req, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("api: build request %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: encode request %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("api: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthRequired
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Code: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// readErrorMessage pulls a human-readable message out of an error body
// when the server sent one; bodies are capped so a broken server cannot
// balloon memory.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return ""
	}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
