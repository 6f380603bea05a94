package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnswerSetMarshalKeepsOrder(t *testing.T) {
	var answers AnswerSet
	answers.Set("z question", "last letter")
	answers.Set("a question", "first letter")
	answers.Set("m question", "middle")
	data, err := json.Marshal(answers)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"z question":"last letter","a question":"first letter","m question":"middle"}`
	if string(data) != want {
		t.Fatalf("order not preserved:\n got %s\nwant %s", data, want)
	}
}

func TestAnswerSetMergeOverrides(t *testing.T) {
	first := AnswerSet{{Question: "hobby", Answer: "reading"}, {Question: "food", Answer: "curry"}}
	second := AnswerSet{{Question: "food", Answer: "ramen"}, {Question: "dream", Answer: "travel"}}
	merged := first.Merge(second)
	if len(merged) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(merged))
	}
	if merged[0].Question != "hobby" || merged[1].Question != "food" || merged[2].Question != "dream" {
		t.Fatalf("unexpected order: %+v", merged)
	}
	if merged[1].Answer != "ramen" {
		t.Fatalf("second round should override, got %q", merged[1].Answer)
	}
}

func TestAnswerSetUnmarshalRoundTrip(t *testing.T) {
	original := AnswerSet{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded AnswerSet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != original[0] || decoded[1] != original[1] {
		t.Fatalf("round trip lost data: %+v", decoded)
	}
}

func TestGenerateIntroductionPayloadIsRepeatable(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		_ = json.NewEncoder(w).Encode(map[string]string{"introduction": "こんにちは"})
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	answers := AnswerSet{{Question: "趣味は？", Answer: "散歩"}}
	for i := 0; i < 2; i++ {
		text, err := client.GenerateIntroduction(context.Background(), answers, "casual", "hanako")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if text != "こんにちは" {
			t.Fatalf("unexpected introduction: %q", text)
		}
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Fatalf("regeneration payload differs:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestGenerateExtraQuestionsRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_extra_questions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Answers    AnswerSet `json:"answers"`
			ExtraCount int       `json:"extra_count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ExtraCount != 3 || len(req.Answers) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"extra_questions": {"好きな季節は？", "休日の過ごし方は？"},
		})
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	questions, err := client.GenerateExtraQuestions(context.Background(), AnswerSet{{Question: "q", Answer: "a"}}, 3)
	if err != nil {
		t.Fatalf("generate extra questions: %v", err)
	}
	// The requested count is not a guarantee; any returned length is accepted.
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { return errors.Is(err, ErrAuthRequired) }},
		{http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrForbidden) }},
		{http.StatusInternalServerError, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == http.StatusInternalServerError
		}},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))
		client := newTestClient(t, server.URL)
		err := client.DeletePost(context.Background(), "42")
		if err == nil || !tc.check(err) {
			t.Fatalf("status %d mapped to %v", tc.status, err)
		}
		server.Close()
	}
}

func TestPublishPostSendsForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("intro") != "hello\nworld" || r.PostForm.Get("name") != "hanako" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "saved"})
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	if err := client.PublishPost(context.Background(), "hello\nworld", "hanako"); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestPublishPostReportsServerDeclines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "quota exceeded"})
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	err := client.PublishPost(context.Background(), "text", "name")
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "quota exceeded" {
		t.Fatalf("expected declined status error, got %v", err)
	}
}

func TestToggleReactionReturnsServerMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PostID string `json:"post_id"`
			Emoji  string `json:"emoji"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.PostID != "42" || req.Emoji != "👍" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]map[string][]string{
			"reactions": {"👍": {"alice"}},
		})
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	reactions, err := client.ToggleReaction(context.Background(), "42", "👍")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(reactions["👍"]) != 1 || reactions["👍"][0] != "alice" {
		t.Fatalf("unexpected reactions: %v", reactions)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, bad := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := New(bad); err == nil {
			t.Fatalf("expected error for base URL %q", bad)
		}
	}
	client := newTestClient(t, "http://127.0.0.1:5000/")
	if client.BaseURL() != "http://127.0.0.1:5000" {
		t.Fatalf("trailing slash not trimmed: %s", client.BaseURL())
	}
	if client.LoginURL() != "http://127.0.0.1:5000/login" {
		t.Fatalf("unexpected login URL: %s", client.LoginURL())
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(baseURL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}
