package api

import (
	"bytes"
	"encoding/json"
)

// Identity reports the viewer's session as the server sees it. It is
// fetched once at startup and treated as immutable for the program's
// lifetime; a login or logout requires a restart.
type Identity struct {
	Authenticated bool   `json:"is_authenticated"`
	User          string `json:"current_user"`
}

// Comment is one reply attached to a post.
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Post is one published introduction on the board. Reactions maps an
// emoji to the set of user identities that have toggled it; a user
// appears at most once per emoji.
type Post struct {
	ID        string              `json:"id"`
	Author    string              `json:"author"`
	Name      string              `json:"name"`
	Intro     string              `json:"intro"`
	Reactions map[string][]string `json:"reactions"`
	Comments  []Comment           `json:"comments"`
}

// QA is one question with the answer the user gave it.
type QA struct {
	Question string
	Answer   string
}

// AnswerSet is an ordered sequence of question/answer pairs. It
// marshals to a JSON object whose keys keep insertion order: the
// generation prompt is built by iterating the object, so order is part
// of the payload.
type AnswerSet []QA

// Set appends the pair, or replaces the answer when the question is
// already present.
func (a *AnswerSet) Set(question, answer string) {
	for i := range *a {
		if (*a)[i].Question == question {
			(*a)[i].Answer = answer
			return
		}
	}
	*a = append(*a, QA{Question: question, Answer: answer})
}

// Merge returns a new set holding the receiver's pairs followed by
// extra's; extra wins on question collision.
func (a AnswerSet) Merge(extra AnswerSet) AnswerSet {
	merged := make(AnswerSet, 0, len(a)+len(extra))
	merged = append(merged, a...)
	for _, qa := range extra {
		merged.Set(qa.Question, qa.Answer)
	}
	return merged
}

// MarshalJSON emits an object with one member per pair, in order.
func (a AnswerSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, qa := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(qa.Question)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(qa.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the object form. Go's map iteration would
// scramble the order, so the decoder walks the token stream instead.
func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}
	var out AnswerSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out.Set(key, value)
	}
	*a = out
	return nil
}
