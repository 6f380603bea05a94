// Package board holds the view-side domain rules for the introduction
// board: who may delete what, how reaction tallies are derived from the
// server's reaction mapping, and how replies are ordered for display.
// Everything here is a pure function of the post data and the viewer's
// identity context; authoritative state always lives on the server.
package board

import "introdeck/internal/api"

// Identity is the viewer's authentication context, fixed for the
// session. Authorization decisions take it as an argument rather than
// reading ambient state so the same renderer is valid for any viewer.
type Identity struct {
	Authenticated bool
	User          string
}

// FromSession converts the wire-level identity into the view-side one.
func FromSession(s api.Identity) Identity {
	return Identity{Authenticated: s.Authenticated, User: s.User}
}

// CanDelete reports whether the viewer may delete content owned by
// author. Only the authenticated author may.
func CanDelete(id Identity, author string) bool {
	return id.Authenticated && id.User != "" && id.User == author
}

// CanReact reports whether the viewer gets interactive reaction and
// reply controls at all.
func CanReact(id Identity) bool {
	return id.Authenticated
}

// Reaction is one emoji's tally on one post, as the renderer shows it.
type Reaction struct {
	Emoji string
	Count int
	Mine  bool
}

// Tally derives the ordered reaction cluster for a post. The catalogue
// fixes the order; emojis the server reports outside the catalogue are
// ignored. Mine is true when the viewer's identity is in the emoji's
// reactor set.
func Tally(post api.Post, catalogue []string, id Identity) []Reaction {
	out := make([]Reaction, 0, len(catalogue))
	for _, emoji := range catalogue {
		reactors := post.Reactions[emoji]
		r := Reaction{Emoji: emoji, Count: len(reactors)}
		if id.Authenticated {
			for _, user := range reactors {
				if user == id.User {
					r.Mine = true
					break
				}
			}
		}
		out = append(out, r)
	}
	return out
}

// NewestFirst returns the replies in display order: most recent first,
// which is the reverse of the server's arrival order.
func NewestFirst(comments []api.Comment) []api.Comment {
	if len(comments) == 0 {
		return nil
	}
	out := make([]api.Comment, len(comments))
	for i, c := range comments {
		out[len(comments)-1-i] = c
	}
	return out
}

// FindPost locates a post by identity. Mutation handlers address posts
// by id, never by position, so concurrent mutations on different posts
// stay independent.
func FindPost(posts []api.Post, id string) (int, bool) {
	for i := range posts {
		if posts[i].ID == id {
			return i, true
		}
	}
	return -1, false
}
