// Package sanitize prepares user- and server-supplied text for display.
//
// Every renderer must pass free-form text through Display before
// inserting it into a view. The display name and style directive get
// the stricter Name/Style treatment on top of that.
package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameRunes bounds the sanitized display name.
const MaxNameRunes = 200

// brackets lists the bracket and parenthesis forms stripped from names
// and style directives: ASCII, fullwidth, and the common CJK pairs.
var brackets = strings.NewReplacer(
	"(", "", ")", "",
	"[", "", "]", "",
	"{", "", "}", "",
	"<", "", ">", "",
	"（", "", "）", "",
	"［", "", "］", "",
	"｛", "", "｝", "",
	"＜", "", "＞", "",
	"「", "", "」", "",
	"『", "", "』", "",
	"〈", "", "〉", "",
	"《", "", "》", "",
	"【", "", "】", "",
)

// Display makes arbitrary text safe to embed in a rendered view.
// Control bytes (including ESC, which would otherwise let embedded
// terminal sequences execute) are dropped; newlines and tabs survive so
// the text's whitespace layout is preserved. Printable characters pass
// through untouched, so markup like "<script>" renders as literal text.
func Display(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f):
			// C0, DEL, and C1 controls
		case r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Name sanitizes a display name: trims surrounding space, strips
// bracket characters, and neutralizes control input.
func Name(s string) string {
	return Display(strings.TrimSpace(brackets.Replace(s)))
}

// ValidateName returns the sanitized name or an error when the result
// is empty or longer than MaxNameRunes code points.
func ValidateName(s string) (string, error) {
	name := Name(s)
	if name == "" {
		return "", fmt.Errorf("sanitize: name is required")
	}
	if n := utf8.RuneCountInString(name); n > MaxNameRunes {
		return "", fmt.Errorf("sanitize: name is %d characters, limit is %d", n, MaxNameRunes)
	}
	return name, nil
}

// Style sanitizes the free-text tone directive the same way as a name.
// Unlike names, an empty style is valid: the server falls back to its
// default prompt.
func Style(s string) string {
	return Name(s)
}
