// Package composer parses the live input buffer for "/" commands and "@"
// mentions and drives keyboard autocomplete over them.
package composer

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind is the type of autocomplete popup
type Kind int

const (
	KindNone Kind = iota
	KindCommand
	KindMention
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindMention:
		return "mention"
	default:
		return "none"
	}
}

// Trigger is an open "/" or "@" token ending at the caret
type Trigger struct {
	Kind  Kind
	Start int // rune offset of the trigger character
	Query string
}

// Candidate is one autocomplete entry
type Candidate struct {
	ID          string
	Label       string
	Handle      string
	Description string
	Glyph       string
}

// Edit is the buffer state produced by a commit
type Edit struct {
	Text  string
	Caret int // rune offset
}

func isWordRune(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

// DetectTrigger looks for "/" or "@" followed by word characters at the end
// of the text before caret.
func DetectTrigger(text string, caret int) (Trigger, bool) {
	runes := []rune(text)
	caret = clampCaret(caret, len(runes))

	pos := caret
	for pos > 0 && isWordRune(runes[pos-1]) {
		pos--
	}
	if pos == 0 {
		return Trigger{}, false
	}

	var kind Kind
	switch runes[pos-1] {
	case '/':
		kind = KindCommand
	case '@':
		kind = KindMention
	default:
		return Trigger{}, false
	}
	return Trigger{Kind: kind, Start: pos - 1, Query: string(runes[pos:caret])}, true
}

// Filter keeps candidates whose label, handle, id or description contains
// query, case-insensitively, in their original order.
func Filter(candidates []Candidate, query string) []Candidate {
	q := strings.ToLower(query)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Label), q) ||
			strings.Contains(strings.ToLower(c.Handle), q) ||
			strings.Contains(strings.ToLower(c.ID), q) ||
			strings.Contains(strings.ToLower(c.Description), q) {
			out = append(out, c)
		}
	}
	return out
}

// Wrap moves index by delta over n entries, wrapping at both ends
func Wrap(index, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((index+delta)%n + n) % n
}

// ApplyCommand replaces the trigger token with the command label and a
// trailing space.
func ApplyCommand(text string, caret int, trig Trigger, c Candidate) Edit {
	runes := []rune(text)
	caret = clampCaret(caret, len(runes))
	insert := []rune(c.Label + " ")

	out := make([]rune, 0, len(runes)+len(insert))
	out = append(out, runes[:trig.Start]...)
	out = append(out, insert...)
	out = append(out, runes[caret:]...)
	return Edit{Text: string(out), Caret: trig.Start + len(insert)}
}

// ApplyMention replaces the trigger token with "@handle". A space is inserted
// when the text after the caret starts with a non-space character, and the
// caret lands after the mention and that space.
func ApplyMention(text string, caret int, trig Trigger, c Candidate) Edit {
	runes := []rune(text)
	caret = clampCaret(caret, len(runes))
	insert := []rune("@" + c.Handle)
	rest := runes[caret:]
	if len(rest) > 0 && !unicode.IsSpace(rest[0]) {
		insert = append(insert, ' ')
	}

	out := make([]rune, 0, len(runes)+len(insert))
	out = append(out, runes[:trig.Start]...)
	out = append(out, insert...)
	out = append(out, rest...)
	return Edit{Text: string(out), Caret: trig.Start + len(insert)}
}

var mentionToken = regexp.MustCompile(`@(\w+)`)

// ScanMentions returns the candidates mentioned anywhere in text, in
// candidate order and without duplicates. Typed mentions count the same as
// committed ones.
func ScanMentions(text string, candidates []Candidate) []Candidate {
	present := map[string]bool{}
	for _, m := range mentionToken.FindAllStringSubmatch(text, -1) {
		present[strings.ToLower(m[1])] = true
	}
	var out []Candidate
	for _, c := range candidates {
		if present[strings.ToLower(c.Handle)] {
			out = append(out, c)
			delete(present, strings.ToLower(c.Handle))
		}
	}
	return out
}

// StripMention removes every "@handle" token and the whitespace after it
func StripMention(text, handle string) string {
	re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(handle) + `\b\s*`)
	return re.ReplaceAllString(text, "")
}

func clampCaret(caret, n int) int {
	if caret < 0 || caret > n {
		return n
	}
	return caret
}
