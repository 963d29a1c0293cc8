package irc

import (
	"strconv"
	"strings"
	"time"

	"github.com/Gwildor/Pyromancer/internal/state"
)

// Kind classifies a parsed line.
type Kind int

const (
	Other Kind = iota
	UserMessage
	NumericReply
	VerbCommand
)

func (k Kind) String() string {
	switch k {
	case UserMessage:
		return "usermsg"
	case NumericReply:
		return "numeric"
	case VerbCommand:
		return "verb"
	}
	return "other"
}

// Line is one classified line of protocol text. It is built once by Parse
// and only read afterwards.
type Line struct {
	Raw    string
	Time   time.Time
	Kind   Kind
	Tokens []string

	// Source is the origin token without its leading ':'.
	Source  string
	Sender  *state.User
	Target  string
	Channel *state.Channel

	// Set for user messages only.
	Private bool
	Notice  bool
	Text    string

	Code int
	Verb string

	words []string
}

// Parse classifies raw and resolves its sender and channel against store.
// A nil store yields unregistered entities. Lines too short for their
// classification come back as Other.
func Parse(raw string, now time.Time, store *state.Store) *Line {
	if store == nil {
		store = state.NewStore()
	}

	l := &Line{Raw: raw, Time: now}

	tokens := strings.Fields(raw)
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], "@") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 {
		tokens[0] = strings.TrimPrefix(tokens[0], ":")
	}
	l.Tokens = tokens

	if len(tokens) < 2 {
		return l
	}

	command := tokens[1]
	switch {
	case command == "PRIVMSG" || command == "NOTICE":
		if len(tokens) < 3 {
			return l
		}
		l.Kind = UserMessage
		l.Notice = command == "NOTICE"
		l.Target = tokens[2]
		l.Private = !state.IsChannel(l.Target)
		if len(tokens) > 3 {
			l.Text = strings.TrimPrefix(strings.Join(tokens[3:], " "), ":")
		}
		l.words = strings.Split(l.Text, " ")
		if !l.Private {
			l.Channel = store.ResolveChannel(l.Target)
		}
	case isCode(command):
		l.Kind = NumericReply
		l.Code, _ = strconv.Atoi(command)
		l.resolveChannel(store)
	case IsVerb(command):
		l.Kind = VerbCommand
		l.Verb = command
		l.resolveChannel(store)
	default:
		return l
	}

	l.Source = tokens[0]
	if l.Kind == UserMessage && !strings.ContainsAny(l.Source, "!@") {
		// servers and services: the whole origin is the host
		l.Sender = &state.User{Host: l.Source}
	} else {
		l.Sender = store.ResolveUser(l.Source)
	}
	return l
}

func (l *Line) resolveChannel(store *state.Store) {
	if len(l.Tokens) < 3 {
		return
	}
	l.Target = strings.TrimPrefix(l.Tokens[2], ":")
	if state.IsChannel(l.Target) {
		l.Channel = store.ResolveChannel(l.Target)
	}
}

// Word addresses payload words of a user message and raw tokens of anything
// else. Out of range is "".
func (l *Line) Word(i int) string {
	parts := l.parts()
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}

// Words returns everything from index from on, or nil when out of range.
func (l *Line) Words(from int) []string {
	parts := l.parts()
	if from < 0 || from >= len(parts) {
		return nil
	}
	return parts[from:]
}

// Len is the number of addressable words.
func (l *Line) Len() int {
	return len(l.parts())
}

func (l *Line) parts() []string {
	if l.Kind == UserMessage {
		return l.words
	}
	return l.Tokens
}

// ReplyTarget is where a response to this line goes: the sender of a
// private message, the channel otherwise.
func (l *Line) ReplyTarget() string {
	if l.Kind == UserMessage && l.Private {
		if l.Sender != nil {
			return l.Sender.Nick
		}
		return ""
	}
	return l.Target
}

func (l *Line) String() string {
	if l.Kind == UserMessage {
		return l.Sender.String() + ": " + l.Text
	}
	return l.Raw
}

// IsVerb reports whether s has the shape of a verb command: four or five
// upper-case letters.
func IsVerb(s string) bool {
	if len(s) < 4 || len(s) > 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func isCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
