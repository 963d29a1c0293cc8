package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Gwildor/Pyromancer/internal/irc"
)

// Settings is the slice of configuration the match engine reads.
type Settings interface {
	CommandPrefix() string
}

// Spec is the matching configuration of one registered handler: an ordered
// list of patterns, a numeric code or a verb, plus the prefix and raw flags.
type Spec struct {
	patterns []*regexp.Regexp
	code     int
	verb     string
	prefix   bool
	raw      bool
}

type Option func(*Spec) error

// Pattern adds regular expressions, tried in the given order. The first one
// found anywhere in the input wins.
func Pattern(patterns ...string) Option {
	return func(s *Spec) error {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
			}
			s.patterns = append(s.patterns, re)
		}
		return nil
	}
}

// Code matches a numeric reply. It implies raw, unprefixed matching.
func Code(code int) Option {
	return func(s *Spec) error {
		if code < 1 || code > 999 {
			return fmt.Errorf("%w: %d", ErrInvalidCode, code)
		}
		s.code = code
		return nil
	}
}

// Verb matches a verb command such as JOIN. It implies raw, unprefixed
// matching.
func Verb(verb string) Option {
	return func(s *Spec) error {
		if !irc.IsVerb(verb) {
			return fmt.Errorf("%w: %q", ErrInvalidVerb, verb)
		}
		s.verb = verb
		return nil
	}
}

// NoPrefix lets patterns match chat text that does not start with the
// configured command prefix.
func NoPrefix() Option {
	return func(s *Spec) error {
		s.prefix = false
		return nil
	}
}

// Raw matches patterns against the whole raw line instead of chat text,
// for any kind of line.
func Raw() Option {
	return func(s *Spec) error {
		s.raw = true
		return nil
	}
}

// New builds a Spec. A prefix is required by default.
func New(opts ...Option) (*Spec, error) {
	s := &Spec{prefix: true}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if len(s.patterns) == 0 && s.code == 0 && s.verb == "" {
		return nil, ErrNoDiscriminator
	}
	if s.code != 0 || s.verb != "" {
		s.raw = true
		s.prefix = false
	}

	return s, nil
}

// MustNew is New for package-level command tables.
func MustNew(opts ...Option) *Spec {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Verb is the verb command the spec matches, "" for other specs.
func (s *Spec) Verb() string {
	return s.verb
}

// Capture holds the groups of a successful match. Code and verb matches
// carry no groups.
type Capture struct {
	groups []string
	names  []string
}

// Match decides whether line triggers this spec.
func (s *Spec) Match(line *irc.Line, settings Settings) *Capture {
	if !s.raw && line.Kind != irc.UserMessage {
		return nil
	}
	if s.code != 0 && line.Kind == irc.NumericReply && line.Code == s.code {
		return &Capture{}
	}
	if s.verb != "" && line.Kind == irc.VerbCommand && line.Verb == s.verb {
		return &Capture{}
	}

	input := line.Text
	if s.raw {
		input = line.Raw
	}

	if s.prefix && settings != nil {
		if p := settings.CommandPrefix(); p != "" {
			if !strings.HasPrefix(input, p) {
				return nil
			}
			input = input[len(p):]
		}
	}

	for _, re := range s.patterns {
		if groups := re.FindStringSubmatch(input); groups != nil {
			return &Capture{groups: groups, names: re.SubexpNames()}
		}
	}
	return nil
}

// Get returns group i, or "" when there is no such group.
func (c *Capture) Get(i int) string {
	if c == nil || i < 0 || i >= len(c.groups) {
		return ""
	}
	return c.groups[i]
}

// Named returns the named group, or "".
func (c *Capture) Named(name string) string {
	if c == nil {
		return ""
	}
	for i, n := range c.names {
		if n != "" && n == name {
			return c.Get(i)
		}
	}
	return ""
}

// Groups returns a copy of every group, the whole match first.
func (c *Capture) Groups() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.groups...)
}
